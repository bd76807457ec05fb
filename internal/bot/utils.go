package bot

import (
	"fmt"
	"strings"

	"github.com/lithammer/dedent"
)

func formatReplyText(text string, a ...any) string {
	return fmt.Sprintf(strings.TrimSpace(dedent.Dedent(text)), a...)
}

// parseCommand splits a command message into the command and its
// arguments. A "@botname" suffix on the command is dropped.
func parseCommand(s string) (string, []string) {
	parts := strings.Split(strings.TrimSpace(s), " ")
	command := parts[0]
	if at := strings.Index(command, "@"); at > 0 {
		command = command[:at]
	}
	return command, parts[1:]
}
