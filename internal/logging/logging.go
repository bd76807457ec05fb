package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global logger. Output goes to stderr, and also to
// fileName unless the process runs under systemd or fileName is empty.
// The returned function closes the log file.
func Setup(level string, fileName string) (func(), error) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	consoleWriter := zerolog.ConsoleWriter{Out: os.Stderr}

	// JOURNAL_STREAM is set by systemd when running as a service.
	// journald keeps the logs and ProtectSystem=strict makes the working
	// directory read-only.
	if _, underSystemd := os.LookupEnv("JOURNAL_STREAM"); underSystemd || fileName == "" {
		log.Logger = log.Output(consoleWriter)
		return func() {}, nil
	}

	logFile, err := os.OpenFile(fileName, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		log.Logger = log.Output(consoleWriter)
		return func() {}, err
	}

	fileWriter := zerolog.ConsoleWriter{Out: logFile, NoColor: true}
	log.Logger = log.Output(io.MultiWriter(consoleWriter, fileWriter))
	log.Info().Str("logFile", fileName).Msg("logging to file")

	return func() { logFile.Close() }, nil
}
