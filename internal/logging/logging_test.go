package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetup_WritesLogFile(t *testing.T) {
	os.Unsetenv("JOURNAL_STREAM")
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	path := filepath.Join(t.TempDir(), "test.log")
	closeLog, err := Setup("debug", path)
	require.NoError(t, err)

	log.Debug().Msg("hello from the test")
	closeLog()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from the test")
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())
}

func TestSetup_UnknownLevelFallsBackToInfo(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.TraceLevel)

	closeLog, err := Setup("chatty", "")
	require.NoError(t, err)
	closeLog()

	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
