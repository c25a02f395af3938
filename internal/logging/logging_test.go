// ABOUTME: Tests for logger setup
// ABOUTME: Checks file output, level filtering and module tagging
package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupWritesFile(t *testing.T) {
	saved := log.Logger
	t.Cleanup(func() { log.Logger = saved })

	path := filepath.Join(t.TempDir(), "fifoplay.log")
	closer, err := Setup(path, "debug", false)
	require.NoError(t, err)

	log.Printf("engine started at %d Hz", 16000)
	log.Trace().Msg("cycle detail")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "engine started at 16000 Hz")
	assert.NotContains(t, string(data), "cycle detail")
}

func TestSetupRejectsBadLevel(t *testing.T) {
	_, err := Setup("", "loud", false)
	assert.Error(t, err)
}

func TestSetupBadPath(t *testing.T) {
	_, err := Setup(filepath.Join(t.TempDir(), "missing", "dir", "x.log"), "info", false)
	assert.Error(t, err)
}

func TestModule(t *testing.T) {
	saved := log.Logger
	t.Cleanup(func() { log.Logger = saved })

	var buf bytes.Buffer
	log.Logger = New(&buf, zerolog.DebugLevel)

	l := Module("gateway")
	l.Info().Msg("listening")
	assert.Contains(t, buf.String(), `"module":"gateway"`)
	assert.Contains(t, buf.String(), `"message":"listening"`)
}
