package logging

import (
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRunID_StableAcrossCalls(t *testing.T) {
	id := GetRunID()
	require.NotEmpty(t, id)
	_, err := uuid.Parse(id)
	require.NoError(t, err)
	assert.Equal(t, id, GetRunID())
}

func TestNewLogger_WritesJSONToRunLog(t *testing.T) {
	log, err := NewLogger("test-component")
	require.NoError(t, err)
	defer log.Close()

	assert.Equal(t, GetRunID(), log.RunID())
	require.NotEmpty(t, log.LogPath())
	assert.True(t, strings.HasSuffix(log.LogPath(), GetRunID()+".log"))

	log.Infof("hello %s", "world")
	require.NoError(t, log.Close())

	data, err := os.ReadFile(log.LogPath())
	require.NoError(t, err)

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), "each line is a JSON object")
		if entry["msg"] == "hello world" {
			found = true
			assert.Equal(t, "test-component", entry["component"])
			assert.Equal(t, GetRunID(), entry["run_id"])
			assert.NotEmpty(t, entry["ts"])
		}
	}
	assert.True(t, found, "logged message present in the run log")
}

func TestNewLogger_ComponentsShareRunLog(t *testing.T) {
	a, err := NewLogger("component-a")
	require.NoError(t, err)
	defer a.Close()
	b, err := NewLogger("component-b")
	require.NoError(t, err)
	defer b.Close()

	assert.Equal(t, a.LogPath(), b.LogPath())
	assert.Equal(t, a.RunID(), b.RunID())
}

func TestWith_KeepsRunIdentity(t *testing.T) {
	log, err := NewLogger("parent")
	require.NoError(t, err)
	defer log.Close()

	derived := log.With("context_id", "c1")
	assert.Equal(t, log.RunID(), derived.RunID())
	assert.Equal(t, log.LogPath(), derived.LogPath())
	derived.Debugf("derived loggers write without panicking")
	require.NoError(t, derived.Close(), "closing a derived logger leaves the file open")
	log.Infof("still writable")
}

func TestNop(t *testing.T) {
	log := Nop()
	log.Debugf("discarded")
	log.Infof("discarded")
	log.Warnf("discarded")
	log.Errorf("discarded")
	assert.NoError(t, log.Close())
	assert.Empty(t, log.LogPath())
}

func TestGetLogDirectory(t *testing.T) {
	dir, err := GetLogDirectory()
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(dir, ".attest/logs") || strings.Contains(dir, ".attest"))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
