package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComponentTagsJSONLines(t *testing.T) {
	prev := Log
	t.Cleanup(func() { Log = prev })

	var buf bytes.Buffer
	UseJSON(&buf)
	l := Component("engine")
	l.Info().Int("lines", 3).Msg("Run completed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "engine", entry["component"])
	assert.Equal(t, "Run completed", entry["message"])
	assert.EqualValues(t, 3, entry["lines"])
}

func TestSetLevelFallsBackToInfo(t *testing.T) {
	prevLog, prevLevel := Log, zerolog.GlobalLevel()
	t.Cleanup(func() {
		Log = prevLog
		zerolog.SetGlobalLevel(prevLevel)
	})

	SetLevel("debug")
	assert.Equal(t, zerolog.DebugLevel, Log.GetLevel())

	SetLevel("loud")
	assert.Equal(t, zerolog.InfoLevel, Log.GetLevel())
}
