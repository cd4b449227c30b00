package logger

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRollbarLogger_PrintsWithoutToken(t *testing.T) {
	var buf bytes.Buffer
	l := NewRollbarLogger(log.New(&buf, "", 0), "", "TEST")

	l.Info("[ENROLL] joined", "challenge=abc")
	l.Error("[ENROLL] failed", errors.New("boom"))

	out := buf.String()
	assert.Contains(t, out, "[ENROLL] joined challenge=abc")
	assert.Contains(t, out, "[ENROLL] failed boom")
}

func TestDiscard_DropsOutput(t *testing.T) {
	l := NewDiscard()
	assert.NotPanics(t, func() {
		l.Warn("nothing to see")
		l.Close()
	})
}

func TestPrepare_KeepsMessageAndFoldsValues(t *testing.T) {
	out := prepare("[CHALLENGE] created", []interface{}{"3f2a-id", "fractions-face-off-3f2a", 4, int64(7)})

	require.Len(t, out, 2)
	assert.Equal(t, "[CHALLENGE] created", out[0])
	extras, ok := out[1].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, []string{"3f2a-id", "fractions-face-off-3f2a", "4", "7"}, extras["args"])

	for _, v := range out {
		_, isInt := v.(int)
		assert.False(t, isInt, "ints are read as a stack skip")
	}
}

func TestPrepare_ErrorsAndExtras(t *testing.T) {
	boom := errors.New("boom")
	out := prepare("[ARCHIVE] upload failed", []interface{}{
		"c1", boom, errors.New("second"), map[string]interface{}{"bucket": "results"},
	})

	require.Len(t, out, 3)
	assert.Equal(t, "[ARCHIVE] upload failed", out[0])
	assert.Equal(t, boom, out[1])
	extras := out[2].(map[string]interface{})
	assert.Equal(t, "results", extras["bucket"])
	assert.Equal(t, "[ARCHIVE] upload failed", extras["message"])
	assert.Equal(t, []string{"c1", "second"}, extras["args"])

	strs := 0
	for _, v := range out {
		if _, ok := v.(string); ok {
			strs++
		}
	}
	assert.Equal(t, 1, strs)
}

func TestPrepare_MessageOnly(t *testing.T) {
	assert.Equal(t, []interface{}{"ready"}, prepare("ready", nil))
}
