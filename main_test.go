package main

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotesCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := notesCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"A4,C5", "C4"})
	require.NoError(t, cmd.Execute())
	assert.Equal(t, "A4\t440.000 Hz\nC5\t523.251 Hz\nC4\t261.626 Hz\n", out.String())

	cmd = notesCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"K4"})
	assert.Error(t, cmd.Execute())
}

func TestCalibrationCommand(t *testing.T) {
	var out bytes.Buffer
	cmd := calibrationCmd()
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2+22)
	assert.Contains(t, lines[0], "coefficients (fitted)")
	assert.Contains(t, lines[0], "pitch=0.40000")
}

func TestAnalyzeRejectsBadAlignment(t *testing.T) {
	cmd := analyzeCmd()
	cmd.SetArgs([]string{"--align", "nearest", "take.wav"})
	assert.Error(t, cmd.Execute())
}
