package tui

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	PrintBanner(&buf, "1.2.3")
	assert.Contains(t, buf.String(), "1.2.3")
	assert.Contains(t, buf.String(), "|_|")
}

func TestNewRenderer(t *testing.T) {
	render, err := NewRenderer()
	require.NoError(t, err)

	out, err := render("Visit **Rua das Flores, 120**")
	require.NoError(t, err)
	assert.Contains(t, out, "Rua das Flores")
	assert.False(t, strings.Contains(out, "**"))
}
