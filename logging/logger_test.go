package logging

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/crytic/forksim/logging/colors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

// TestAddAndRemoveWriter will test Logger.AddWriter and Logger.RemoveWriter to ensure that they work as expected.
func TestAddAndRemoveWriter(t *testing.T) {
	logger := NewLogger(zerolog.InfoLevel, false)

	var buf bytes.Buffer
	logger.AddWriter(&buf, UNSTRUCTURED)
	assert.Equal(t, 1, len(logger.writers))

	// Adding the same writer again should not duplicate it.
	logger.AddWriter(&buf, UNSTRUCTURED)
	assert.Equal(t, 1, len(logger.writers))

	logger.RemoveWriter(&buf)
	assert.Equal(t, 0, len(logger.writers))
}

// TestDisabledColors verifies that console output carries no ANSI color codes once colors are disabled globally.
func TestDisabledColors(t *testing.T) {
	logger := NewLogger(zerolog.InfoLevel, false)

	var buf bytes.Buffer
	logger.AddWriter(&buf, UNSTRUCTURED)

	colors.DisableColor()
	logger.Info("foo")

	prefix := fmt.Sprintf("%s", "foo")
	_, _, ok := strings.Cut(buf.String(), prefix)
	assert.True(t, ok)
	assert.NotContains(t, buf.String(), "\x1b[")
}

// TestSubLogger verifies that a sub-logger carries its parent's level and appends the given key/value context.
func TestSubLogger(t *testing.T) {
	logger := NewLogger(zerolog.DebugLevel, false)
	sub := logger.NewSubLogger("unit", "overlay")
	assert.Equal(t, zerolog.DebugLevel, sub.Level())
}
