package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	logger, err := New(Config{Level: "warn"})
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestNewInvalidLevel(t *testing.T) {
	_, err := New(Config{Level: "loud"})
	assert.Error(t, err)
}

func TestEmptyLevelDefaultsToInfo(t *testing.T) {
	logger, err := New(Config{})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zap.InfoLevel))
	assert.False(t, logger.Core().Enabled(zap.DebugLevel))
}

func TestChildLoggers(t *testing.T) {
	logger := NewTest(t)
	logger.Named("cache").With(zap.Int("version", 23)).Debug("child logger works")
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil).Logger)
	l := NewNop()
	assert.Same(t, l, OrNop(l))
}
