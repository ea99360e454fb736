package log

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLazyLogger_FollowsOutput(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	logger := Logger("enet/test")

	var first, second bytes.Buffer
	SetOutputWithLevel(&first, slog.LevelDebug)
	logger.Debug("第一条", "n", 1)

	SetOutput(&second)
	logger.Debug("被过滤")
	logger.Info("第二条", "n", 2)

	assert.Contains(t, first.String(), "component=enet/test")
	assert.Contains(t, first.String(), "n=1")
	assert.NotContains(t, second.String(), "被过滤")
	assert.Contains(t, second.String(), "n=2")
	assert.Equal(t, "enet/test", logger.Component())
}

func TestLazyLogger_Enabled(t *testing.T) {
	prev := Default()
	defer SetDefault(prev)

	var buf bytes.Buffer
	SetOutput(&buf)
	logger := Logger("enet/test")
	assert.False(t, logger.Enabled(LevelDebug))
	assert.True(t, logger.Enabled(LevelWarn))

	SetDefault(nil)
	assert.Equal(t, Default(), Default())
}
