package persistence

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/distributor-bonus-ledger/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient_Disabled(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	client, err := NewRedisClient(context.Background(), logger, &config.RedisConfig{})
	require.NoError(t, err)
	assert.Nil(t, client, "an empty address disables the cache")
}
