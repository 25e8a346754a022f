package store

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"notifyd/internal/config"
	"notifyd/internal/store/memory"
)

func TestNewStoreFallsBackToMemory(t *testing.T) {
	repo, err := NewStore(&config.Config{}, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &memory.Store{}, repo)
}
