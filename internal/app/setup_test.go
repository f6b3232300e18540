package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/threadlens/threadlens/internal/config"
	"github.com/threadlens/threadlens/internal/log"
	"github.com/threadlens/threadlens/internal/vectorstore/memory"
)

func TestSetupRejectsInvalidConfig(t *testing.T) {
	cfg := &config.Config{} // missing everything

	_, err := Setup(context.Background(), cfg, log.NewNop())
	require.Error(t, err)
}

func TestProvideStoreMemory(t *testing.T) {
	cfg := &config.Config{VectorBackend: config.BackendMemory}

	store, pool, err := provideStore(context.Background(), cfg, log.NewNop())
	require.NoError(t, err)
	assert.Nil(t, pool)
	assert.IsType(t, &memory.Store{}, store)
}

func TestProvideStorePineconeRequiresConfig(t *testing.T) {
	cfg := &config.Config{VectorBackend: config.BackendPinecone}

	_, _, err := provideStore(context.Background(), cfg, log.NewNop())
	assert.Error(t, err)
}

func TestProvideOtelShutdownDisabled(t *testing.T) {
	cfg := &config.Config{}

	cleanup := provideOtelShutdown(context.Background(), cfg, log.NewNop())
	require.NotNil(t, cleanup)
	cleanup()
}
