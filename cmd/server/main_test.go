package main

import (
	"testing"

	"github.com/agenthands/notalone/internal/config"
	"github.com/agenthands/notalone/internal/core/community"
	"github.com/agenthands/notalone/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := []string{}
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "init-store")

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, "c", flag.Shorthand)
}

func TestInitStore_Memory(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("ENV", "test")

	root := newRootCmd()
	root.SetArgs([]string{"init-store", "--config", t.TempDir() + "/missing.toml"})
	assert.NoError(t, root.Execute())
}

func TestServe_InvalidConfig(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("JWT_SECRET", "")

	root := newRootCmd()
	root.SetArgs([]string{"serve", "--config", t.TempDir() + "/missing.toml"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "jwt_secret")
}

func TestNewOrchestrator_CircleAlgorithm(t *testing.T) {
	cfg := config.Default()
	cfg.Circles.Algorithm = "components"

	orch, err := newOrchestrator(cfg, store.NewMemoryStore(), nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &community.ComponentDetector{}, orch.Detector)

	cfg.Circles.Algorithm = ""
	orch, err = newOrchestrator(cfg, store.NewMemoryStore(), nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &community.FallbackDetector{}, orch.Detector)

	cfg.Circles.Algorithm = "louvain"
	_, err = newOrchestrator(cfg, store.NewMemoryStore(), nil, nil)
	assert.Error(t, err)
}
