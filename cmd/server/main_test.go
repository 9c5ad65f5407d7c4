package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/aceofaces/aoa-server/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestInitLogger(t *testing.T) {
	tests := map[string]zapcore.Level{
		"debug":   zapcore.DebugLevel,
		"info":    zapcore.InfoLevel,
		"warn":    zapcore.WarnLevel,
		"error":   zapcore.ErrorLevel,
		"verbose": zapcore.InfoLevel,
	}
	for level, want := range tests {
		for _, format := range []string{"json", "console"} {
			logger, err := initLogger(config.LoggingConfig{Level: level, Format: format})
			require.NoError(t, err)
			assert.True(t, logger.Core().Enabled(want), "%s/%s", level, format)
			if want > zapcore.DebugLevel {
				assert.False(t, logger.Core().Enabled(want-1), "%s/%s", level, format)
			}
		}
	}
}

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.Contains(t, names, "serve")
	assert.Contains(t, names, "import-pages")
}

func TestServeFailsOnBadPages(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("pages:\n  dir: "+filepath.Join(dir, "missing")+"\n"), 0o644))

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"serve", "--config", path})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load pages")
}

func TestImportPagesRequiresDatabase(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"import-pages", "--config", filepath.Join(t.TempDir(), "none.yaml")})

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.url")
}
