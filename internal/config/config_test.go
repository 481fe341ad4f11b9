package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSettings(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		s, err := Load("")
		require.NoError(t, err)
		assert.Equal(t, Default(), s)
	})

	t.Run("partial file overlays defaults", func(t *testing.T) {
		path := writeSettings(t, "workers: 8\n")
		s, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, 8, s.Workers)
		assert.Equal(t, "info", s.LogLevel)
		assert.Equal(t, "text", s.LogFormat)
	})

	t.Run("full file", func(t *testing.T) {
		path := writeSettings(t, "workers: 2\nlog_level: debug\nlog_format: json\n")
		s, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, &Settings{Workers: 2, LogLevel: "debug", LogFormat: "json"}, s)
	})

	t.Run("missing file fails", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.Error(t, err)
	})

	t.Run("malformed yaml fails", func(t *testing.T) {
		path := writeSettings(t, "workers: [not a number\n")
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("invalid values fail validation", func(t *testing.T) {
		path := writeSettings(t, "log_level: verbose\n")
		_, err := Load(path)
		require.Error(t, err)
		assert.True(t, errdefs.IsUsage(err))
	})
}

func TestSettings_Validate(t *testing.T) {
	testCases := []struct {
		name     string
		settings Settings
		valid    bool
	}{
		{name: "defaults", settings: *Default(), valid: true},
		{name: "zero workers", settings: Settings{Workers: 0, LogLevel: "info", LogFormat: "text"}},
		{name: "bad level", settings: Settings{Workers: 1, LogLevel: "loud", LogFormat: "text"}},
		{name: "bad format", settings: Settings{Workers: 1, LogLevel: "info", LogFormat: "xml"}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.settings.Validate()
			if tc.valid {
				assert.NoError(t, err)
			} else {
				assert.True(t, errdefs.IsUsage(err))
			}
		})
	}
}
