package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"simonwaldherr.de/go/nanoscript/logger"
)

func writeConfig(t *testing.T, dir, content string) string {
	t.Helper()
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, t.TempDir(), `
log:
  level: debug
  format: json
  file: /tmp/ns.log
run:
  timeout: 1500ms
  print_result: false
repl:
  history: false
  history_file: ./hist
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json", File: "/tmp/ns.log"}, cfg.Log)
	assert.Equal(t, 1500*time.Millisecond, cfg.Run.Timeout)
	assert.False(t, cfg.Run.PrintResult)
	assert.False(t, cfg.REPL.History)
	assert.Equal(t, "./hist", cfg.HistoryPath())

	lc := cfg.LoggerConfig()
	assert.Equal(t, logger.LevelDebug, lc.Level)
	assert.Equal(t, "json", lc.Format)
	assert.Equal(t, "/tmp/ns.log", lc.LogFile)
}

func TestDefaultsForMissingKeys(t *testing.T) {
	cfg, err := Decode(strings.NewReader("run:\n  timeout: 2s\n"))
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.Run.Timeout)
	assert.True(t, cfg.Run.PrintResult)
	assert.True(t, cfg.REPL.History)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
}

func TestEmptyDocumentIsDefault(t *testing.T) {
	cfg, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestUnknownFieldsAreRejected(t *testing.T) {
	_, err := Decode(strings.NewReader("run:\n  timeout: 1s\n  retries: 3\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries")
}

func TestValidation(t *testing.T) {
	_, err := Decode(strings.NewReader(`
log:
  level: loud
  format: xml
run:
  timeout: soon
`))
	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "got %v", err)
	require.Len(t, verr.Issues, 3)
	assert.Contains(t, verr.Issues[0], "log.level")
	assert.Contains(t, verr.Issues[1], "log.format")
	assert.Contains(t, verr.Issues[2], "run.timeout")
	assert.Contains(t, verr.Error(), "config validation failed:\n- ")

	_, err = Decode(strings.NewReader("run:\n  timeout: -1s\n"))
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, []string{"run.timeout: must not be negative"}, verr.Issues)
}

func TestResolve(t *testing.T) {
	dir := t.TempDir()
	cfg, err := Resolve("", dir)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)

	path := writeConfig(t, dir, "run:\n  print_result: false\n")
	cfg, err = Resolve("", dir)
	require.NoError(t, err)
	assert.Equal(t, path, cfg.Path)
	assert.False(t, cfg.Run.PrintResult)

	_, err = Resolve(filepath.Join(dir, "missing.yaml"), dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestHistoryPathExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}
	assert.Equal(t, filepath.Join(home, ".nanoscript_history"), Default().HistoryPath())
}
