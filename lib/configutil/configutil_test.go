package configutil_test

import (
	"os"
	"path/filepath"
	"testing"

	"chanceme-backend/lib/configutil"

	"github.com/stretchr/testify/require"
)

type testConfig struct {
	Name  string   `json:"name"`
	Port  int      `json:"port"`
	Hosts []string `json:"hosts"`
}

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestReadConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json5")
	writeFile(t, path, `{
		// json5 comments are allowed
		name: "base",
		port: 8000,
	}`)

	config, err := configutil.ReadConfig[testConfig](path)
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "base", Port: 8000}, config)
}

func TestReadConfigLocalOverride(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "config.json5"), `{
		name: "base",
		port: 8000,
		hosts: ["a"],
	}`)
	writeFile(t, filepath.Join(dir, "config.local.json5"), `{
		port: 9000,
	}`)

	config, err := configutil.ReadConfig[testConfig](filepath.Join(dir, "config.json5"))
	require.NoError(t, err)
	require.Equal(t, testConfig{Name: "base", Port: 9000, Hosts: []string{"a"}}, config)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := configutil.ReadConfig[testConfig](filepath.Join(t.TempDir(), "config.json5"))
	require.True(t, os.IsNotExist(err))
}
