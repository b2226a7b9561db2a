package client

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func useConfigPath(t *testing.T) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "askdocs", "config.json")
	old := getConfigPathFunc
	getConfigPathFunc = func() (string, error) { return configPath, nil }
	t.Cleanup(func() { getConfigPathFunc = old })
	return configPath
}

func TestDefaultConfigPath(t *testing.T) {
	path, err := defaultGetConfigPath()
	require.NoError(t, err)
	assert.True(t, filepath.IsAbs(path))
	assert.True(t, strings.HasSuffix(path, filepath.Join("askdocs", "config.json")))
}

func TestLoadGlobalConfig_FileNotExists(t *testing.T) {
	useConfigPath(t)

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Nil(t, config)
}

func TestLoadGlobalConfig_InvalidJSON(t *testing.T) {
	configPath := useConfigPath(t)
	require.NoError(t, os.MkdirAll(filepath.Dir(configPath), 0755))
	require.NoError(t, os.WriteFile(configPath, []byte("{not json"), 0600))

	config, err := LoadGlobalConfig()
	assert.ErrorContains(t, err, "failed to parse config file")
	assert.Nil(t, config)
}

func TestSaveGlobalConfig_RoundTrip(t *testing.T) {
	configPath := useConfigPath(t)

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://docs.internal:9000"}))

	info, err := os.Stat(configPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://docs.internal:9000", config.APIURL)
}

func TestSaveGlobalConfig_NilConfig(t *testing.T) {
	assert.Error(t, SaveGlobalConfig(nil))
}

func newFlagCmd(apiURL string) *cobra.Command {
	cmd := &cobra.Command{Use: "test"}
	cmd.Flags().String("api-url", "", "")
	if apiURL != "" {
		_ = cmd.Flags().Set("api-url", apiURL)
	}
	return cmd
}

func TestNewAPIClientWithCmd_Cascade(t *testing.T) {
	useConfigPath(t)
	t.Setenv(envAPIURL, "")

	api, err := NewAPIClientWithCmd(newFlagCmd(""))
	require.NoError(t, err)
	assert.Equal(t, defaultAPIURL, api.BaseURL())

	require.NoError(t, SaveGlobalConfig(&GlobalConfig{APIURL: "http://from-config"}))
	api, err = NewAPIClientWithCmd(newFlagCmd(""))
	require.NoError(t, err)
	assert.Equal(t, "http://from-config", api.BaseURL())

	t.Setenv(envAPIURL, "http://from-env/")
	api, err = NewAPIClientWithCmd(newFlagCmd(""))
	require.NoError(t, err)
	assert.Equal(t, "http://from-env", api.BaseURL(), "trailing slash is trimmed")

	api, err = NewAPIClientWithCmd(newFlagCmd("http://from-flag"))
	require.NoError(t, err)
	assert.Equal(t, "http://from-flag", api.BaseURL())
}

func TestConfigCmd_SetURL(t *testing.T) {
	useConfigPath(t)

	cmd := ConfigCmd()
	cmd.SetArgs([]string{"set-url", "http://localhost:9999"})
	cmd.SetOut(new(strings.Builder))
	require.NoError(t, cmd.Execute())

	config, err := LoadGlobalConfig()
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999", config.APIURL)

	cmd = ConfigCmd()
	cmd.SetArgs([]string{"set-url", "not a url"})
	cmd.SetOut(new(strings.Builder))
	cmd.SetErr(new(strings.Builder))
	assert.Error(t, cmd.Execute())
}
