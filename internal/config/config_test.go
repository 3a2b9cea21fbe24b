package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewAppConfig_Defaults(t *testing.T) {
	c := NewAppConfig()
	require.Equal(t, DefaultHost, c.Host())
	require.Equal(t, DefaultPort, c.Port())
	require.Equal(t, DefaultLogLevel, c.LogLevel())
	require.Equal(t, LogFormatPretty, c.LogFormat())
	require.Equal(t, DefaultBatchSize, c.BatchSize())
	require.Equal(t, DefaultWorkerCount, c.WorkerCount())
	require.Empty(t, c.APIKeys())
}

func TestAppConfig_Addr(t *testing.T) {
	c := NewAppConfigWithOptions(WithHost("127.0.0.1"), WithPort(9090))
	require.Equal(t, "127.0.0.1:9090", c.Addr())
}

func TestAppConfig_CollectionsDir(t *testing.T) {
	c := NewAppConfigWithOptions(WithDataDir("/tmp/vexel-data"))
	require.Equal(t, filepath.Join("/tmp/vexel-data", "collections"), c.CollectionsDir())
}

func TestAppConfig_Apply_OverridesWithoutMutatingOriginal(t *testing.T) {
	base := NewAppConfig()
	updated := base.Apply(WithHost("1.2.3.4"))

	require.Equal(t, DefaultHost, base.Host())
	require.Equal(t, "1.2.3.4", updated.Host())
}

func TestAppConfig_WithBatchSize_IgnoresNonPositive(t *testing.T) {
	c := NewAppConfigWithOptions(WithBatchSize(0))
	require.Equal(t, DefaultBatchSize, c.BatchSize())

	c = NewAppConfigWithOptions(WithBatchSize(-5))
	require.Equal(t, DefaultBatchSize, c.BatchSize())

	c = NewAppConfigWithOptions(WithBatchSize(64))
	require.Equal(t, 64, c.BatchSize())
}

func TestAppConfig_WithAPIKeys_CopiesSlice(t *testing.T) {
	keys := []string{"a", "b"}
	c := NewAppConfigWithOptions(WithAPIKeys(keys))
	keys[0] = "mutated"
	require.Equal(t, []string{"a", "b"}, c.APIKeys())
}

func TestAppConfig_EnsureDataDir(t *testing.T) {
	root := t.TempDir()
	c := NewAppConfigWithOptions(WithDataDir(filepath.Join(root, "data")))
	require.NoError(t, c.EnsureDataDir())
	require.DirExists(t, c.CollectionsDir())
}

func TestIsHubRef(t *testing.T) {
	require.True(t, IsHubRef("hf://org/model"))
	require.False(t, IsHubRef("/local/path/model.onnx"))
}

func TestParseAPIKeys(t *testing.T) {
	require.Equal(t, []string{}, ParseAPIKeys(""))
	require.Equal(t, []string{"a", "b", "c"}, ParseAPIKeys("a, b ,c"))
	require.Equal(t, []string{"a"}, ParseAPIKeys("a,,"))
}
