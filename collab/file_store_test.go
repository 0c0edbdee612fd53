package collab

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/connectorcore/connectorcore/corekit"
	"github.com/connectorcore/connectorcore/policy"
)

func TestFileConfigStoreMissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := NewFileConfigStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, ok := store.GetConfig(corekit.IntegrationS3)
	assert.False(t, ok)
}

func TestFileConfigStoreSetThenGetRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := NewFileConfigStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SetConfig(corekit.IntegrationS3, map[string]interface{}{"region": "us-west-2"}))

	fields, ok := store.GetConfig(corekit.IntegrationS3)
	require.True(t, ok)
	assert.Equal(t, "us-west-2", fields["region"])
	assert.FileExists(t, path)
}

func TestFileConfigStoreGetConfigReturnsACopyNotTheBackingMap(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := NewFileConfigStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	require.NoError(t, store.SetConfig(corekit.IntegrationS3, map[string]interface{}{"region": "us-west-2"}))

	fields, _ := store.GetConfig(corekit.IntegrationS3)
	fields["region"] = "tampered"

	again, _ := store.GetConfig(corekit.IntegrationS3)
	assert.Equal(t, "us-west-2", again["region"])
}

func TestFileConfigStoreReloadPicksUpOutOfBandEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	store, err := NewFileConfigStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, os.WriteFile(path, []byte(`{"s3":{"region":"eu-central-1"}}`), 0o600))
	require.NoError(t, store.reload())

	fields, ok := store.GetConfig(corekit.IntegrationS3)
	require.True(t, ok)
	assert.Equal(t, "eu-central-1", fields["region"])
}

func TestFileSecretStoreSetThenGetRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	store := NewFileSecretStore(path)

	require.NoError(t, store.SetSecretConfig(corekit.IntegrationS3, map[string]interface{}{"accessKeyId": "AKIDEXAMPLE"}))
	fields := store.GetSecretConfig(corekit.IntegrationS3)
	assert.Equal(t, "AKIDEXAMPLE", fields["accessKeyId"])
}

func TestFileSecretStoreSettingEmptyFieldsDeletesRecord(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.json")
	store := NewFileSecretStore(path)
	require.NoError(t, store.SetSecretConfig(corekit.IntegrationS3, map[string]interface{}{"accessKeyId": "AKIDEXAMPLE"}))

	require.NoError(t, store.SetSecretConfig(corekit.IntegrationS3, map[string]interface{}{}))
	fields := store.GetSecretConfig(corekit.IntegrationS3)
	assert.Nil(t, fields)
}

func TestFileSecretStoreMissingFileReturnsEmptyMap(t *testing.T) {
	store := NewFileSecretStore(filepath.Join(t.TempDir(), "nope.json"))
	assert.Nil(t, store.GetSecretConfig(corekit.IntegrationS3))
}

func TestFilePolicyStoreMissingFileReturnsZeroConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	store, err := NewFilePolicyStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg, err := store.GetConnectorPolicyConfig()
	require.NoError(t, err)
	assert.Equal(t, policy.Config{}, cfg)
}

func TestFilePolicyStoreSetNormalizesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "policy.json")
	store, err := NewFilePolicyStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.SetConnectorPolicyConfig(policy.Config{Enabled: true}))

	cfg, err := store.GetConnectorPolicyConfig()
	require.NoError(t, err)
	assert.Equal(t, policy.Normalize(policy.Config{Enabled: true}), cfg)
	assert.FileExists(t, path)
}
