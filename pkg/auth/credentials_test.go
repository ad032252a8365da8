package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"useretl/pkg/config"
)

func testCredential() *Credential {
	return &Credential{
		User:     "postgres",
		Host:     "db.local",
		Port:     5432,
		Database: "assessment",
		Password: "s3cret-password",
	}
}

func TestCredentialKey(t *testing.T) {
	assert.Equal(t, "postgres@db.local:5432/assessment", testCredential().Key())

	cfg := config.DefaultConfig().Database
	assert.Equal(t, "postgres@localhost:5432/assessment", KeyFor(&cfg))
}

func TestManagerRoundTrip(t *testing.T) {
	store := newMockStore()
	manager := NewManagerWithStores(store)

	cred := testCredential()
	require.NoError(t, manager.Store(cred))
	assert.False(t, cred.LastModified.IsZero())

	got, err := manager.Retrieve(cred.Key())
	require.NoError(t, err)
	assert.Equal(t, "s3cret-password", got.Password)

	list, err := manager.List()
	require.NoError(t, err)
	assert.Len(t, list, 1)

	require.NoError(t, manager.Delete(cred.Key()))
	assert.Equal(t, 0, store.Count())

	_, err = manager.Retrieve(cred.Key())
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	err = manager.Delete(cred.Key())
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestManagerStoreValidation(t *testing.T) {
	manager := NewManagerWithStores(newMockStore())

	assert.ErrorIs(t, manager.Store(nil), ErrInvalidCredentials)
	assert.ErrorIs(t, manager.Store(&Credential{Host: "h", Password: "p"}), ErrInvalidCredentials)

	cred := testCredential()
	cred.Password = ""
	assert.Error(t, manager.Store(cred))
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := newMockStore()
	broken.StoreError = errors.New("keychain locked")
	backup := newMockStore()

	manager := NewManagerWithStores(broken, backup)
	require.NoError(t, manager.Store(testCredential()))

	assert.Equal(t, 0, broken.Count())
	assert.Equal(t, 1, backup.Count())
}

func TestManagerStoreAllFail(t *testing.T) {
	broken := newMockStore()
	broken.StoreError = errors.New("keychain locked")

	err := NewManagerWithStores(broken).Store(testCredential())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "keychain locked")
}

func TestManagerListKeepsNewest(t *testing.T) {
	older := testCredential()
	older.Password = "old"
	older.LastModified = time.Now().Add(-time.Hour)
	newer := testCredential()
	newer.Password = "new"
	newer.LastModified = time.Now()

	a, b := newMockStore(), newMockStore()
	require.NoError(t, a.Store(older))
	require.NoError(t, b.Store(newer))

	list, err := NewManagerWithStores(a, b).List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "new", list[0].Password)
}

func TestResolvePassword(t *testing.T) {
	store := newMockStore()
	manager := NewManagerWithStores(store)
	require.NoError(t, manager.Store(testCredential()))

	cfg := config.DatabaseConfig{User: "postgres", Host: "db.local", Port: 5432, Database: "assessment", UseKeyring: true}

	pw, err := manager.ResolvePassword(&cfg)
	require.NoError(t, err)
	assert.Equal(t, "s3cret-password", pw)

	explicit := cfg
	explicit.Password = "from-config"
	pw, err = manager.ResolvePassword(&explicit)
	require.NoError(t, err)
	assert.Equal(t, "from-config", pw)

	noKeyring := cfg
	noKeyring.UseKeyring = false
	pw, err = manager.ResolvePassword(&noKeyring)
	require.NoError(t, err)
	assert.Empty(t, pw)

	other := cfg
	other.Host = "elsewhere"
	pw, err = manager.ResolvePassword(&other)
	require.NoError(t, err)
	assert.Empty(t, pw)
}

func TestSanitize(t *testing.T) {
	cred := testCredential()
	s := Sanitize(cred)

	assert.Equal(t, "s3...rd", s.Password)
	assert.Equal(t, cred.User, s.User)
	assert.Equal(t, "s3cret-password", cred.Password)
	assert.Equal(t, "********", maskString("short"))
	assert.Nil(t, Sanitize(nil))
}

func TestEncryptedFileStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	store, err := NewEncryptedFileStore(path, "test-passphrase")
	require.NoError(t, err)

	cred := testCredential()
	require.NoError(t, store.Store(cred))
	assert.True(t, store.Exists(cred.Key()))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), "s3cret-password")

	// A second store with the same passphrase reads the same file
	reopened, err := NewEncryptedFileStore(path, "test-passphrase")
	require.NoError(t, err)
	got, err := reopened.Retrieve(cred.Key())
	require.NoError(t, err)
	assert.Equal(t, "s3cret-password", got.Password)

	wrong, err := NewEncryptedFileStore(path, "other-passphrase")
	require.NoError(t, err)
	_, err = wrong.Retrieve(cred.Key())
	assert.Error(t, err)

	require.NoError(t, store.Delete(cred.Key()))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.ErrorIs(t, store.Delete(cred.Key()), ErrCredentialsNotFound)
}

func TestEncryptedFileStoreGeneratesPassphrase(t *testing.T) {
	t.Setenv(PassphraseEnv, "")
	dir := t.TempDir()
	path := filepath.Join(dir, "credentials.enc")

	store, err := NewEncryptedFileStore(path, "")
	require.NoError(t, err)
	require.NoError(t, store.Store(testCredential()))

	_, err = os.Stat(filepath.Join(dir, ".passphrase"))
	require.NoError(t, err)

	again, err := NewEncryptedFileStore(path, "")
	require.NoError(t, err)
	assert.True(t, again.Exists(testCredential().Key()))
}

func TestEnvironmentStore(t *testing.T) {
	store := NewEnvironmentStore()

	t.Setenv(PasswordEnv, "")
	assert.False(t, store.Exists("any"))
	_, err := store.Retrieve("any")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	t.Setenv(PasswordEnv, "pgpass")
	got, err := store.Retrieve("any")
	require.NoError(t, err)
	assert.Equal(t, "pgpass", got.Password)

	assert.ErrorIs(t, store.Store(testCredential()), ErrStoreUnavailable)
	assert.ErrorIs(t, store.Delete("any"), ErrStoreUnavailable)
}
