package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"useretl/pkg/config"
)

// Credential is a stored database password
type Credential struct {
	User         string    `json:"user"`
	Host         string    `json:"host"`
	Port         int       `json:"port"`
	Database     string    `json:"database"`
	Password     string    `json:"password"`
	LastModified time.Time `json:"last_modified"`
}

// Key identifies the credential as user@host:port/database
func (c *Credential) Key() string {
	return fmt.Sprintf("%s@%s:%d/%s", c.User, c.Host, c.Port, c.Database)
}

// KeyFor returns the credential key for a database configuration
func KeyFor(cfg *config.DatabaseConfig) string {
	c := Credential{User: cfg.User, Host: cfg.Host, Port: cfg.Port, Database: cfg.Database}
	return c.Key()
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	// Store saves a credential under its key
	Store(cred *Credential) error

	// Retrieve gets the credential for a key
	Retrieve(key string) (*Credential, error)

	// List returns all stored credentials
	List() ([]*Credential, error)

	// Delete removes the credential for a key
	Delete(key string) error

	// Exists checks if a credential exists for a key
	Exists(key string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager creates a credential manager backed by the system keychain when
// available, an encrypted file, and the PGPASSWORD environment variable
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}

	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"), "")
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores creates a manager over the given stores, tried in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store saves the credential using the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if cred == nil || cred.User == "" || cred.Host == "" {
		return ErrInvalidCredentials
	}
	if cred.Password == "" {
		return errors.New("password is required")
	}

	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		if err := store.Store(cred); err == nil {
			return nil
		} else {
			lastErr = err
		}
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets the credential from the first store that has it
func (m *Manager) Retrieve(key string) (*Credential, error) {
	for _, store := range m.stores {
		if cred, err := store.Retrieve(key); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrCredentialsNotFound, key)
}

// List returns credentials from all stores, newest copy per key
func (m *Manager) List() ([]*Credential, error) {
	byKey := make(map[string]*Credential)

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			if existing, ok := byKey[cred.Key()]; !ok || cred.LastModified.After(existing.LastModified) {
				byKey[cred.Key()] = cred
			}
		}
	}

	result := make([]*Credential, 0, len(byKey))
	for _, cred := range byKey {
		result = append(result, cred)
	}
	return result, nil
}

// Delete removes the credential from every store that holds it
func (m *Manager) Delete(key string) error {
	var deleted bool
	var lastErr error

	for _, store := range m.stores {
		if err := store.Delete(key); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrCredentialsNotFound) && !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w: %s", ErrCredentialsNotFound, key)
}

// ResolvePassword returns the password to connect with: the configured one if
// set, otherwise the stored credential for the database key when the keyring
// is enabled. A missing stored credential yields an empty password.
func (m *Manager) ResolvePassword(cfg *config.DatabaseConfig) (string, error) {
	if cfg.Password != "" {
		return cfg.Password, nil
	}
	if !cfg.UseKeyring {
		return "", nil
	}

	cred, err := m.Retrieve(KeyFor(cfg))
	if err != nil {
		if errors.Is(err, ErrCredentialsNotFound) {
			return "", nil
		}
		return "", err
	}
	return cred.Password, nil
}

// ConfigDir returns the per-user configuration directory, creating it
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "useretl")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "useretl")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "useretl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "useretl")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	return configDir, nil
}

// Sanitize returns a copy of cred with the password masked
func Sanitize(cred *Credential) *Credential {
	if cred == nil {
		return nil
	}
	c := *cred
	c.Password = maskString(cred.Password)
	return &c
}

// maskString masks all but the first 2 and last 2 characters of a string
func maskString(s string) string {
	if len(s) <= 6 {
		return strings.Repeat("*", 8)
	}
	return s[:2] + "..." + s[len(s)-2:]
}

// Errors
var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
