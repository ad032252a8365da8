package auth

import (
	"os"
	"time"
)

// PasswordEnv is the libpq password variable read by EnvironmentStore
const PasswordEnv = "PGPASSWORD"

// EnvironmentStore serves the PGPASSWORD variable for any key. It is read-only.
type EnvironmentStore struct{}

// NewEnvironmentStore creates a new environment-based credential store
func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve returns PGPASSWORD for key, or ErrCredentialsNotFound when unset
func (e *EnvironmentStore) Retrieve(key string) (*Credential, error) {
	password := os.Getenv(PasswordEnv)
	if password == "" {
		return nil, ErrCredentialsNotFound
	}

	return &Credential{
		User:         os.Getenv("PGUSER"),
		Host:         os.Getenv("PGHOST"),
		Database:     os.Getenv("PGDATABASE"),
		Password:     password,
		LastModified: time.Now(),
	}, nil
}

// List is empty: the environment does not name a key
func (e *EnvironmentStore) List() ([]*Credential, error) {
	return []*Credential{}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(key string) error {
	return ErrStoreUnavailable
}

// Exists reports whether PGPASSWORD is set
func (e *EnvironmentStore) Exists(key string) bool {
	return os.Getenv(PasswordEnv) != ""
}
