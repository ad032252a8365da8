package auth

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const keyringService = "useretl"

// KeyringStore implements CredentialStore using the system keychain
type KeyringStore struct{}

// NewKeyringStore returns a keyring store, or an error when no keychain is reachable
func NewKeyringStore() (*KeyringStore, error) {
	testKey := "test_availability"
	if err := keyring.Set(keyringService, testKey, "test"); err != nil {
		return nil, fmt.Errorf("keyring not available: %w", err)
	}
	_ = keyring.Delete(keyringService, testKey)

	return &KeyringStore{}, nil
}

// Store saves the credential under its key
func (k *KeyringStore) Store(cred *Credential) error {
	if cred == nil || cred.User == "" {
		return ErrInvalidCredentials
	}

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to marshal credential: %w", err)
	}

	if err := keyring.Set(keyringService, cred.Key(), string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Retrieve gets the credential for key
func (k *KeyringStore) Retrieve(key string) (*Credential, error) {
	if key == "" {
		return nil, ErrInvalidCredentials
	}

	data, err := keyring.Get(keyringService, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, ErrCredentialsNotFound
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}

	var cred Credential
	if err := json.Unmarshal([]byte(data), &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &cred, nil
}

// List is always empty; go-keyring cannot enumerate entries
func (k *KeyringStore) List() ([]*Credential, error) {
	return []*Credential{}, nil
}

// Delete removes the credential for key
func (k *KeyringStore) Delete(key string) error {
	if key == "" {
		return ErrInvalidCredentials
	}

	if err := keyring.Delete(keyringService, key); err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return ErrCredentialsNotFound
		}
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}

// Exists checks if a credential exists in the keychain
func (k *KeyringStore) Exists(key string) bool {
	if key == "" {
		return false
	}
	_, err := keyring.Get(keyringService, key)
	return err == nil
}
