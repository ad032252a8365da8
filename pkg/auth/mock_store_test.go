package auth

import "sync"

// mockStore is an in-memory CredentialStore with error injection
type mockStore struct {
	creds map[string]Credential
	mu    sync.RWMutex

	StoreError    error
	RetrieveError error
	ListError     error
	DeleteError   error
}

func newMockStore() *mockStore {
	return &mockStore{creds: make(map[string]Credential)}
}

func (m *mockStore) Store(cred *Credential) error {
	if m.StoreError != nil {
		return m.StoreError
	}
	if cred == nil || cred.User == "" {
		return ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.creds[cred.Key()] = *cred
	return nil
}

func (m *mockStore) Retrieve(key string) (*Credential, error) {
	if m.RetrieveError != nil {
		return nil, m.RetrieveError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	cred, ok := m.creds[key]
	if !ok {
		return nil, ErrCredentialsNotFound
	}
	return &cred, nil
}

func (m *mockStore) List() ([]*Credential, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Credential
	for _, cred := range m.creds {
		c := cred
		out = append(out, &c)
	}
	return out, nil
}

func (m *mockStore) Delete(key string) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.creds[key]; !ok {
		return ErrCredentialsNotFound
	}
	delete(m.creds, key)
	return nil
}

func (m *mockStore) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.creds[key]
	return ok
}

func (m *mockStore) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.creds)
}
