package auth

// TokenStore defines the interface for credential storage operations.
// This allows us to mock the keyring in tests.
type TokenStore interface {
	Save(serverIP string, creds Credentials) error
	Load(serverIP string) (Credentials, error)
	Clear(serverIP string) error
}

// keyringTokenStore implements TokenStore using the OS keyring.
type keyringTokenStore struct{}

var Default TokenStore = &keyringTokenStore{}

func (k *keyringTokenStore) Save(serverIP string, creds Credentials) error {
	return SaveCredentials(serverIP, creds)
}

func (k *keyringTokenStore) Load(serverIP string) (Credentials, error) {
	return LoadCredentials(serverIP)
}

func (k *keyringTokenStore) Clear(serverIP string) error {
	return ClearCredentials(serverIP)
}

// MemoryTokenStore is an in-memory TokenStore for tests and for
// environments without a usable keyring (e.g. headless CI).
type MemoryTokenStore struct {
	creds map[string]Credentials
}

// NewMemoryTokenStore creates an empty in-memory store.
func NewMemoryTokenStore() *MemoryTokenStore {
	return &MemoryTokenStore{creds: make(map[string]Credentials)}
}

func (m *MemoryTokenStore) Save(serverIP string, creds Credentials) error {
	m.creds[serverIP] = creds
	return nil
}

func (m *MemoryTokenStore) Load(serverIP string) (Credentials, error) {
	creds, ok := m.creds[serverIP]
	if !ok {
		return Credentials{}, ErrNotAuthenticated
	}
	return creds, nil
}

func (m *MemoryTokenStore) Clear(serverIP string) error {
	delete(m.creds, serverIP)
	return nil
}
