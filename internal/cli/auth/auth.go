package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	service = "taskdeck-cli"
)

// ErrNotAuthenticated is returned when no credentials are stored for a server.
var ErrNotAuthenticated = errors.New("not authenticated. Please run 'taskdeck login' first")

// Credentials is the access/refresh token pair for one server.
type Credentials struct {
	AccessToken  string
	RefreshToken string
}

func accessKey(serverIP string) string {
	return fmt.Sprintf("access-%s", serverIP)
}

func refreshKey(serverIP string) string {
	return fmt.Sprintf("refresh-%s", serverIP)
}

// SaveCredentials persists both tokens in the OS keychain/credential
// manager, overwriting any prior values.
func SaveCredentials(serverIP string, creds Credentials) error {
	if err := keyring.Set(service, accessKey(serverIP), creds.AccessToken); err != nil {
		return fmt.Errorf("failed to save access token: %w", err)
	}
	if err := keyring.Set(service, refreshKey(serverIP), creds.RefreshToken); err != nil {
		return fmt.Errorf("failed to save refresh token: %w", err)
	}
	return nil
}

// LoadCredentials retrieves the token pair from the OS keychain/credential
// manager. Returns ErrNotAuthenticated when nothing is stored.
func LoadCredentials(serverIP string) (Credentials, error) {
	access, err := keyring.Get(service, accessKey(serverIP))
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return Credentials{}, ErrNotAuthenticated
		}
		return Credentials{}, fmt.Errorf("failed to load access token: %w", err)
	}

	refresh, err := keyring.Get(service, refreshKey(serverIP))
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return Credentials{}, fmt.Errorf("failed to load refresh token: %w", err)
	}

	return Credentials{AccessToken: access, RefreshToken: refresh}, nil
}

// ClearCredentials removes both tokens from the OS keychain/credential
// manager. Clearing credentials that are already gone is not an error.
func ClearCredentials(serverIP string) error {
	if err := keyring.Delete(service, accessKey(serverIP)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete access token: %w", err)
	}
	if err := keyring.Delete(service, refreshKey(serverIP)); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}
