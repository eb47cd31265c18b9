package config

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	secretService = "polisight"
	tokenAccount  = "api_token"
)

// Keychain abstracts the platform secret store: macOS Keychain via the
// security CLI, a restricted-permission secrets file elsewhere.
type Keychain interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
}

// NewKeychain returns the platform secret store.
func NewKeychain() Keychain {
	return platformKeychain{}
}

type platformKeychain struct{}

func (platformKeychain) Get(service, account string) (string, error) {
	out, err := keychainGet(service, account)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (platformKeychain) Set(service, account, value string) error {
	return keychainSet(service, account, value)
}

// GetAPIToken returns the bearer token protecting the management API,
// generating and storing a new one on first use.
func GetAPIToken(kc Keychain) (string, error) {
	token, err := kc.Get(secretService, tokenAccount)
	if err == nil && token != "" {
		return token, nil
	}

	token = uuid.New().String()
	if err := kc.Set(secretService, tokenAccount, token); err != nil {
		return "", fmt.Errorf("storing API token: %w", err)
	}
	return token, nil
}
