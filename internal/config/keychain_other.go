//go:build !darwin

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Non-macOS platforms keep secrets in a restricted-permission JSON file
// under XDG_DATA_HOME, keyed "service/account".

func secretsFilePath() string {
	return xdgPath("XDG_DATA_HOME", []string{".local", "share"}, "secrets.json")
}

func readSecrets() (map[string]string, error) {
	secrets := make(map[string]string)
	data, err := os.ReadFile(secretsFilePath())
	if os.IsNotExist(err) {
		return secrets, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(data, &secrets); err != nil {
		return nil, fmt.Errorf("parsing secrets file: %w", err)
	}
	return secrets, nil
}

func keychainGet(service, account string) ([]byte, error) {
	secrets, err := readSecrets()
	if err != nil {
		return nil, fmt.Errorf("keychain not available: %w", err)
	}
	val, ok := secrets[service+"/"+account]
	if !ok {
		return nil, fmt.Errorf("no secret stored for %s/%s", service, account)
	}
	return []byte(val), nil
}

func keychainSet(service, account, value string) error {
	secrets, err := readSecrets()
	if err != nil {
		return err
	}
	secrets[service+"/"+account] = value

	p := secretsFilePath()
	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return fmt.Errorf("creating secrets dir: %w", err)
	}
	out, err := json.MarshalIndent(secrets, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(p, out, 0o600)
}
