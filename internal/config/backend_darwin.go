//go:build darwin

package config

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

const defaultsDomain = "com.polisight.app"

func defaultDataDir() string {
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, "Library", "Application Support", "polisight")
	}
	return "polisight-data"
}

// defaultsBackend reads and writes UserDefaults with the `defaults` CLI.
// `defaults read` exits 1 for a missing key, which maps to ok=false.
type defaultsBackend struct {
	domain string
}

func newPlatformBackend() Backend {
	return &defaultsBackend{domain: defaultsDomain}
}

func (b *defaultsBackend) defaults(args ...string) (string, error) {
	out, err := exec.Command("defaults", args...).CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

func (b *defaultsBackend) read(key string) (string, bool, error) {
	s, err := b.defaults("read", b.domain, key)
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && exitErr.ExitCode() == 1 {
			return "", false, nil
		}
		return "", false, fmt.Errorf("defaults read %s.%s: %w (%s)", b.domain, key, err, s)
	}
	return s, true, nil
}

func (b *defaultsBackend) GetString(key string) (string, bool, error) {
	return b.read(key)
}

func (b *defaultsBackend) GetInt(key string) (int, bool, error) {
	s, ok, err := b.read(key)
	if !ok || err != nil {
		return 0, ok, err
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

func (b *defaultsBackend) SetString(key, val string) error {
	_, err := b.defaults("write", b.domain, key, "-string", val)
	return err
}

func (b *defaultsBackend) SetInt(key string, val int) error {
	_, err := b.defaults("write", b.domain, key, "-int", strconv.Itoa(val))
	return err
}

func (b *defaultsBackend) Delete(key string) error {
	_, err := b.defaults("delete", b.domain, key)
	return err
}
