//go:build !darwin

package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// xdgPath resolves envVar (e.g. XDG_CONFIG_HOME) with the given home-relative
// fallback and appends the polisight subpath elements.
func xdgPath(envVar string, fallback []string, elem ...string) string {
	dir := os.Getenv(envVar)
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			dir = "."
		} else {
			dir = filepath.Join(append([]string{home}, fallback...)...)
		}
	}
	return filepath.Join(append([]string{dir, "polisight"}, elem...)...)
}

func defaultDataDir() string {
	return xdgPath("XDG_DATA_HOME", []string{".local", "share"})
}

func configFilePath() string {
	return xdgPath("XDG_CONFIG_HOME", []string{".config"}, "config.json")
}

// fileBackend keeps config as a flat JSON object. Numbers are decoded as
// json.Number so integer values survive the round trip exactly.
type fileBackend struct {
	path string
	data map[string]any
}

func newPlatformBackend() Backend {
	b := &fileBackend{path: configFilePath(), data: make(map[string]any)}
	raw, err := os.ReadFile(b.path)
	if err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "[WARN] could not read config file %s: %v. Using default values.\n", b.path, err)
		}
		return b
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&b.data); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] could not parse config file %s: %v. Using default values.\n", b.path, err)
		b.data = make(map[string]any)
	}
	return b
}

func (b *fileBackend) flush() error {
	if err := os.MkdirAll(filepath.Dir(b.path), 0o700); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}
	data, err := json.MarshalIndent(b.data, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(b.path, data, 0o600)
}

func (b *fileBackend) GetString(key string) (string, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return "", false, nil
	}
	if s, ok := v.(string); ok {
		return s, true, nil
	}
	return fmt.Sprintf("%v", v), true, nil
}

func (b *fileBackend) GetInt(key string) (int, bool, error) {
	v, ok := b.data[key]
	if !ok {
		return 0, false, nil
	}
	var s string
	switch val := v.(type) {
	case json.Number:
		s = val.String()
	case string:
		s = val
	default:
		return 0, true, fmt.Errorf("invalid type for %s", key)
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, true, fmt.Errorf("invalid integer for %s: %w", key, err)
	}
	return i, true, nil
}

func (b *fileBackend) SetString(key, val string) error {
	b.data[key] = val
	return b.flush()
}

func (b *fileBackend) SetInt(key string, val int) error {
	b.data[key] = json.Number(strconv.Itoa(val))
	return b.flush()
}

func (b *fileBackend) Delete(key string) error {
	delete(b.data, key)
	return b.flush()
}
