package config

// Backend abstracts platform config storage: macOS UserDefaults through the
// `defaults` CLI, an XDG-compatible JSON file everywhere else. Absent keys
// report ok=false rather than an error so callers can fall through to
// defaults.
type Backend interface {
	GetString(key string) (val string, ok bool, err error)
	GetInt(key string) (val int, ok bool, err error)
	SetString(key, val string) error
	SetInt(key string, val int) error
	Delete(key string) error
}
