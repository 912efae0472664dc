package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

type ServerConfig struct {
	Port            int    `toml:"port"`
	LogLevel        string `toml:"log_level"`
	UsernameIsEmail bool   `toml:"username_is_email"`
}

type IMAPConfig struct {
	Server string `toml:"server"`
	Port   int    `toml:"port"`
}

type FetchConfig struct {
	Window      uint32 `toml:"window"`       // max headers per FETCH
	NewestFirst bool   `toml:"newest_first"` // window direction when the mailbox is larger
	UseEnvelope bool   `toml:"use_envelope"` // envelope form vs individual header lines
}

type ThreadingConfig struct {
	UseServerThread bool `toml:"use_server_thread"` // delegate to the server's THREAD=REFERENCES
	GatherSubjects  bool `toml:"gather_subjects"`   // group root siblings by base subject
}

type CacheConfig struct {
	TTLSeconds int `toml:"ttl_seconds"`
}

type EncryptionConfig struct {
	Key string `toml:"key"` // AES key for session credential encryption
}

type Config struct {
	Server     ServerConfig     `toml:"server"`
	IMAP       IMAPConfig       `toml:"imap"`
	Fetch      FetchConfig      `toml:"fetch"`
	Threading  ThreadingConfig  `toml:"threading"`
	Cache      CacheConfig      `toml:"cache"`
	Encryption EncryptionConfig `toml:"encryption"`
}

func LoadConfig(filepath string) (*Config, error) {
	var config Config

	// Set default values
	config.Server.Port = 3000
	config.Server.LogLevel = "info"
	config.Server.UsernameIsEmail = true
	config.IMAP.Port = 993
	config.Fetch.Window = 500
	config.Fetch.NewestFirst = true
	config.Fetch.UseEnvelope = true
	config.Threading.GatherSubjects = true
	config.Cache.TTLSeconds = 60

	// Load config file
	_, err := toml.DecodeFile(filepath, &config)
	if err != nil {
		return nil, err
	}

	if config.IMAP.Server == "" {
		return nil, fmt.Errorf("imap server is required")
	}
	if config.Fetch.Window == 0 {
		return nil, fmt.Errorf("fetch window must be positive")
	}
	switch len(config.Encryption.Key) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("encryption key must be 16, 24 or 32 bytes, got %d", len(config.Encryption.Key))
	}

	return &config, nil
}

// Reloader hands out the current configuration, re-reading the file lazily
// when its modification time changes. Callers that need a reload-aware
// setting (like the threading toggle) must go through Current on every use
// instead of caching the config for the process lifetime.
type Reloader struct {
	path        string
	fallbackKey string
	mu          sync.Mutex
	mtime       time.Time
	cfg         *Config
}

// NewReloader loads the file once and tracks it for changes. A config
// without an encryption key gets a random per-process key so sessions work
// out of the box; those sessions do not survive a restart.
func NewReloader(filepath string) (*Reloader, error) {
	cfg, err := LoadConfig(filepath)
	if err != nil {
		return nil, err
	}
	key, err := ephemeralKey()
	if err != nil {
		return nil, err
	}
	r := &Reloader{path: filepath, fallbackKey: key, cfg: cfg}
	if cfg.Encryption.Key == "" {
		cfg.Encryption.Key = r.fallbackKey
	}
	if info, err := os.Stat(filepath); err == nil {
		r.mtime = info.ModTime()
	}
	return r, nil
}

// ephemeralKey returns a random 32-character hex string, a valid AES-256 key.
func ephemeralKey() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// Current returns the latest configuration snapshot. A failed re-read keeps
// the previous snapshot; the returned value must not be modified.
func (r *Reloader) Current() *Config {
	r.mu.Lock()
	defer r.mu.Unlock()

	info, err := os.Stat(r.path)
	if err != nil || !info.ModTime().After(r.mtime) {
		return r.cfg
	}
	if cfg, err := LoadConfig(r.path); err == nil {
		if cfg.Encryption.Key == "" {
			cfg.Encryption.Key = r.fallbackKey
		}
		r.cfg = cfg
	}
	r.mtime = info.ModTime()
	return r.cfg
}
