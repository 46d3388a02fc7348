package commands

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/TheusHen/securelink/securelink/crypto"
	"github.com/TheusHen/securelink/securelink/session"
)

// config holds settings read from .env and SECURELINK_* variables. Flags
// are registered with these values as defaults, so flags win.
type config struct {
	Key        string
	Passphrase string
	Listen     string
	Advertise  string
	Cipher     string
	KDF        string
	Peers      string
	Timeout    time.Duration
	Compress   bool
	LogLevel   string
}

func loadConfig() config {
	_ = godotenv.Load()

	return config{
		Key:        envOrDefault("SECURELINK_KEY", defaultKeyPath()),
		Passphrase: os.Getenv("SECURELINK_PASSPHRASE"),
		Listen:     envOrDefault("SECURELINK_LISTEN", "127.0.0.1:7400"),
		Advertise:  os.Getenv("SECURELINK_ADVERTISE"),
		Cipher:     envOrDefault("SECURELINK_CIPHER", crypto.DefaultVariant.String()),
		KDF:        envOrDefault("SECURELINK_KDF", session.KeyDerivationRaw.String()),
		Peers:      os.Getenv("SECURELINK_PEERS"),
		Timeout:    envDurationOrDefault("SECURELINK_TIMEOUT", session.DefaultHandshakeTimeout),
		Compress:   os.Getenv("SECURELINK_COMPRESS") == "1",
		LogLevel:   envOrDefault("SECURELINK_LOG_LEVEL", "info"),
	}
}

func defaultKeyPath() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return "identity.key"
	}
	return filepath.Join(dir, ".securelink", "identity.key")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOrDefault(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func (c config) sessionOptions() (session.Options, error) {
	v, err := crypto.ParseVariant(c.Cipher)
	if err != nil {
		return session.Options{}, err
	}
	var kdf session.KeyDerivation
	switch c.KDF {
	case session.KeyDerivationRaw.String():
		kdf = session.KeyDerivationRaw
	case session.KeyDerivationHKDF.String():
		kdf = session.KeyDerivationHKDF
	default:
		return session.Options{}, fmt.Errorf("unknown key derivation %q (raw or hkdf)", c.KDF)
	}
	return session.Options{
		Cipher:           v,
		KeyDerivation:    kdf,
		HandshakeTimeout: c.Timeout,
		Compress:         c.Compress,
	}, nil
}

func (c config) logger() *slog.Logger {
	var level slog.Level
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}
