package commands

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/TheusHen/securelink/securelink"
	"github.com/TheusHen/securelink/securelink/discovery"
	"github.com/TheusHen/securelink/securelink/discovery/memory"
	"github.com/TheusHen/securelink/securelink/identity"
	"github.com/TheusHen/securelink/securelink/keystore"
)

var (
	cfg    config
	logger *slog.Logger
)

func Execute() error {
	cfg = loadConfig()

	root := &cobra.Command{
		Use:          "securelink",
		Short:        "Authenticated encrypted messaging between peers",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			logger = cfg.logger()
			slog.SetDefault(logger)
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&cfg.Key, "key", cfg.Key, "key file, or shards:dir1,dir2,... (SECURELINK_KEY)")
	pf.StringVarP(&cfg.Passphrase, "passphrase", "p", cfg.Passphrase, "passphrase protecting the key (SECURELINK_PASSPHRASE)")
	pf.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error (SECURELINK_LOG_LEVEL)")

	root.AddCommand(keygenCmd(), fingerprintCmd(), listenCmd(), sendCmd())
	return root.Execute()
}

func requirePassphrase() error {
	if cfg.Passphrase == "" {
		return errors.New("passphrase required (-p or SECURELINK_PASSPHRASE)")
	}
	return nil
}

func loadIdentity() (identity.KeyPair, error) {
	if err := requirePassphrase(); err != nil {
		return identity.KeyPair{}, err
	}
	return keystore.Load(cfg.Key, cfg.Passphrase)
}

// newPeer builds a Peer from the current configuration.
func newPeer(kp identity.KeyPair, conf securelink.Config) (*securelink.Peer, error) {
	opts, err := cfg.sessionOptions()
	if err != nil {
		return nil, err
	}
	resolver, err := loadResolver(cfg.Peers)
	if err != nil {
		return nil, err
	}
	conf.Session = opts
	conf.Resolver = resolver
	conf.AdvertiseHost = cfg.Advertise
	conf.Logger = logger
	return securelink.NewPeer(kp, conf), nil
}

// loadResolver fills an in-memory directory from a peers file, if any.
func loadResolver(path string) (discovery.Resolver, error) {
	dir := memory.New(0)
	if path == "" {
		return dir, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	list, err := discovery.ParseAddrList(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, info := range list {
		if err := dir.Announce(info); err != nil {
			return nil, err
		}
	}
	return dir, nil
}
