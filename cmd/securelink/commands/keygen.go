package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/TheusHen/securelink/securelink/identity"
	"github.com/TheusHen/securelink/securelink/keystore"
)

func keygenCmd() *cobra.Command {
	var (
		useScrypt bool
		force     bool
	)
	cmd := &cobra.Command{
		Use:   "keygen",
		Short: "Generate an identity key pair and store it encrypted",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requirePassphrase(); err != nil {
				return err
			}
			if !force && !strings.HasPrefix(cfg.Key, keystore.ShardPrefix) {
				if _, err := os.Stat(cfg.Key); err == nil {
					return fmt.Errorf("%s exists; use --force to replace it", cfg.Key)
				}
			}

			params := keystore.DefaultKDF()
			if useScrypt {
				params = keystore.ScryptKDF()
			}
			st, err := keystore.Open(cfg.Key, params)
			if err != nil {
				return err
			}
			if !strings.HasPrefix(cfg.Key, keystore.ShardPrefix) {
				if err := os.MkdirAll(filepath.Dir(cfg.Key), 0o700); err != nil {
					return err
				}
			}

			kp, err := identity.Generate()
			if err != nil {
				return err
			}
			defer kp.Wipe()
			if err := st.Save(kp, cfg.Passphrase); err != nil {
				return err
			}
			fmt.Printf("Identity created.\nPeer ID:    %s\nPublic key: %s\n", kp.PeerID(), kp.Public)
			return nil
		},
	}
	cmd.Flags().BoolVar(&useScrypt, "scrypt", false, "derive the key file key with scrypt instead of argon2id")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing key file")
	return cmd
}
