package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

func fingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print identity fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := loadIdentity()
			if err != nil {
				return err
			}
			defer kp.Wipe()
			fmt.Printf("Peer ID:    %s\nPublic key: %s\n", kp.PeerID(), kp.Public)
			return nil
		},
	}
	return cmd
}
