package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/TheusHen/securelink/securelink"
	"github.com/TheusHen/securelink/securelink/session"
)

// listen: accept handshakes and print every message received.
func listenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Wait for peers and print the messages they send",
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := loadIdentity()
			if err != nil {
				return err
			}
			p, err := newPeer(kp, securelink.Config{OnMessage: printMessages})
			if err != nil {
				return err
			}
			if err := p.Listen(cfg.Listen); err != nil {
				return err
			}
			defer p.Close()
			fmt.Printf("Listening on %s as %s\n", p.ListenAddr(), kp.PeerID())

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			<-ctx.Done()
			return nil
		},
	}
	addPeerFlags(cmd)
	return cmd
}

func printMessages(s *session.Session) {
	id, _ := s.RemotePeerID()
	for {
		text, ok := s.Pop()
		if !ok {
			return
		}
		fmt.Printf("[%s] %s\n", id.Short(), text)
	}
}

// addPeerFlags registers the flags shared by commands that run a Peer.
func addPeerFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&cfg.Listen, "listen", cfg.Listen, "UDP address to listen on (SECURELINK_LISTEN)")
	f.StringVar(&cfg.Advertise, "advertise", cfg.Advertise, "host placed in handshakes instead of the listen IP (SECURELINK_ADVERTISE)")
	f.StringVar(&cfg.Cipher, "cipher", cfg.Cipher, "chacha20-poly1305 or aes-256-gcm (SECURELINK_CIPHER)")
	f.StringVar(&cfg.KDF, "kdf", cfg.KDF, "session key derivation: raw or hkdf; both peers must agree (SECURELINK_KDF)")
	f.StringVar(&cfg.Peers, "peers", cfg.Peers, "peers file: <public key> <host:port> per line (SECURELINK_PEERS)")
	f.DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "handshake timeout (SECURELINK_TIMEOUT)")
	f.BoolVar(&cfg.Compress, "compress", cfg.Compress, "LZ4-compress messages when smaller (SECURELINK_COMPRESS=1)")
}
