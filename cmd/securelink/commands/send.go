package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/TheusHen/securelink/securelink"
	"github.com/TheusHen/securelink/securelink/identity"
	"github.com/TheusHen/securelink/securelink/session"
)

// send <peer> <message>: handshake with <peer> and deliver one message.
// <peer> is host:port or a peer ID listed in the peers file.
func sendCmd() *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "send <peer> <message>",
		Short: "Encrypt and send a message to a peer",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kp, err := loadIdentity()
			if err != nil {
				return err
			}

			replies := make(chan *session.Session, 1)
			conf := securelink.Config{}
			if wait > 0 {
				conf.OnMessage = func(s *session.Session) {
					select {
					case replies <- s:
					default:
					}
				}
			}
			p, err := newPeer(kp, conf)
			if err != nil {
				return err
			}
			defer p.Close()
			if wait > 0 {
				if err := p.Listen(cfg.Listen); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s, err := dial(ctx, p, args[0])
			if err != nil {
				return err
			}
			seq, err := s.Send(ctx, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Printf("sent #%d\n", seq)

			if wait <= 0 {
				return nil
			}
			select {
			case s := <-replies:
				printMessages(s)
			case <-time.After(wait):
				fmt.Println("no reply")
			}
			return nil
		},
	}
	addPeerFlags(cmd)
	cmd.Flags().DurationVar(&wait, "wait", 0, "listen and wait this long for a reply")
	return cmd
}

func dial(ctx context.Context, p *securelink.Peer, target string) (*session.Session, error) {
	if id, err := identity.ParsePeerIDHex(target); err == nil {
		return p.ConnectPeer(ctx, id)
	}
	return p.Connect(ctx, target)
}
