package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/muurk/webosctl/internal/errs"
	"github.com/muurk/webosctl/internal/protocol"
)

// handshake registers with the display and waits for its client key.
//
// Without a stored key the display shows a prompt and the wait lasts until
// the user answers, ctx ends, or the stream closes.
func (s *Session) handshake(ctx context.Context, l *link) (string, error) {
	replies := make(chan *protocol.Envelope)
	unsubscribe := s.unsolicited.subscribe(replies)
	defer unsubscribe()

	env, err := protocol.NewRegistration(s.ClientKey())
	if err != nil {
		return "", errs.NewAuthError("handshake", "failed to build registration", err)
	}
	data, err := env.Encode()
	if err != nil {
		return "", errs.NewAuthError("handshake", "failed to encode registration", err)
	}

	select {
	case l.outbound <- data:
	case <-l.done:
		return "", pairingFailed(l)
	case <-ctx.Done():
		return "", errs.NewAuthError("handshake", "pairing cancelled", ctx.Err())
	}

	prompted := false
	for {
		select {
		case reply := <-replies:
			if key, ok := reply.ClientKey(); ok {
				return key, nil
			}

			if reply.Type == protocol.KindError && reply.ID == protocol.RegisterID {
				return "", errs.NewAuthError("handshake", "pairing rejected: "+reply.Error, reply.DeviceError())
			}

			if pt, ok := reply.StringField("pairingType"); ok && pt == protocol.PairingPrompt && !prompted {
				prompted = true
				s.log.Info("Waiting for pairing confirmation on the display")
				if s.opts.onPrompt != nil {
					s.opts.onPrompt()
				}
				continue
			}

			s.log.Debug("Ignoring frame during handshake", zap.String("id", reply.ID), zap.String("type", string(reply.Type)))

		case <-l.done:
			return "", pairingFailed(l)

		case <-ctx.Done():
			return "", errs.NewAuthError("handshake", "pairing cancelled", ctx.Err())
		}
	}
}

func pairingFailed(l *link) *errs.Error {
	return errs.NewAuthError("handshake", "pairing failed", fmt.Errorf("%w: %w", errs.ErrPairingFailed, l.err()))
}
