// Package notify holds development implementations of the outbound
// notification sinks. Production deployments inject real email/SMS gateway
// clients through the same interfaces.
package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/relaychat/auth-service/domain"
)

// LogSender writes confirmation codes to the log instead of delivering
// them. Dev and test use only.
type LogSender struct {
	Channel string
}

// SendConfirmationCode implements domain.ConfirmationSender.
func (s *LogSender) SendConfirmationCode(_ context.Context, destination, code string) error {
	log.Info().
		Str("channel", s.Channel).
		Str("destination", destination).
		Str("code", code).
		Msg("confirmation code dispatched")
	return nil
}

var _ domain.ConfirmationSender = (*LogSender)(nil)
