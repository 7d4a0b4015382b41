package mail

import (
	"context"
	"fmt"

	"github.com/kursadbilgin/index-notifier/internal/domain"
	"go.uber.org/zap"
)

// Sender delivers a composed message.
type Sender interface {
	Send(ctx context.Context, from string, to []string, msg []byte) error
}

// Mailer composes a run report and hands it to a Sender.
type Mailer struct {
	composer *Composer
	sender   Sender
	logger   *zap.Logger
}

func NewMailer(composer *Composer, sender Sender, logger *zap.Logger) (*Mailer, error) {
	if composer == nil {
		return nil, fmt.Errorf("composer is required")
	}
	if sender == nil {
		return nil, fmt.Errorf("sender is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Mailer{
		composer: composer,
		sender:   sender,
		logger:   logger,
	}, nil
}

func (m *Mailer) SendReport(ctx context.Context, report domain.RunReport) error {
	msg, err := m.composer.Compose(report)
	if err != nil {
		return err
	}

	subject := Subject(report)
	if err := m.sender.Send(ctx, m.composer.From(), m.composer.Recipients(), msg); err != nil {
		return fmt.Errorf("send report %q: %w", subject, err)
	}

	m.logger.Debug("report mail submitted",
		zap.String("subject", subject),
		zap.Strings("to", m.composer.Recipients()),
	)
	return nil
}
