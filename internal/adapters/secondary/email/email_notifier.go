package email

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/raviro/statuspage-backend/internal/config"
	"github.com/raviro/statuspage-backend/internal/core/ports"
)

// SMTPNotifier is a secondary adapter that emails status notifications to
// organization members. It implements the ports.Notifier interface.
type SMTPNotifier struct {
	cfg      config.SMTPConfig
	userRepo ports.UserRepository
	logger   *slog.Logger
}

// NewSMTPNotifier creates a notifier that sends through the configured SMTP
// relay. It requires a UserRepository to resolve recipient addresses.
func NewSMTPNotifier(cfg config.SMTPConfig, userRepo ports.UserRepository, logger *slog.Logger) ports.Notifier {
	return &SMTPNotifier{
		cfg:      cfg,
		userRepo: userRepo,
		logger:   logger.With("component", "email_notifier"),
	}
}

// Notify sends one notification email. It is called on its own goroutine and
// handles its own errors; a failed send is logged, never surfaced to the
// mutation that triggered it.
func (n *SMTPNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	// The request that triggered the notification may already be finished.
	notifyCtx := context.Background()

	user, err := n.userRepo.GetByID(notifyCtx, params.RecipientUserID)
	if err != nil {
		n.logger.Error("failed to resolve notification recipient",
			"user_id", params.RecipientUserID,
			"error", err,
		)
		return
	}

	msg := fmt.Sprintf(
		"From: %s <%s>\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s\r\n",
		n.cfg.FromName, n.cfg.From, user.Email, params.Subject, params.Message,
	)

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, n.cfg.From, []string{user.Email}, []byte(msg)); err != nil {
		n.logger.Error("failed to send notification email",
			"to_email", user.Email,
			"subject", params.Subject,
			"error", err,
		)
		return
	}

	n.logger.Info("notification email sent",
		"to_email", user.Email,
		"subject", params.Subject,
		"org_id", params.OrganizationID,
	)
}

// LogNotifier logs notifications instead of emailing them. It stands in for
// the SMTP adapter when no relay is configured, local development included.
type LogNotifier struct {
	userRepo ports.UserRepository
	logger   *slog.Logger
}

// NewLogNotifier creates the logging fallback notifier.
func NewLogNotifier(userRepo ports.UserRepository, logger *slog.Logger) ports.Notifier {
	return &LogNotifier{
		userRepo: userRepo,
		logger:   logger.With("component", "email_notifier"),
	}
}

// Notify logs the notification to the console instead of sending an email.
func (n *LogNotifier) Notify(ctx context.Context, params ports.NotificationParams) {
	notifyCtx := context.Background()

	user, err := n.userRepo.GetByID(notifyCtx, params.RecipientUserID)
	if err != nil {
		n.logger.Error("failed to resolve notification recipient",
			"user_id", params.RecipientUserID,
			"error", err,
		)
		return
	}

	n.logger.Info("notification email skipped, no SMTP relay configured",
		"to_name", user.FullName,
		"to_email", user.Email,
		"subject", params.Subject,
		"org_id", params.OrganizationID,
	)
}
