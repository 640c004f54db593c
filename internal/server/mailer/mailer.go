// Package mailer emits account emails. Delivery is not implemented: links
// are written to the log.
package mailer

import (
	"context"
	"net/url"
	"strings"

	"github.com/dmitrijs2005/contacts/internal/logging"
)

type Mailer interface {
	SendVerification(ctx context.Context, email, link string) error
	SendPasswordReset(ctx context.Context, email, link string) error
}

// LogMailer logs each message instead of sending it.
type LogMailer struct {
	logger logging.Logger
}

func NewLogMailer(logger logging.Logger) *LogMailer {
	return &LogMailer{logger: logger.With("module", "mailer")}
}

func (m *LogMailer) SendVerification(ctx context.Context, email, link string) error {
	m.logger.Info(ctx, "verification email", "to", email, "link", link)
	return nil
}

func (m *LogMailer) SendPasswordReset(ctx context.Context, email, link string) error {
	m.logger.Info(ctx, "password reset email", "to", email, "link", link)
	return nil
}

// Link joins base and path and appends token as a query parameter.
func Link(base, path, token string) string {
	return strings.TrimRight(base, "/") + path + "?token=" + url.QueryEscape(token)
}
