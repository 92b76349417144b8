package mailer

import (
	"context"
	"fmt"
)

// Mailer is implemented by SMTPMailer and SESMailer.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Options selects and configures a backend.
type Options struct {
	Backend   string // "smtp" or "ses"
	SMTP      SMTPConfig
	SESRegion string
}

// New builds the mailer named by opts.Backend.
func New(ctx context.Context, opts Options) (Mailer, error) {
	switch opts.Backend {
	case "", "smtp":
		m, err := NewSMTPMailer(opts.SMTP)
		if err != nil {
			return nil, err
		}
		return m, nil
	case "ses":
		m, err := NewSESMailer(ctx, opts.SESRegion, opts.SMTP.From)
		if err != nil {
			return nil, err
		}
		return m, nil
	}
	return nil, fmt.Errorf("unknown mail backend %q", opts.Backend)
}
