// Command mailcheck sends one test email through the configured mail backend.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"rentshare-backend-go/internal/config"
	"rentshare-backend-go/pkg/mailer"
)

const testBody = `<html>
  <body>
    <h1>RentShare mail check</h1>
    <p>If you can read this, password reset and verification emails will be delivered.</p>
  </body>
</html>`

func main() {
	to := flag.String("to", "", "recipient address")
	flag.Parse()

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("CRITICAL_ERROR: Failed to initialize Zap logger: %v", err)
	}
	defer logger.Sync()

	if *to == "" {
		logger.Fatal("-to is required")
	}
	appConfig, err := config.LoadConfig()
	if err != nil {
		logger.Fatal("Failed to load application configuration", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	m, err := mailer.New(ctx, mailer.Options{
		Backend: appConfig.MailBackend,
		SMTP: mailer.SMTPConfig{
			Host:     appConfig.SMTPHost,
			Port:     appConfig.SMTPPort,
			Username: appConfig.SMTPUser,
			Password: appConfig.SMTPPass,
			From:     appConfig.MailFrom,
		},
		SESRegion: appConfig.SESRegion,
	})
	if err != nil {
		logger.Fatal("Failed to build mailer", zap.String("backend", appConfig.MailBackend), zap.Error(err))
	}

	logger.Info("Sending test email", zap.String("to", *to), zap.String("backend", appConfig.MailBackend))
	if err := m.Send(ctx, *to, "RentShare mail check", testBody); err != nil {
		logger.Fatal("Error sending email", zap.Error(err))
	}
	logger.Info("Email accepted by the mail backend")
}
