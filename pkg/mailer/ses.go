package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// sesAPI is the part of the SES client the mailer uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESMailer sends mail through Amazon SES.
type SESMailer struct {
	client sesAPI
	from   string
}

// NewSESMailer loads the default AWS credential chain for region.
func NewSESMailer(ctx context.Context, region, from string) (*SESMailer, error) {
	if from == "" {
		return nil, fmt.Errorf("sender email address cannot be empty")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &SESMailer{client: ses.NewFromConfig(cfg), from: from}, nil
}

func (m *SESMailer) Send(ctx context.Context, to, subject, body string) error {
	content := &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")}
	msgBody := &types.Body{Text: content}
	if contentType(body) != "text/plain; charset=UTF-8" {
		msgBody = &types.Body{Html: content}
	}
	_, err := m.client.SendEmail(ctx, &ses.SendEmailInput{
		Source:      aws.String(m.from),
		Destination: &types.Destination{ToAddresses: []string{to}},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body:    msgBody,
		},
	})
	if err != nil {
		return fmt.Errorf("ses send to %s: %w", to, err)
	}
	return nil
}
