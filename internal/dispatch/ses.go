package dispatch

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/getlisted/claim-engine/internal/pkg/logger"
)

// SESSender delivers rendered emails through AWS SESv2.
type SESSender struct {
	client    *sesv2.Client
	templates *Registry
	fromName  string
	fromEmail string
}

// NewSESSender creates an SES-backed sender. Empty credentials fall back to
// the default AWS credential chain (IAM role on ECS).
func NewSESSender(accessKey, secretKey, region, fromName, fromEmail string, templates *Registry) (*SESSender, error) {
	if region == "" {
		region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKey != "" && secretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("aws config: %w", err)
	}

	return &SESSender{
		client:    sesv2.NewFromConfig(cfg),
		templates: templates,
		fromName:  fromName,
		fromEmail: fromEmail,
	}, nil
}

// Send renders the template and delivers one email. Success means SES
// accepted the message, nothing more; delivery, opens and clicks are
// untracked side channels that never gate the caller.
func (s *SESSender) Send(ctx context.Context, templateID, to string, payload map[string]interface{}) error {
	subject, html, err := s.templates.Render(templateID, payload)
	if err != nil {
		return err
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fmt.Sprintf("%s <%s>", s.fromName, s.fromEmail)),
		Destination:      &types.Destination{ToAddresses: []string{to}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
				Body: &types.Body{
					Html: &types.Content{Data: aws.String(html), Charset: aws.String("UTF-8")},
				},
			},
		},
		EmailTags: []types.MessageTag{
			{Name: aws.String("template"), Value: aws.String(templateID)},
		},
	}

	result, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("ses send %s: %w", templateID, err)
	}

	messageID := ""
	if result.MessageId != nil {
		messageID = *result.MessageId
	}
	logger.Info("email sent", "template", templateID, "to", to, "message_id", messageID)
	return nil
}

// LogSender renders templates but only logs instead of delivering. Used when
// SES is disabled (local development, CI).
type LogSender struct {
	templates *Registry
}

// NewLogSender creates a log-only sender.
func NewLogSender(templates *Registry) *LogSender {
	return &LogSender{templates: templates}
}

// Send renders the template and logs the would-be delivery.
func (s *LogSender) Send(ctx context.Context, templateID, to string, payload map[string]interface{}) error {
	subject, _, err := s.templates.Render(templateID, payload)
	if err != nil {
		return err
	}
	logger.Info("would send email", "template", templateID, "to", to, "subject", subject)
	return nil
}
