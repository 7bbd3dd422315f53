package notify

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"

	"classroomhub/internal/models"
)

// maxRecipients is the SES limit on destination addresses per message
const maxRecipients = 50

type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESNotifier emails broadcasts through Amazon SES. Recipients are sent as
// BCC in batches so addresses are not disclosed to each other.
type SESNotifier struct {
	client     sesAPI
	fromEmail  string
	fromName   string
	appBaseURL string
	logger     *zap.Logger
}

// NewSESNotifier loads the default AWS configuration and creates an SES client
func NewSESNotifier(ctx context.Context, opts Options, logger *zap.Logger) (*SESNotifier, error) {
	cfg, err := config.LoadDefaultConfig(ctx, config.WithRegion(opts.AWSRegion))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	logger.Info("email notifications enabled",
		zap.String("from", opts.FromEmail),
		zap.String("region", opts.AWSRegion),
	)
	return newSESNotifier(sesv2.NewFromConfig(cfg), opts, logger), nil
}

func newSESNotifier(client sesAPI, opts Options, logger *zap.Logger) *SESNotifier {
	return &SESNotifier{
		client:     client,
		fromEmail:  opts.FromEmail,
		fromName:   opts.FromName,
		appBaseURL: strings.TrimRight(opts.AppBaseURL, "/"),
		logger:     logger,
	}
}

// NotifyBroadcast emails the message to every recipient except the sender
func (n *SESNotifier) NotifyBroadcast(ctx context.Context, msg *models.Message, sender *models.User, recipients []models.User) error {
	var addresses []string
	for _, r := range recipients {
		if r.ID == sender.ID || r.Email == "" {
			continue
		}
		addresses = append(addresses, r.Email)
	}
	if len(addresses) == 0 {
		return nil
	}

	subject := fmt.Sprintf("[Classroom] %s", msg.Subject)
	htmlBody, textBody := n.renderBroadcast(msg, sender)

	var errs []error
	for start := 0; start < len(addresses); start += maxRecipients {
		end := min(start+maxRecipients, len(addresses))
		if err := n.send(ctx, addresses[start:end], subject, htmlBody, textBody); err != nil {
			errs = append(errs, err)
		}
	}
	if err := errors.Join(errs...); err != nil {
		return err
	}

	n.logger.Info("broadcast emailed",
		zap.Int64("message_id", msg.ID),
		zap.Int("recipients", len(addresses)),
	)
	return nil
}

func (n *SESNotifier) renderBroadcast(msg *models.Message, sender *models.User) (string, string) {
	link := fmt.Sprintf("%s/messages/%d", n.appBaseURL, msg.ID)

	htmlBody := fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
	<h2>%s</h2>
	<p><strong>From:</strong> %s</p>
	<div style="white-space: pre-wrap;">%s</div>
	<p><a href="%s">View in ClassroomHub</a></p>
	<p style="font-size: 12px; color: #666;">This is an automated email. Please do not reply.</p>
</body>
</html>
`, html.EscapeString(msg.Subject), html.EscapeString(sender.Name), html.EscapeString(msg.Body), link)

	textBody := fmt.Sprintf(`%s

From: %s

%s

View in ClassroomHub: %s

---
This is an automated email. Please do not reply.
`, msg.Subject, sender.Name, msg.Body, link)

	return htmlBody, textBody
}

func (n *SESNotifier) send(ctx context.Context, bcc []string, subject, htmlBody, textBody string) error {
	fromAddress := n.fromEmail
	if n.fromName != "" {
		fromAddress = fmt.Sprintf("%s <%s>", n.fromName, n.fromEmail)
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(fromAddress),
		Destination: &types.Destination{
			ToAddresses:  []string{n.fromEmail},
			BccAddresses: bcc,
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{
					Data:    aws.String(subject),
					Charset: aws.String("UTF-8"),
				},
				Body: &types.Body{
					Html: &types.Content{
						Data:    aws.String(htmlBody),
						Charset: aws.String("UTF-8"),
					},
					Text: &types.Content{
						Data:    aws.String(textBody),
						Charset: aws.String("UTF-8"),
					},
				},
			},
		},
	}

	result, err := n.client.SendEmail(ctx, input)
	if err != nil {
		return fmt.Errorf("failed to send email to %d recipients: %w", len(bcc), err)
	}
	if result.MessageId != nil {
		n.logger.Debug("SES message sent", zap.String("ses_message_id", *result.MessageId))
	}
	return nil
}
