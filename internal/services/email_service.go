package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/colemurrin/pricewatch/internal/models"
)

// EmailSender defines the interface for sending emails
type EmailSender interface {
	SendVerificationCode(ctx context.Context, email, code string) error
	SendPriceAlert(ctx context.Context, email, productURL string, price, threshold float64) error
}

// LogEmailSender writes outgoing mail to the log instead of sending
// it. Used in dev mode when SES is not configured.
type LogEmailSender struct {
	logger *slog.Logger
}

// NewLogEmailSender creates a new LogEmailSender
func NewLogEmailSender(logger *slog.Logger) *LogEmailSender {
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) SendVerificationCode(ctx context.Context, email, code string) error {
	s.logger.Info("dev email: verification code",
		slog.String("to", email),
		slog.String("code", code))
	return nil
}

func (s *LogEmailSender) SendPriceAlert(ctx context.Context, email, productURL string, price, threshold float64) error {
	s.logger.Info("dev email: price alert",
		slog.String("to", email),
		slog.String("product_url", productURL),
		slog.Float64("price", price),
		slog.Float64("threshold", threshold))
	return nil
}

// AWSSESEmailService sends emails using AWS SES
type AWSSESEmailService struct {
	sesClient   *ses.Client
	fromAddress string
	logger      *slog.Logger
}

// NewAWSSESEmailService creates a new AWS SES email service
func NewAWSSESEmailService(region, fromAddress string, logger *slog.Logger) (*AWSSESEmailService, error) {
	if fromAddress == "" {
		return nil, models.ErrMisconfiguredDelivery
	}

	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &AWSSESEmailService{
		sesClient:   ses.NewFromConfig(cfg),
		fromAddress: fromAddress,
		logger:      logger,
	}, nil
}

// SendVerificationCode sends a one-time verification code to the user
func (s *AWSSESEmailService) SendVerificationCode(ctx context.Context, email, code string) error {
	textBody := fmt.Sprintf(`Your verification code is: %s

This code expires shortly. If you did not request it, you can ignore this email.
`, code)

	return s.send(ctx, email, "Your pricewatch verification code", textBody)
}

// SendPriceAlert notifies the user that a watched product dropped below threshold
func (s *AWSSESEmailService) SendPriceAlert(ctx context.Context, email, productURL string, price, threshold float64) error {
	textBody := fmt.Sprintf(`Good news! A product on your watchlist dropped below your threshold.

Product: %s
Current price: %.2f
Your threshold: %.2f
`, productURL, price, threshold)

	return s.send(ctx, email, "Price alert: product below your threshold", textBody)
}

func (s *AWSSESEmailService) send(ctx context.Context, email, subject, textBody string) error {
	input := &ses.SendEmailInput{
		Source: aws.String(s.fromAddress),
		Destination: &types.Destination{
			ToAddresses: []string{email},
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data: aws.String(subject),
			},
			Body: &types.Body{
				Text: &types.Content{
					Data: aws.String(textBody),
				},
			},
		},
	}

	result, err := s.sesClient.SendEmail(ctx, input)
	if err != nil {
		s.logger.Error("failed to send email via SES",
			slog.String("subject", subject),
			slog.Any("error", err))
		return models.ErrDeliveryFailed
	}

	s.logger.Info("email sent",
		slog.String("subject", subject),
		slog.String("message_id", *result.MessageId))

	return nil
}
