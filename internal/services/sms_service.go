package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/colemurrin/pricewatch/internal/config"
	"github.com/colemurrin/pricewatch/internal/models"
)

// SMSSender defines the interface for sending SMS messages
type SMSSender interface {
	SendVerificationCode(ctx context.Context, phoneNumber, code string) error
}

const twilioMessagesURL = "https://api.twilio.com/2010-04-01/Accounts/%s/Messages.json"

// TwilioSMSService sends SMS messages through the Twilio REST API
type TwilioSMSService struct {
	cfg        config.SMSConfig
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTwilioSMSService creates a new Twilio SMS service
func NewTwilioSMSService(cfg config.SMSConfig, logger *slog.Logger) *TwilioSMSService {
	return &TwilioSMSService{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// SendVerificationCode sends a one-time verification code via SMS.
// Fails with ErrMisconfiguredDelivery when required credentials are
// absent and ErrDeliveryFailed when Twilio rejects the request.
func (s *TwilioSMSService) SendVerificationCode(ctx context.Context, phoneNumber, code string) error {
	if s.cfg.TwilioAccountSID == "" || s.cfg.TwilioAuthToken == "" {
		return models.ErrMisconfiguredDelivery
	}
	if s.cfg.TwilioFromNumber == "" && s.cfg.TwilioMessagingServiceSID == "" {
		return models.ErrMisconfiguredDelivery
	}

	form := url.Values{}
	form.Set("To", phoneNumber)
	form.Set("Body", fmt.Sprintf("Your pricewatch verification code is %s.", code))
	if s.cfg.TwilioMessagingServiceSID != "" {
		form.Set("MessagingServiceSid", s.cfg.TwilioMessagingServiceSID)
	} else {
		form.Set("From", s.cfg.TwilioFromNumber)
	}

	endpoint := fmt.Sprintf(twilioMessagesURL, s.cfg.TwilioAccountSID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build twilio request: %w", err)
	}
	req.SetBasicAuth(s.cfg.TwilioAccountSID, s.cfg.TwilioAuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Error("failed to reach twilio", slog.Any("error", err))
		return models.ErrDeliveryFailed
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		s.logger.Error("twilio rejected sms send", slog.Int("status", resp.StatusCode))
		return models.ErrDeliveryFailed
	}

	s.logger.Info("sms sent", slog.Int("status", resp.StatusCode))
	return nil
}
