package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
)

const twilioAPIBase = "https://api.twilio.com/2010-04-01"

// TwilioSender delivers WhatsApp messages through Twilio's REST API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

// NewTwilioSenderFromEnv initialises a TwilioSender from TWILIO_ACCOUNT_SID,
// TWILIO_AUTH_TOKEN, and TWILIO_PHONE_NUMBER.
func NewTwilioSenderFromEnv() (*TwilioSender, error) {
	accountSID := strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	authToken := strings.TrimSpace(os.Getenv("TWILIO_AUTH_TOKEN"))
	from := strings.TrimSpace(os.Getenv("TWILIO_PHONE_NUMBER"))

	if accountSID == "" || authToken == "" || from == "" {
		return nil, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, and TWILIO_PHONE_NUMBER are required")
	}

	return &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    twilioAPIBase,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}, nil
}

// Send posts one WhatsApp message and returns the Twilio message SID.
func (s *TwilioSender) Send(ctx context.Context, to, body string) (string, error) {
	if s == nil {
		return "", errors.New("nil sender")
	}

	form := url.Values{}
	form.Set("To", "whatsapp:"+to)
	form.Set("From", "whatsapp:"+s.from)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", s.baseURL, s.accountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("twilio returned %d: %s", resp.StatusCode, truncate(string(payload), 200))
	}

	var result struct {
		SID string `json:"sid"`
	}
	if err := json.Unmarshal(payload, &result); err != nil {
		return "", fmt.Errorf("decode twilio response: %w", err)
	}
	return result.SID, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
