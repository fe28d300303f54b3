package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

// Sender delivers one outbound WhatsApp message.
type Sender interface {
	SendMessage(ctx context.Context, to, body string) error
}

type TwilioConfig struct {
	AccountSID string
	AuthToken  string
	FromNumber string // E.164 without the whatsapp: prefix
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// TwilioClient sends WhatsApp messages through Twilio's Messages API.
type TwilioClient struct {
	accountSID string
	authToken  string
	fromNumber string
	baseURL    string
	httpClient *http.Client
}

func NewTwilioClient(config TwilioConfig) *TwilioClient {
	if strings.TrimSpace(config.BaseURL) == "" {
		config.BaseURL = "https://api.twilio.com"
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}
	if config.HTTPClient == nil {
		config.HTTPClient = &http.Client{Timeout: config.Timeout}
	}

	return &TwilioClient{
		accountSID: strings.TrimSpace(config.AccountSID),
		authToken:  strings.TrimSpace(config.AuthToken),
		fromNumber: NormalizeNumber(config.FromNumber),
		baseURL:    strings.TrimSuffix(config.BaseURL, "/"),
		httpClient: config.HTTPClient,
	}
}

func (c *TwilioClient) Available() bool {
	return c.accountSID != "" && c.authToken != "" && c.fromNumber != ""
}

func (c *TwilioClient) SendMessage(ctx context.Context, to, body string) error {
	if !c.Available() {
		return errors.New("twilio credentials not configured")
	}

	form := url.Values{}
	form.Set("From", "whatsapp:"+c.fromNumber)
	form.Set("To", "whatsapp:"+NormalizeNumber(to))
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create twilio request: %w", err)
	}
	request.SetBasicAuth(c.accountSID, c.authToken)
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("twilio transport error: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode < 200 || response.StatusCode > 299 {
		payload, _ := io.ReadAll(io.LimitReader(response.Body, 500))
		return fmt.Errorf("twilio status %d: %s", response.StatusCode, strings.TrimSpace(string(payload)))
	}
	return nil
}

var nonNumberPattern = regexp.MustCompile(`[^+0-9]`)

// NormalizeNumber converts any Twilio-style sender string into bare E.164:
// "whatsapp:+55 (11) 99999-0000" -> "+5511999990000".
func NormalizeNumber(raw string) string {
	cleaned := nonNumberPattern.ReplaceAllString(strings.TrimPrefix(strings.TrimSpace(raw), "whatsapp:"), "")
	cleaned = strings.TrimLeft(cleaned, "+")
	if cleaned == "" {
		return ""
	}
	return "+" + cleaned
}

// MaskNumber hides all but the last four digits for logging.
func MaskNumber(number string) string {
	normalized := NormalizeNumber(number)
	if len(normalized) <= 5 {
		return normalized
	}
	return normalized[:2] + strings.Repeat("*", len(normalized)-6) + normalized[len(normalized)-4:]
}
