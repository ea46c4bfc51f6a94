// Package whatsapp sends the speed-to-lead welcome message through a
// go-whatsapp-web-multidevice (GOWA) gateway.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"leadflow_backend/platform/config"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/phone"
)

const (
	sendPath       = "/send/message"
	requestTimeout = 10 * time.Second
	maxErrorBody   = 1 << 10
)

// ErrNoPhone is returned for a message without a usable recipient.
var ErrNoPhone = errors.New("whatsapp: no recipient phone number")

// Client talks to one gateway device. A nil *Client is valid and drops
// every message, which is what an unconfigured deployment wants.
type Client struct {
	sendURL  string
	auth     string
	deviceID string
	http     *http.Client
	log      *logger.Logger
}

type sendRequest struct {
	Phone   string `json:"phone"`
	Message string `json:"message"`
}

// NewClient returns nil when WHATSAPP_URL is not set.
func NewClient(cfg config.WhatsAppConfig, log *logger.Logger) *Client {
	base := strings.TrimRight(cfg.GetWhatsAppURL(), "/")
	if base == "" {
		return nil
	}

	return &Client{
		sendURL:  base + sendPath,
		auth:     basicAuth(cfg.GetWhatsAppKey()),
		deviceID: cfg.GetWhatsAppDeviceID(),
		http:     &http.Client{Timeout: requestTimeout},
		log:      log,
	}
}

// SendMessage delivers message to phoneNumber. Numbers are sent in E.164
// without the leading plus, the format the gateway expects.
func (c *Client) SendMessage(ctx context.Context, phoneNumber string, message string) error {
	if c == nil {
		return nil
	}

	recipient := strings.TrimPrefix(phone.NormalizeE164(phoneNumber), "+")
	if recipient == "" {
		return ErrNoPhone
	}

	body, err := json.Marshal(sendRequest{Phone: recipient, Message: message})
	if err != nil {
		return fmt.Errorf("whatsapp: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.sendURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.auth != "" {
		req.Header.Set("Authorization", c.auth)
	}
	if c.deviceID != "" {
		req.Header.Set("X-Device-Id", c.deviceID)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("whatsapp: send: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode >= http.StatusBadRequest {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("whatsapp: gateway returned %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	c.log.Info("whatsapp message sent", "recipient", mask(recipient))
	return nil
}

// basicAuth accepts either "user:pass" or a ready "Basic ..." header value.
func basicAuth(key string) string {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(strings.ToLower(key), "basic ") {
		return key
	}
	return "Basic " + base64.StdEncoding.EncodeToString([]byte(key))
}

// mask keeps the last four digits of a number for logs.
func mask(number string) string {
	if len(number) <= 4 {
		return number
	}
	return strings.Repeat("*", len(number)-4) + number[len(number)-4:]
}
