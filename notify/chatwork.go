package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// DefaultChatworkEndpoint is the ChatWork API v2 base URL.
const DefaultChatworkEndpoint = "https://api.chatwork.com/v2"

// ErrChatworkConfig is returned when the API key or room is missing.
var ErrChatworkConfig = errors.New("chatwork: api key and room id are required")

// NotificationError describes a message ChatWork did not accept.
type NotificationError struct {
	Type       string
	StatusCode int
	Underlying error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("notification failed [%s]: %v", e.Type, e.Underlying)
}

func (e *NotificationError) Unwrap() error {
	return e.Underlying
}

// ChatworkOptions configures a Chatwork relay.
type ChatworkOptions struct {
	Endpoint string
	APIKey   string
	RoomID   string
	Timeout  time.Duration
}

// Chatwork posts messages to one ChatWork room.
type Chatwork struct {
	client *resty.Client
	apiKey string
	roomID string
}

// NewChatwork builds a relay. It fails with ErrChatworkConfig when the key
// or room is empty.
func NewChatwork(opts ChatworkOptions) (*Chatwork, error) {
	if opts.APIKey == "" || opts.RoomID == "" {
		return nil, ErrChatworkConfig
	}
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultChatworkEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}

	client := resty.New()
	client.SetBaseURL(opts.Endpoint)
	client.SetTimeout(opts.Timeout)

	return &Chatwork{
		client: client,
		apiKey: opts.APIKey,
		roomID: opts.RoomID,
	}, nil
}

// Send posts message to the room.
func (c *Chatwork) Send(ctx context.Context, message string) error {
	res, err := c.client.R().
		SetContext(ctx).
		SetHeader("X-ChatWorkToken", c.apiKey).
		SetPathParam("room", c.roomID).
		SetFormData(map[string]string{"body": message}).
		Post("/rooms/{room}/messages")
	if err != nil {
		return &NotificationError{Type: "network", Underlying: err}
	}
	if res.IsError() {
		return &NotificationError{
			Type:       categorizeStatus(res.StatusCode()),
			StatusCode: res.StatusCode(),
			Underlying: fmt.Errorf("HTTP %d: %s", res.StatusCode(), res.String()),
		}
	}

	slog.Debug("chatwork message sent", slog.String("room", c.roomID), slog.Int("status", res.StatusCode()))
	return nil
}

func categorizeStatus(status int) string {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return "auth"
	case status == http.StatusTooManyRequests:
		return "rate_limit"
	case status >= 500:
		return "server"
	default:
		return "client"
	}
}
