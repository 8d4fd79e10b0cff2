// Package webhook builds and sends the signed outbound call to the
// automation endpoint.
package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenTTL = time.Hour

// Request is the JSON body sent to the automation endpoint. It is built
// once per dispatch and never mutated after signing.
type Request struct {
	Message string       `json:"message"`
	User    User         `json:"user"`
	File    *FilePayload `json:"file,omitempty"`
}

// User identifies the chat-platform sender. Absent fields serialize as null.
type User struct {
	ID       *string `json:"id"`
	Username *string `json:"username"`
}

// FilePayload carries a relayed file as base64. When the MIME type was
// normalized for the endpoint, the original identity is kept alongside.
type FilePayload struct {
	Filename         string `json:"filename"`
	MimeType         string `json:"mime_type"`
	Size             int64  `json:"size"`
	Data             string `json:"data"`
	OriginalFilename string `json:"original_filename,omitempty"`
	OriginalMimeType string `json:"original_mime_type,omitempty"`
	Converted        bool   `json:"converted,omitempty"`
}

// NewRequest assembles a Request; empty identity fields become null.
func NewRequest(message, userID, username string, file *FilePayload) Request {
	req := Request{Message: message, File: file}
	if userID != "" {
		req.User.ID = &userID
	}
	if username != "" {
		req.User.Username = &username
	}
	return req
}

// Response is the raw endpoint reply, owned transiently by the dispatcher
// for the duration of one exchange.
type Response struct {
	Status int
	Body   []byte
}

// ClientConfig configures the webhook client.
type ClientConfig struct {
	URL    string
	Secret string // HMAC secret for signing the per-call JWT
	Logger *slog.Logger
}

// Client POSTs signed requests to the automation endpoint. It never
// retries and never reuses a token across calls.
type Client struct {
	url    string
	secret []byte
	client *http.Client
	logger *slog.Logger
}

// NewClient creates a webhook client. The HTTP client carries no timeout;
// the signed token expires an hour after issue.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		url:    cfg.URL,
		secret: []byte(cfg.Secret),
		client: &http.Client{},
		logger: cfg.Logger,
	}
}

// Send signs and posts one request. A transport-level failure (network
// error, DNS, refused connection) is returned as an error; the caller
// treats it as "webhook unreachable". Any HTTP status comes back in the
// Response for the caller to judge.
func (c *Client) Send(ctx context.Context, req Request) (*Response, error) {
	token, err := c.signToken(req.Message)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	c.logger.Info("sending to webhook", "url", c.url, "message_len", len(req.Message), "has_file", req.File != nil)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("webhook call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read webhook response: %w", err)
	}

	c.logger.Info("webhook responded", "status", resp.StatusCode, "body_len", len(respBody))
	return &Response{Status: resp.StatusCode, Body: respBody}, nil
}

// signToken issues a fresh HS256 JWT for one call: claims are the relayed
// message and a one-hour expiry.
func (c *Client) signToken(message string) (string, error) {
	claims := jwt.MapClaims{
		"message": message,
		"exp":     jwt.NewNumericDate(time.Now().Add(tokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}
