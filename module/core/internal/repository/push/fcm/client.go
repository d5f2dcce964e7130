package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/chadley78/located-dispatch/module/core/domain"
	"github.com/chadley78/located-dispatch/module/core/internal/repository/push"
)

var _ push.Sender = (*Client)(nil)

const multicastPath = "/v1/messages:sendMulticast"

// Client talks to the push provider's batched send endpoint.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		apiKey:     apiKey,
	}
}

type multicastRequest struct {
	Notification notificationBody  `json:"notification"`
	Data         map[string]string `json:"data"`
	Tokens       []string          `json:"tokens"`
}

type notificationBody struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type multicastResponse struct {
	SuccessCount int            `json:"success_count"`
	FailureCount int            `json:"failure_count"`
	Responses    []sendResponse `json:"responses"`
}

type sendResponse struct {
	Success bool       `json:"success"`
	Error   *sendError `json:"error,omitempty"`
}

type sendError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendMulticast submits one batched call covering every token. The
// returned result is positionally aligned with the token list. Errors are
// transport level only; per-token failures never fail the call.
func (c *Client) SendMulticast(ctx context.Context, n *domain.Notification, tokens []string) (*domain.DispatchResult, error) {
	reqBody := multicastRequest{
		Notification: notificationBody{Title: n.Title, Body: n.Body},
		Data:         n.Data,
		Tokens:       tokens,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal multicast request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+multicastPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build multicast request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send multicast: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("push provider status %d: %s", resp.StatusCode, string(body))
	}

	var mr multicastResponse
	if err := json.NewDecoder(resp.Body).Decode(&mr); err != nil {
		return nil, fmt.Errorf("decode multicast response: %w", err)
	}
	if len(mr.Responses) != len(tokens) {
		return nil, fmt.Errorf("push provider returned %d results for %d tokens", len(mr.Responses), len(tokens))
	}

	result := &domain.DispatchResult{
		SuccessCount: mr.SuccessCount,
		FailureCount: mr.FailureCount,
		Results:      make([]domain.SendResult, len(tokens)),
	}
	for i, r := range mr.Responses {
		sr := domain.SendResult{Token: tokens[i], Success: r.Success}
		if r.Error != nil {
			sr.ErrorCode = r.Error.Code
			sr.ErrorMessage = r.Error.Message
		}
		result.Results[i] = sr
	}
	return result, nil
}
