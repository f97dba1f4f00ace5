// Package backend talks to the service that answers chat messages.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var ErrNoAnswer = errors.New("backend returned no answer")

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Request is the body of POST /chat
type Request struct {
	ID      string   `json:"id"`
	Content string   `json:"content"`
	History []string `json:"history"`
}

// Response accepts both answer shapes the backend graph produces
type Response struct {
	Answer   *string `json:"answer,omitempty"`
	Response *string `json:"response,omitempty"`
}

// Text returns answer, falling back to response
func (r Response) Text() (string, bool) {
	if r.Answer != nil {
		return *r.Answer, true
	}
	if r.Response != nil {
		return *r.Response, true
	}
	return "", false
}

// Reply sends one user message and waits for the complete answer
func (c *Client) Reply(ctx context.Context, req Request) (string, error) {
	if req.History == nil {
		req.History = []string{}
	}

	resp, err := c.doRequest(ctx, http.MethodPost, "/chat", req)
	if err != nil {
		return "", fmt.Errorf("failed to make chat request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("chat API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var chatResp Response
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return "", fmt.Errorf("failed to decode chat response: %w", err)
	}

	text, ok := chatResp.Text()
	if !ok {
		return "", ErrNoAnswer
	}
	return text, nil
}

func (c *Client) doRequest(ctx context.Context, method, endpoint string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}

	return resp, nil
}
