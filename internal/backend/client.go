// Package backend is the REST client for the companion backend. The agent
// only talks plain HTTP JSON to it and assumes nothing about its internals.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"conecta/internal/models"
)

// Client calls the companion backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a client for the backend at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// SendCode asks the backend to email a verification code.
func (c *Client) SendCode(ctx context.Context, email string) error {
	return c.post(ctx, "/send-code", map[string]string{"email": email}, nil)
}

// VerifyCodeResult is the backend's answer to a code check.
type VerifyCodeResult struct {
	Valid bool   `json:"valid"`
	Token string `json:"token,omitempty"`
}

// VerifyCode checks a verification code previously sent to email.
func (c *Client) VerifyCode(ctx context.Context, email, code string) (*VerifyCodeResult, error) {
	var result VerifyCodeResult
	if err := c.post(ctx, "/verify-code", map[string]string{"email": email, "code": code}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// RemotePost is a post as the backend stores it.
type RemotePost struct {
	ID        string `json:"id,omitempty"`
	UserID    string `json:"userId"`
	Username  string `json:"username"`
	Content   string `json:"content,omitempty"`
	Image     string `json:"image,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
}

// CreatePost publishes a post to the backend.
func (c *Client) CreatePost(ctx context.Context, post RemotePost) (*RemotePost, error) {
	var created RemotePost
	if err := c.post(ctx, "/posts", post, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// ListPosts fetches all posts from the backend.
func (c *Client) ListPosts(ctx context.Context) ([]RemotePost, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/posts", nil)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	var posts []RemotePost
	if err := c.do(req, &posts); err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []RemotePost{}
	}
	return posts, nil
}

func (c *Client) post(ctx context.Context, path string, body, dest any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return models.NewInternalError(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return models.NewInternalError(err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, dest)
}

func (c *Client) do(req *http.Request, dest any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return models.NewUpstreamError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return models.NewUpstreamError(fmt.Errorf("%s %s: status %d: %s",
			req.Method, req.URL.Path, resp.StatusCode, strings.TrimSpace(string(body))))
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return models.NewUpstreamError(fmt.Errorf("decoding %s response: %w", req.URL.Path, err))
	}
	return nil
}
