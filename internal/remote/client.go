// Package remote is the client for the publishing site's REST backend. The
// backend is an opaque collaborator: requests either return JSON or fail
// with a human-readable message; nothing here retries.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/malaztl/nocturne/internal/apperr"
)

// Client talks to the site backend. The bearer token, when set, is attached
// to every request.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the backend at baseURL. timeout <= 0
// selects 30 seconds.
func NewClient(baseURL, token string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
	}
}

// WithToken returns a copy of the client using the given bearer token.
func (c *Client) WithToken(token string) *Client {
	clone := *c
	clone.token = token
	return &clone
}

// AuthUser is the backend's user profile shape.
type AuthUser struct {
	ID        int    `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt"`
}

// AuthResponse is returned by login.
type AuthResponse struct {
	Token string   `json:"token"`
	User  AuthUser `json:"user"`
}

// Novel is the backend's novel record.
type Novel struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Origin   string `json:"origin"`
	Team     string `json:"team"`
	Synopsis string `json:"synopsis"`
	CoverURL string `json:"coverUrl"`
	Status   string `json:"status"`
}

// NovelInput is the payload for creating or updating a novel.
type NovelInput struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Origin   string `json:"origin"`
	Team     string `json:"team"`
	Synopsis string `json:"synopsis"`
	CoverURL string `json:"coverUrl,omitempty"`
	Status   string `json:"status,omitempty"`
}

// Chapter is the backend's chapter record.
type Chapter struct {
	ID      int    `json:"id"`
	NovelID int    `json:"novelId"`
	Volume  int    `json:"volume"`
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// ChapterInput is the payload for creating or updating a chapter. Content
// must be plain text; callers serialize document trees before submission.
type ChapterInput struct {
	Volume  int    `json:"volume"`
	Number  int    `json:"number"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// Login authenticates and returns the session material.
func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, http.MethodPost, "/auth/login", map[string]string{
		"email":    email,
		"password": password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateNovel creates a novel and returns the stored record.
func (c *Client) CreateNovel(ctx context.Context, in NovelInput) (*Novel, error) {
	var out Novel
	if err := c.do(ctx, http.MethodPost, "/novels", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateChapter creates a chapter under a novel.
func (c *Client) CreateChapter(ctx context.Context, novelID int, in ChapterInput) (*Chapter, error) {
	var out Chapter
	path := fmt.Sprintf("/novels/%d/chapters", novelID)
	if err := c.do(ctx, http.MethodPost, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UpdateChapter replaces a chapter's content and metadata.
func (c *Client) UpdateChapter(ctx context.Context, chapterID int, in ChapterInput) (*Chapter, error) {
	var out Chapter
	path := fmt.Sprintf("/chapters/%d", chapterID)
	if err := c.do(ctx, http.MethodPut, path, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddComment posts a comment on a chapter.
func (c *Client) AddComment(ctx context.Context, chapterID int, body string) error {
	path := fmt.Sprintf("/chapters/%d/comments", chapterID)
	return c.do(ctx, http.MethodPost, path, map[string]string{"body": body}, nil)
}

// RateNovel submits a 1-5 rating for a novel.
func (c *Client) RateNovel(ctx context.Context, novelID, value int) error {
	path := fmt.Sprintf("/novels/%d/ratings", novelID)
	return c.do(ctx, http.MethodPost, path, map[string]int{"value": value}, nil)
}

// UploadCover uploads cover image bytes and returns the served URL.
func (c *Client) UploadCover(ctx context.Context, filename string, data []byte) (string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("remote: build upload: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("remote: build upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("remote: build upload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/uploads/cover", &body)
	if err != nil {
		return "", fmt.Errorf("remote: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("remote: upload cover: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", c.errorFrom(resp, "cover upload failed")
	}
	var out struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("remote: decode upload response: %w", err)
	}
	return out.URL, nil
}

// do issues one JSON request and decodes the response into out (when
// non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("remote: encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("remote: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("remote: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.errorFrom(resp, fmt.Sprintf("%s %s failed", method, path))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("remote: decode response: %w", err)
	}
	return nil
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// errorFrom surfaces the backend's message when it sent one.
func (c *Client) errorFrom(resp *http.Response, fallback string) error {
	msg := fallback
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err == nil {
		if payload.Error != "" {
			msg = payload.Error
		} else if payload.Message != "" {
			msg = payload.Message
		}
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("remote: %s: %w", msg, apperr.ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("remote: %s: %w", msg, apperr.ErrNotFound)
	default:
		return fmt.Errorf("remote: %s (status %d)", msg, resp.StatusCode)
	}
}
