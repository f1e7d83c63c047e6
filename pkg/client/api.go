package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aidanmarr1/dt-chat-sub000/internal/models"
)

// API is a thin HTTP wrapper over the chat server. Every mutation is a
// single request with no retry; the optimistic layer above decides what
// a failure means.
type API struct {
	baseURL string
	token   string
	http    *http.Client
}

func New(baseURL, token string) *API {
	return &API{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

// APIError carries the server's status code and {error} body
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

func (a *API) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.token)

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var body struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return &APIError{Status: resp.StatusCode, Message: body.Error}
	}

	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

// FetchFeed polls the feed snapshot
func (a *API) FetchFeed(ctx context.Context) (*models.FeedResponse, error) {
	var resp models.FeedResponse
	if err := a.do(ctx, http.MethodGet, "/api/messages", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

type SendInput struct {
	Content   string  `json:"content,omitempty"`
	FileName  string  `json:"fileName,omitempty"`
	FileType  string  `json:"fileType,omitempty"`
	FileSize  int64   `json:"fileSize,omitempty"`
	FilePath  string  `json:"filePath,omitempty"`
	ReplyToID *string `json:"replyToId,omitempty"`
}

// SendMessage posts a message and returns the enriched echo, ready to be
// spliced into the local array without waiting for the next poll
func (a *API) SendMessage(ctx context.Context, input SendInput) (*models.FeedMessage, error) {
	var msg models.FeedMessage
	if err := a.do(ctx, http.MethodPost, "/api/messages", input, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func (a *API) ToggleReaction(ctx context.Context, messageID, emoji string) (string, error) {
	var resp struct {
		Action string `json:"action"`
	}
	path := fmt.Sprintf("/api/messages/%s/reactions", url.PathEscape(messageID))
	if err := a.do(ctx, http.MethodPost, path, map[string]string{"emoji": emoji}, &resp); err != nil {
		return "", err
	}
	return resp.Action, nil
}

// TogglePin sends an explicit pin/unpin action. The explicit form avoids
// toggle races when two users pin at the same time.
func (a *API) TogglePin(ctx context.Context, messageID, action string) (string, error) {
	var resp struct {
		Action string `json:"action"`
	}
	path := fmt.Sprintf("/api/messages/%s/pin", url.PathEscape(messageID))
	if err := a.do(ctx, http.MethodPost, path, map[string]string{"action": action}, &resp); err != nil {
		return "", err
	}
	return resp.Action, nil
}

func (a *API) EditMessage(ctx context.Context, messageID, content string) error {
	path := fmt.Sprintf("/api/messages/%s", url.PathEscape(messageID))
	return a.do(ctx, http.MethodPatch, path, map[string]string{"content": content}, nil)
}

func (a *API) DeleteMessage(ctx context.Context, messageID string) error {
	path := fmt.Sprintf("/api/messages/%s", url.PathEscape(messageID))
	return a.do(ctx, http.MethodDelete, path, nil, nil)
}

func (a *API) Vote(ctx context.Context, pollID, optionID string) error {
	path := fmt.Sprintf("/api/polls/%s/vote", url.PathEscape(pollID))
	return a.do(ctx, http.MethodPost, path, map[string]string{"optionId": optionID}, nil)
}

func (a *API) SendReadReceipt(ctx context.Context, lastReadMessageID string) error {
	return a.do(ctx, http.MethodPost, "/api/read-receipts",
		map[string]string{"lastReadMessageId": lastReadMessageID}, nil)
}

// Typing pings the server. Rate-limit rejections are swallowed: typing is
// low-stakes and the next ping will land.
func (a *API) Typing(ctx context.Context) error {
	err := a.do(ctx, http.MethodPost, "/api/typing", map[string]string{}, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusTooManyRequests {
		return nil
	}
	return err
}
