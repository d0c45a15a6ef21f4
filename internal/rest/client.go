// Package rest is the thin HTTP layer the sync core consumes: history
// fetches, sends, edits, deletes, read acknowledgements and the unread
// snapshot. All calls are at-most-once; the caller decides what a failure
// means.
package rest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/harmonic-chat/harmonic/internal/models"
	"github.com/harmonic-chat/harmonic/internal/state"
	"github.com/harmonic-chat/harmonic/pkg/snowflake"
)

// Client talks to the backend REST API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a REST client for the given base URL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) do(method, path string, body any) ([]byte, int, error) {
	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to marshal request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, payload)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, resp.StatusCode, classify(resp.StatusCode, data)
	}
	return data, resp.StatusCode, nil
}

// Messages fetches one history page: up to state.PageSize messages older
// than before, or the most recent page when before is zero. The returned
// order is whatever the server sent; the merge engine normalizes it.
func (c *Client) Messages(channelID, before snowflake.ID) ([]*models.Message, error) {
	path := fmt.Sprintf("/channels/%s/messages?limit=%d", channelID, state.PageSize)
	if !before.IsZero() {
		path += "&before=" + url.QueryEscape(before.String())
	}
	data, _, err := c.do(http.MethodGet, path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	var msgs []*models.Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("failed to parse messages: %w", err)
	}
	return msgs, nil
}

// SendMessage posts a new message carrying the client nonce. The backend is
// expected to echo the nonce verbatim in both this response and the
// message.created event; reconciliation depends on it.
func (c *Client) SendMessage(channelID snowflake.ID, content, nonce string) (*models.Message, error) {
	body := map[string]string{
		"content": content,
		"nonce":   nonce,
	}
	data, _, err := c.do(http.MethodPost, fmt.Sprintf("/channels/%s/messages", channelID), body)
	if err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse sent message: %w", err)
	}
	return &msg, nil
}

// EditMessage replaces a message's content.
func (c *Client) EditMessage(channelID, messageID snowflake.ID, content string) (*models.Message, error) {
	body := map[string]string{"content": content}
	path := fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)
	data, _, err := c.do(http.MethodPut, path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to edit message: %w", err)
	}
	var msg models.Message
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to parse edited message: %w", err)
	}
	return &msg, nil
}

// DeleteMessage removes a message.
func (c *Client) DeleteMessage(channelID, messageID snowflake.ID) error {
	path := fmt.Sprintf("/channels/%s/messages/%s", channelID, messageID)
	if _, _, err := c.do(http.MethodDelete, path, nil); err != nil {
		return fmt.Errorf("failed to delete message: %w", err)
	}
	return nil
}

// Ack records that the user has read up to messageID in the channel. Best
// effort; the caller surfaces a failure without retrying.
func (c *Client) Ack(channelID, messageID snowflake.ID) error {
	path := fmt.Sprintf("/channels/%s/ack/%s", channelID, messageID)
	if _, _, err := c.do(http.MethodPut, path, nil); err != nil {
		return fmt.Errorf("failed to ack channel: %w", err)
	}
	return nil
}

// Unreads fetches the per-channel read-state snapshot.
func (c *Client) Unreads() ([]models.UnreadRecord, error) {
	data, _, err := c.do(http.MethodGet, "/@me/unreads", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unreads: %w", err)
	}
	var records []models.UnreadRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to parse unreads: %w", err)
	}
	return records, nil
}

// Members fetches the guild's member list; the session re-polls this on an
// interval while a guild channel is open.
func (c *Client) Members(guildID snowflake.ID) ([]*models.Member, error) {
	data, _, err := c.do(http.MethodGet, fmt.Sprintf("/guilds/%s/members", guildID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch members: %w", err)
	}
	var members []*models.Member
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, fmt.Errorf("failed to parse members: %w", err)
	}
	return members, nil
}

// Channels fetches the channel list visible to the session user.
func (c *Client) Channels() ([]*models.Channel, error) {
	data, _, err := c.do(http.MethodGet, "/@me/channels", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channels: %w", err)
	}
	var channels []*models.Channel
	if err := json.Unmarshal(data, &channels); err != nil {
		return nil, fmt.Errorf("failed to parse channels: %w", err)
	}
	return channels, nil
}

// Me fetches the session user's profile.
func (c *Client) Me() (*models.User, error) {
	data, _, err := c.do(http.MethodGet, "/@me", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch profile: %w", err)
	}
	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to parse profile: %w", err)
	}
	return &user, nil
}
