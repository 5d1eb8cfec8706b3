package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// Sentinel errors callers branch on with errors.Is. Anything else from
// the API surfaces as a plain error.
var (
	// ErrForbidden marks a rejection for missing permissions, including
	// members with DMs closed.
	ErrForbidden = errors.New("discord: forbidden")
	// ErrTransient marks a rate limit or server-side failure that
	// survived the built-in retries.
	ErrTransient = errors.New("discord: transient error")
)

// Event types forwarded by the gateway bridge.
const (
	EventActivityStart = "activity_start"
	EventActivityStop  = "activity_stop"
	EventCommand       = "command"
)

// Event is one gateway occurrence forwarded by the bridge. Only fields
// we need.
type Event struct {
	ID        int64  `json:"id"`
	Type      string `json:"type"`
	UserID    int64  `json:"user_id"`
	ChannelID int64  `json:"channel_id,omitempty"`
	Activity  string `json:"activity,omitempty"`
	Command   string `json:"command,omitempty"`
	Admin     bool   `json:"admin,omitempty"`
}

// Client talks to the Discord REST API for outbound actions and to the
// gateway bridge for inbound events. REST calls retry rate limits and
// server errors a couple of times before giving up; event polls hang
// until the bridge has something or the wait expires.
type Client struct {
	token      string
	guildID    int64
	apiBase    string
	bridgeBase string
	rest       *retryablehttp.Client
	poll       *http.Client
}

func NewClient(token string, guildID int64, bridgeURL string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 500 * time.Millisecond
	rc.RetryWaitMax = 5 * time.Second
	rc.HTTPClient.Timeout = 10 * time.Second
	rc.Logger = nil
	return &Client{
		token:      token,
		guildID:    guildID,
		apiBase:    "https://discord.com/api/v10",
		bridgeBase: bridgeURL,
		rest:       rc,
		poll:       http.DefaultClient,
	}
}

// SendChannelMessage posts a plain-text message to a channel.
func (c *Client) SendChannelMessage(ctx context.Context, channelID int64, content string) error {
	return c.postMessage(ctx, strconv.FormatInt(channelID, 10), content)
}

// SendDM opens (or reuses) the DM channel with the user and posts a
// plain-text message there.
func (c *Client) SendDM(ctx context.Context, userID int64, content string) error {
	channel, err := c.createDM(ctx, userID)
	if err != nil {
		return err
	}
	return c.postMessage(ctx, channel, content)
}

// TimeoutMember mutes the guild member until the given time.
func (c *Client) TimeoutMember(ctx context.Context, userID int64, until time.Time, reason string) error {
	body := map[string]any{
		"communication_disabled_until": until.UTC().Format(time.RFC3339),
	}
	return c.patchMember(ctx, userID, body, reason)
}

// ClearTimeout lifts an active mute from the guild member.
func (c *Client) ClearTimeout(ctx context.Context, userID int64, reason string) error {
	body := map[string]any{"communication_disabled_until": nil}
	return c.patchMember(ctx, userID, body, reason)
}

// PollEvents long-polls the gateway bridge for events after the given
// cursor. Returns an empty slice when the wait expires with nothing new.
func (c *Client) PollEvents(ctx context.Context, after int64) ([]Event, error) {
	q := url.Values{}
	q.Set("after", strconv.FormatInt(after, 10))
	q.Set("wait", "30")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.bridgeBase+"/v1/events", nil)
	if err != nil {
		return nil, err
	}
	req.URL.RawQuery = q.Encode()
	resp, err := c.poll.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errors.New("discord: bridge responded with " + resp.Status)
	}
	var wrapper struct {
		Events []Event `json:"events"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&wrapper); err != nil {
		return nil, err
	}
	return wrapper.Events, nil
}

func (c *Client) postMessage(ctx context.Context, channelID, content string) error {
	b, err := json.Marshal(map[string]any{"content": content})
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.apiBase+"/channels/"+channelID+"/messages", b)
	if err != nil {
		return err
	}
	resp, err := c.rest.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) createDM(ctx context.Context, userID int64) (string, error) {
	b, err := json.Marshal(map[string]any{
		"recipient_id": strconv.FormatInt(userID, 10),
	})
	if err != nil {
		return "", err
	}
	req, err := c.newRequest(ctx, http.MethodPost, c.apiBase+"/users/@me/channels", b)
	if err != nil {
		return "", err
	}
	resp, err := c.rest.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()
	if err := checkStatus(resp); err != nil {
		return "", err
	}
	var channel struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&channel); err != nil {
		return "", err
	}
	return channel.ID, nil
}

func (c *Client) patchMember(ctx context.Context, userID int64, body map[string]any, reason string) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	path := c.apiBase + "/guilds/" + strconv.FormatInt(c.guildID, 10) +
		"/members/" + strconv.FormatInt(userID, 10)
	req, err := c.newRequest(ctx, http.MethodPatch, path, b)
	if err != nil {
		return err
	}
	if reason != "" {
		req.Header.Set("X-Audit-Log-Reason", reason)
	}
	resp, err := c.rest.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) newRequest(ctx context.Context, method, url string, body []byte) (*retryablehttp.Request, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bot "+c.token)
	req.Header.Set("Content-Type", "application/json")
	return req, nil
}

func checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusForbidden:
		return ErrForbidden
	case resp.StatusCode == http.StatusTooManyRequests, resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %s", ErrTransient, resp.Status)
	default:
		return errors.New("discord: unexpected status " + resp.Status)
	}
}
