package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"livechat/pkg/chat"
)

// Profile is the authenticated user as returned by the auth endpoints.
type Profile struct {
	ID           string `json:"id"`
	Email        string `json:"email"`
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	ProfileColor int    `json:"profileColor"`
	ProfileSetup bool   `json:"profileSetup"`
}

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// APIClient talks to the REST surface. Session cookies live in its jar and
// are shared with the live connection.
type APIClient struct {
	base string
	http *http.Client
}

func NewAPIClient(baseURL string) (*APIClient, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &APIClient{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Jar: jar, Timeout: 15 * time.Second},
	}, nil
}

func (c *APIClient) BaseURL() string {
	return c.base
}

func (c *APIClient) Jar() http.CookieJar {
	return c.http.Jar
}

func (c *APIClient) Signup(ctx context.Context, email, password string) (*Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodPost, "/api/auth/signup", map[string]string{"email": email, "password": password}, &p)
	return &p, err
}

func (c *APIClient) Login(ctx context.Context, email, password string) (*Profile, error) {
	var p Profile
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": password}, &p)
	return &p, err
}

func (c *APIClient) DMContacts(ctx context.Context) ([]chat.ContactSummary, error) {
	var out []chat.ContactSummary
	err := c.do(ctx, http.MethodGet, "/api/contacts/get-dm-contacts", nil, &out)
	return out, err
}

func (c *APIClient) SearchContacts(ctx context.Context, query string) ([]chat.UserSnippet, error) {
	var out []chat.UserSnippet
	err := c.do(ctx, http.MethodPost, "/api/contacts/search", map[string]string{"query": query}, &out)
	return out, err
}

func (c *APIClient) Channels(ctx context.Context) ([]chat.ChannelSummary, error) {
	var out []chat.ChannelSummary
	err := c.do(ctx, http.MethodGet, "/api/channels/get-user-channels", nil, &out)
	return out, err
}

// Messages fetches the direct conversation with userID. The server marks
// the fetched messages from userID as seen.
func (c *APIClient) Messages(ctx context.Context, userID string) ([]chat.PopulatedMessage, error) {
	var out []chat.PopulatedMessage
	err := c.do(ctx, http.MethodGet, "/api/messages/get-messages?userId="+url.QueryEscape(userID), nil, &out)
	return out, err
}

func (c *APIClient) ChannelMessages(ctx context.Context, channelID string) ([]chat.PopulatedMessage, error) {
	var out []chat.PopulatedMessage
	err := c.do(ctx, http.MethodGet, "/api/channels/"+url.PathEscape(channelID)+"/messages", nil, &out)
	return out, err
}

func (c *APIClient) MarkSeen(ctx context.Context, userID string) error {
	return c.do(ctx, http.MethodPost, "/api/messages/update-unseen-messages", map[string]string{"userId": userID}, nil)
}

func (c *APIClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	var envelope struct {
		Error string          `json:"error"`
		Data  json.RawMessage `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil && err != io.EOF {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return &APIError{Status: resp.StatusCode, Message: envelope.Error}
	}
	if out == nil || len(envelope.Data) == 0 {
		return nil
	}
	return json.Unmarshal(envelope.Data, out)
}
