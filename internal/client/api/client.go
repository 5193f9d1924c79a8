// Package api is a small JSON-over-HTTP client for the onechat server.
//
// Every call mirrors one server route. Calls that need a session send the
// token as "Authorization: Bearer". Server-side failures come back as *Error,
// which unwraps to ErrUnauthorized or ErrNotFound where that applies, and
// transport failures wrap ErrUnavailable.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/onechat/internal/common"
)

type GroupSummary struct {
	Name   string `json:"name"`
	Number string `json:"number"`
}

type Profile struct {
	UserName string         `json:"username"`
	Name     string         `json:"name"`
	Groups   []GroupSummary `json:"groups"`
}

type GroupInfo struct {
	Name    string   `json:"name"`
	Number  string   `json:"number"`
	Members []string `json:"members"`
}

type Message struct {
	Sender  string `json:"sender"`
	Message string `json:"message"`
	Time    string `json:"time"`
}

type envelope struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Token    string         `json:"token"`
	UserName string         `json:"username"`
	Name     string         `json:"name"`
	Number   string         `json:"number"`
	Groups   []GroupSummary `json:"groups"`
	Members  []string       `json:"members"`
	Messages []Message      `json:"messages"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) Signup(ctx context.Context, userName string, password []byte, name string) (string, error) {
	env, err := c.post(ctx, "/signup", "", map[string]string{
		"username": userName,
		"password": string(password),
		"name":     name,
	})
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// Login returns the session token.
func (c *Client) Login(ctx context.Context, userName string, password []byte) (string, error) {
	env, err := c.post(ctx, "/login", "", map[string]string{
		"username": userName,
		"password": string(password),
	})
	if err != nil {
		return "", err
	}
	return env.Token, nil
}

func (c *Client) Logout(ctx context.Context, token string) error {
	_, err := c.post(ctx, "/logout", token, nil)
	return err
}

func (c *Client) Profile(ctx context.Context, token string) (*Profile, error) {
	env, err := c.post(ctx, "/profile", token, nil)
	if err != nil {
		return nil, err
	}
	return &Profile{UserName: env.UserName, Name: env.Name, Groups: env.Groups}, nil
}

func (c *Client) UpdateProfile(ctx context.Context, token, newName string) error {
	_, err := c.post(ctx, "/update_profile", token, map[string]string{"newName": newName})
	return err
}

func (c *Client) CreateGroup(ctx context.Context, token, number, name string) (string, error) {
	env, err := c.post(ctx, "/create_group", token, map[string]string{
		"groupNumber": number,
		"groupName":   name,
	})
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *Client) JoinGroup(ctx context.Context, token, number string) (string, error) {
	env, err := c.post(ctx, "/join_group", token, map[string]string{"groupNumber": number})
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

func (c *Client) GroupInfo(ctx context.Context, token, number string) (*GroupInfo, error) {
	env, err := c.post(ctx, "/group_info/"+url.PathEscape(number), token, nil)
	if err != nil {
		return nil, err
	}
	return &GroupInfo{Name: env.Name, Number: env.Number, Members: env.Members}, nil
}

func (c *Client) SendMessage(ctx context.Context, token, number, body string) error {
	_, err := c.post(ctx, "/send_message", token, map[string]string{
		"groupNumber": number,
		"message":     body,
	})
	return err
}

func (c *Client) GetMessages(ctx context.Context, token, number string) ([]Message, error) {
	env, err := c.post(ctx, "/get_messages/"+url.PathEscape(number), token, nil)
	if err != nil {
		return nil, err
	}
	return env.Messages, nil
}

func (c *Client) post(ctx context.Context, path, token string, payload any) (*envelope, error) {
	var body io.Reader = http.NoBody
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	env := &envelope{}
	if err := json.NewDecoder(resp.Body).Decode(env); err != nil {
		return nil, fmt.Errorf("decode %s response (%d): %w", path, resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK || !env.Success {
		return nil, &Error{Status: resp.StatusCode, Message: env.Message}
	}
	return env, nil
}
