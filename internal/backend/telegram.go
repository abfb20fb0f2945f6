// ABOUTME: Telegram channel endpoints: status, connect by token/server token/file, bind agent
// ABOUTME: Bot tokens are stripped of whitespace and length-checked before sending

package backend

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"unicode"
)

// Telegram bot token length bounds.
const (
	minBotTokenLen = 40
	maxBotTokenLen = 70
)

// ErrInvalidBotToken is returned when a token cannot be a Telegram bot token.
var ErrInvalidBotToken = errors.New("invalid telegram bot token")

// NormalizeBotToken removes all whitespace and checks the length.
func NormalizeBotToken(raw string) (string, error) {
	token := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)
	if len(token) < minBotTokenLen || len(token) > maxBotTokenLen {
		return "", fmt.Errorf("%w: expected %d-%d characters, got %d", ErrInvalidBotToken, minBotTokenLen, maxBotTokenLen, len(token))
	}
	return token, nil
}

// TelegramDeepLink is the t.me link that starts a chat bound to the tenant.
func TelegramDeepLink(botUsername, tenantID string) string {
	bot := strings.TrimPrefix(botUsername, "@")
	if bot == "" {
		return ""
	}
	link := "https://t.me/" + url.PathEscape(bot)
	if tenantID != "" {
		link += "?start=t_" + url.QueryEscape(tenantID)
	}
	return link
}

// TelegramStatus returns the tenant's Telegram bot.
func (c *Client) TelegramStatus(ctx context.Context, creds Credentials) (*TelegramStatus, error) {
	var out TelegramStatus
	if err := c.Do(ctx, creds, http.MethodGet, "/telegram/status", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConnectTelegram connects a bot by token. The token travels base64 encoded
// so proxies that mangle long opaque strings leave it alone.
func (c *Client) ConnectTelegram(ctx context.Context, creds Credentials, rawToken string) (*Result, error) {
	token, err := NormalizeBotToken(rawToken)
	if err != nil {
		return nil, err
	}
	body := map[string]string{
		"bot_token_b64": base64.StdEncoding.EncodeToString([]byte(token)),
	}
	var out Result
	if err := c.Do(ctx, creds, http.MethodPost, "/telegram/connect", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConnectTelegramServerToken connects using the platform's own bot token.
func (c *Client) ConnectTelegramServerToken(ctx context.Context, creds Credentials) (*Result, error) {
	var out Result
	body := map[string]bool{"use_server_token": true}
	if err := c.Do(ctx, creds, http.MethodPost, "/telegram/connect", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ConnectTelegramFile connects with a token read from an uploaded text file.
func (c *Client) ConnectTelegramFile(ctx context.Context, creds Credentials, filename string, content io.Reader) (*Result, error) {
	if content == nil {
		return nil, ErrNoFile
	}
	if filename == "" {
		filename = "token.txt"
	}
	var out Result
	if err := c.Upload(ctx, creds, "/telegram/connect-with-file", "token_file", filename, content, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CheckServerToken asks whether the platform-wide bot token is valid.
func (c *Client) CheckServerToken(ctx context.Context, creds Credentials) (*ServerTokenCheck, error) {
	var out ServerTokenCheck
	if err := c.Do(ctx, creds, http.MethodGet, "/telegram/check-server-token", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SetTelegramAgent binds the agent that answers Telegram. Empty unbinds.
func (c *Client) SetTelegramAgent(ctx context.Context, creds Credentials, agentID string) error {
	return c.Do(ctx, creds, http.MethodPatch, "/telegram/agent", agentBinding(agentID), nil)
}

// DisconnectTelegram removes the bot.
func (c *Client) DisconnectTelegram(ctx context.Context, creds Credentials) error {
	return c.Do(ctx, creds, http.MethodDelete, "/telegram/disconnect", nil, nil)
}
