// Package linebot adapts the LINE Messaging API to the dispatcher's
// transport-neutral message batches.
package linebot

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"
	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"
)

// Client wraps the messaging and blob APIs for one channel.
type Client struct {
	api           *messaging_api.MessagingApiAPI
	blob          *messaging_api.MessagingApiBlobAPI
	channelSecret string
	staticDir     string
}

func NewClient(channelSecret, channelToken, staticDir string) (*Client, error) {
	api, err := messaging_api.NewMessagingApiAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("messaging api: %w", err)
	}
	blob, err := messaging_api.NewMessagingApiBlobAPI(channelToken)
	if err != nil {
		return nil, fmt.Errorf("blob api: %w", err)
	}
	return &Client{
		api:           api,
		blob:          blob,
		channelSecret: channelSecret,
		staticDir:     staticDir,
	}, nil
}

// ParseRequest verifies the webhook signature and decodes the callback
// envelope.
func (c *Client) ParseRequest(r *http.Request) (*webhook.CallbackRequest, error) {
	return webhook.ParseRequest(c.channelSecret, r)
}

// Reply sends one batch against a reply token. The token is good for
// exactly one call, so the whole batch goes out together.
func (c *Client) Reply(replyToken string, batch []messaging_api.MessageInterface) error {
	if len(batch) == 0 {
		return nil
	}
	_, err := c.api.ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   batch,
	})
	if err != nil {
		return fmt.Errorf("reply message: %w", err)
	}
	return nil
}

// DisplayName resolves the user's current profile name. Lookup failures
// degrade to a placeholder so ledger writes never block on the profile
// API.
func (c *Client) DisplayName(ctx context.Context, userID string) string {
	profile, err := c.api.GetProfile(userID)
	if err != nil {
		log.Printf("profile lookup failed for %s: %v", userID, err)
		return "未知用戶"
	}
	return profile.DisplayName
}

// SaveMessageContent downloads an uploaded media body into the static
// dir under a fresh name and returns the local path.
func (c *Client) SaveMessageContent(messageID string) (string, error) {
	resp, err := c.blob.GetMessageContent(messageID)
	if err != nil {
		return "", fmt.Errorf("get message content: %w", err)
	}
	defer resp.Body.Close()

	path := filepath.Join(c.staticDir, "upload_"+uuid.NewString()+".jpg")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, resp.Body); err != nil {
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return path, nil
}
