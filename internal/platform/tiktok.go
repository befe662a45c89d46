package platform

import (
	"bytes"
	"context"
	"crypto/hmac"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTikTokAPIBase = "https://business-api.tiktok.com/open_api/v1.3"

// TikTok adapts the TikTok business messaging API.
type TikTok struct {
	accessToken  string
	verifyToken  string
	clientSecret string
	apiBase      string
	httpClient   *http.Client
}

// NewTikTok creates the TikTok adapter. clientSecret keys the webhook
// payload signature, empty disables the check.
func NewTikTok(accessToken, verifyToken, clientSecret string) *TikTok {
	return &TikTok{
		accessToken:  accessToken,
		verifyToken:  verifyToken,
		clientSecret: clientSecret,
		apiBase:      defaultTikTokAPIBase,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetAPIBase overrides the API base URL (useful for testing).
func (a *TikTok) SetAPIBase(base string) {
	a.apiBase = base
}

func (a *TikTok) Name() string        { return NameTikTok }
func (a *TikTok) VerifyToken() string { return a.verifyToken }

const tiktokSignatureHeader = "TikTok-Signature"

// VerifySignature checks the webhook signature TikTok derives from the
// raw body with the app's client secret.
func (a *TikTok) VerifySignature(header http.Header, body []byte) error {
	if a.clientSecret == "" {
		return nil
	}
	signature := header.Get(tiktokSignatureHeader)
	if signature == "" {
		return fmt.Errorf("tiktok: missing %s header", tiktokSignatureHeader)
	}
	if !hmac.Equal([]byte(hmacSHA256Hex(a.clientSecret, body)), []byte(signature)) {
		return fmt.Errorf("tiktok: webhook signature mismatch")
	}
	return nil
}

type tiktokWebhookEvent struct {
	Events []struct {
		Type       string `json:"type"`
		SenderID   string `json:"sender_id"`
		MessageID  string `json:"message_id"`
		Text       string `json:"text"`
		CreateTime int64  `json:"create_time"`
	} `json:"events"`
}

// ParseInbound extracts text messages from a webhook event; other
// event types are skipped.
func (a *TikTok) ParseInbound(body []byte) ([]Message, error) {
	var event tiktokWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("tiktok: decode webhook event: %w", err)
	}

	var messages []Message
	for _, e := range event.Events {
		if e.Type != "message" || e.Text == "" {
			continue
		}
		messages = append(messages, Message{
			Platform:   NameTikTok,
			SenderID:   e.SenderID,
			Text:       e.Text,
			MessageID:  e.MessageID,
			ReceivedAt: time.Unix(e.CreateTime, 0),
		})
	}
	return messages, nil
}

type tiktokSendRequest struct {
	RecipientID string `json:"recipient_id"`
	Text        string `json:"text"`
}

type tiktokSendResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SendText delivers a reply through the business messaging endpoint.
func (a *TikTok) SendText(ctx context.Context, recipientID, text string) error {
	body, err := json.Marshal(tiktokSendRequest{RecipientID: recipientID, Text: text})
	if err != nil {
		return fmt.Errorf("tiktok: marshal send request: %w", err)
	}

	url := a.apiBase + "/business/message/send/"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("tiktok: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Access-Token", a.accessToken)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("tiktok: send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("tiktok: read response: %w", err)
	}

	var sendResp tiktokSendResponse
	if err := json.Unmarshal(respBody, &sendResp); err != nil {
		return fmt.Errorf("tiktok: unmarshal response: %w", err)
	}
	if sendResp.Code != 0 {
		return fmt.Errorf("tiktok: API error %d: %s", sendResp.Code, sendResp.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("tiktok: unexpected status %d", resp.StatusCode)
	}
	return nil
}
