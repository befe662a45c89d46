package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"
)

// WhatsApp adapts the WhatsApp Business Cloud API.
type WhatsApp struct {
	accessToken   string
	verifyToken   string
	appSecret     string
	phoneNumberID string
	graphAPIBase  string
	httpClient    *http.Client
}

// NewWhatsApp creates the WhatsApp adapter. phoneNumberID is the
// business phone number the Cloud API sends from; appSecret keys the
// webhook payload signature, empty disables the check.
func NewWhatsApp(accessToken, verifyToken, appSecret, phoneNumberID string) *WhatsApp {
	return &WhatsApp{
		accessToken:   accessToken,
		verifyToken:   verifyToken,
		appSecret:     appSecret,
		phoneNumberID: phoneNumberID,
		graphAPIBase:  defaultGraphAPIBase,
		httpClient:    &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (a *WhatsApp) SetGraphAPIBase(base string) {
	a.graphAPIBase = base
}

func (a *WhatsApp) Name() string        { return NameWhatsApp }
func (a *WhatsApp) VerifyToken() string { return a.verifyToken }

// VerifySignature checks the Cloud API payload signature.
func (a *WhatsApp) VerifySignature(header http.Header, body []byte) error {
	return verifyMetaSignature("whatsapp", a.appSecret, header, body)
}

type waWebhookEvent struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      *struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseInbound extracts text messages from a Cloud API webhook event.
// Status updates and non-text messages are skipped.
func (a *WhatsApp) ParseInbound(body []byte) ([]Message, error) {
	var event waWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("whatsapp: decode webhook event: %w", err)
	}

	var messages []Message
	for _, entry := range event.Entry {
		for _, change := range entry.Changes {
			for _, m := range change.Value.Messages {
				if m.Type != "text" || m.Text == nil {
					continue
				}
				received := time.Now()
				if secs, err := strconv.ParseInt(m.Timestamp, 10, 64); err == nil {
					received = time.Unix(secs, 0)
				}
				messages = append(messages, Message{
					Platform:   NameWhatsApp,
					SenderID:   m.From,
					Text:       m.Text.Body,
					MessageID:  m.ID,
					ReceivedAt: received,
				})
			}
		}
	}
	return messages, nil
}

type waSendRequest struct {
	MessagingProduct string `json:"messaging_product"`
	To               string `json:"to"`
	Type             string `json:"type"`
	Text             struct {
		Body string `json:"body"`
	} `json:"text"`
}

// SendText sends a plain text message via the Cloud API.
func (a *WhatsApp) SendText(ctx context.Context, recipientID, text string) error {
	req := waSendRequest{
		MessagingProduct: "whatsapp",
		To:               recipientID,
		Type:             "text",
	}
	req.Text.Body = text

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("whatsapp: marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", a.graphAPIBase, a.phoneNumberID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("whatsapp: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+a.accessToken)

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("whatsapp: send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("whatsapp: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
