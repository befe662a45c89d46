package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultGraphAPIBase = "https://graph.facebook.com/v18.0"
	defaultHTTPTimeout  = 10 * time.Second
)

// Instagram adapts Meta's Instagram messaging Graph API.
type Instagram struct {
	accessToken  string
	verifyToken  string
	appSecret    string
	graphAPIBase string
	httpClient   *http.Client
}

// NewInstagram creates the Instagram adapter. appSecret keys the
// webhook payload signature, empty disables the check.
func NewInstagram(accessToken, verifyToken, appSecret string) *Instagram {
	return &Instagram{
		accessToken:  accessToken,
		verifyToken:  verifyToken,
		appSecret:    appSecret,
		graphAPIBase: defaultGraphAPIBase,
		httpClient:   &http.Client{Timeout: defaultHTTPTimeout},
	}
}

// SetGraphAPIBase overrides the Graph API base URL (useful for testing).
func (a *Instagram) SetGraphAPIBase(base string) {
	a.graphAPIBase = base
}

func (a *Instagram) Name() string        { return NameInstagram }
func (a *Instagram) VerifyToken() string { return a.verifyToken }

// VerifySignature checks the Graph API payload signature.
func (a *Instagram) VerifySignature(header http.Header, body []byte) error {
	return verifyMetaSignature("instagram", a.appSecret, header, body)
}

type metaWebhookEvent struct {
	Entry []struct {
		Messaging []struct {
			Sender struct {
				ID string `json:"id"`
			} `json:"sender"`
			Timestamp int64 `json:"timestamp"`
			Message   *struct {
				MID  string `json:"mid"`
				Text string `json:"text"`
			} `json:"message"`
		} `json:"messaging"`
	} `json:"entry"`
}

// ParseInbound extracts text messages from a Messenger-platform webhook
// event. Delivery/read/postback entries are skipped.
func (a *Instagram) ParseInbound(body []byte) ([]Message, error) {
	var event metaWebhookEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return nil, fmt.Errorf("instagram: decode webhook event: %w", err)
	}

	var messages []Message
	for _, entry := range event.Entry {
		for _, m := range entry.Messaging {
			if m.Message == nil || m.Message.Text == "" {
				continue
			}
			messages = append(messages, Message{
				Platform:   NameInstagram,
				SenderID:   m.Sender.ID,
				Text:       m.Message.Text,
				MessageID:  m.Message.MID,
				ReceivedAt: time.UnixMilli(m.Timestamp),
			})
		}
	}
	return messages, nil
}

type metaSendRequest struct {
	Recipient struct {
		ID string `json:"id"`
	} `json:"recipient"`
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
}

type metaSendResponse struct {
	MessageID string `json:"message_id"`
	Error     *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText sends a plain text message via the Graph API.
func (a *Instagram) SendText(ctx context.Context, recipientID, text string) error {
	var req metaSendRequest
	req.Recipient.ID = recipientID
	req.Message.Text = text

	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("instagram: marshal send request: %w", err)
	}

	url := fmt.Sprintf("%s/me/messages?access_token=%s", a.graphAPIBase, a.accessToken)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("instagram: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("instagram: send message: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("instagram: read response: %w", err)
	}

	var sendResp metaSendResponse
	if err := json.Unmarshal(respBody, &sendResp); err != nil {
		return fmt.Errorf("instagram: unmarshal response: %w", err)
	}
	if sendResp.Error != nil {
		return fmt.Errorf("instagram: API error %d: %s", sendResp.Error.Code, sendResp.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("instagram: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
