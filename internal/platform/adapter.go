// Package platform holds the chat platform adapters. The core depends
// only on the Adapter interface; each platform contributes one variant
// that parses its webhook payload and delivers outbound text.
package platform

import (
	"context"
	"net/http"
	"time"
)

const (
	NameWhatsApp  = "whatsapp"
	NameInstagram = "instagram"
	NameTikTok    = "tiktok"
)

// Message is one inbound user message in platform-neutral form.
type Message struct {
	Platform   string
	SenderID   string
	Text       string
	MessageID  string
	ReceivedAt time.Time
}

// Adapter is the per-platform capability the webhook handlers use.
type Adapter interface {
	// Name returns the platform identifier used in keys and metrics.
	Name() string
	// VerifyToken is the secret echoed during webhook subscription.
	VerifyToken() string
	// VerifySignature authenticates a webhook delivery against the
	// platform's payload signature before the body is trusted. Nil when
	// the signature checks out or no secret is configured.
	VerifySignature(header http.Header, body []byte) error
	// ParseInbound extracts user messages from a webhook body.
	// Non-message events yield an empty slice, not an error.
	ParseInbound(body []byte) ([]Message, error)
	// SendText delivers a reply to the given platform user.
	SendText(ctx context.Context, recipientID, text string) error
}
