package api

import (
	"strconv"
	"time"

	"github.com/sentinelstack/risk-engine/internal/models"
	"github.com/sentinelstack/risk-engine/internal/utils"
)

// ChannelAdapter normalizes a channel-specific webhook payload into an
// IngestedEvent. Adapters are lenient: missing fields fall back to empty
// content, an "unknown" sender, or the current time rather than failing.
type ChannelAdapter interface {
	Transform(payload map[string]any) models.IngestedEvent
}

// TelegramAdapter handles Telegram bot webhook updates.
type TelegramAdapter struct{}

func (TelegramAdapter) Transform(payload map[string]any) models.IngestedEvent {
	message, _ := payload["message"].(map[string]any)
	fromUser, _ := message["from"].(map[string]any)

	sender := "unknown"
	switch id := fromUser["id"].(type) {
	case float64:
		sender = strconv.FormatInt(int64(id), 10)
	case string:
		sender = id
	}

	timestamp := time.Now().UTC()
	if date, ok := message["date"].(float64); ok {
		timestamp = time.Unix(int64(date), 0).UTC()
	}

	content, _ := message["text"].(string)
	return models.IngestedEvent{
		Source:    "telegram",
		Sender:    sender,
		Content:   content,
		Timestamp: timestamp,
	}
}

// EmailAdapter handles inbound email relay payloads.
type EmailAdapter struct{}

func (EmailAdapter) Transform(payload map[string]any) models.IngestedEvent {
	sender, ok := payload["from"].(string)
	if !ok || sender == "" {
		sender = "unknown"
	}

	timestamp := time.Now().UTC()
	if date, ok := payload["date"].(string); ok {
		if parsed, err := utils.ParseRFC3339(date); err == nil {
			timestamp = parsed.UTC()
		}
	}

	content, _ := payload["body"].(string)
	return models.IngestedEvent{
		Source:    "email",
		Sender:    sender,
		Content:   content,
		Timestamp: timestamp,
	}
}

// WhatsAppAdapter handles WhatsApp business webhook payloads. Provider
// payloads carry no usable timestamp, so ingestion time is used.
type WhatsAppAdapter struct{}

func (WhatsAppAdapter) Transform(payload map[string]any) models.IngestedEvent {
	sender, ok := payload["sender_number"].(string)
	if !ok || sender == "" {
		sender = "unknown"
	}

	content, _ := payload["message_text"].(string)
	return models.IngestedEvent{
		Source:    "whatsapp",
		Sender:    sender,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}
