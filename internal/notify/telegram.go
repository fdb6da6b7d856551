// Package notify sends fire-and-forget operator notifications via Telegram.
package notify

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

// Telegram bot API limit is well above this; 20 messages per minute keeps a
// safe buffer.
const (
	rateWindow   = time.Minute
	rateMessages = 20
)

// Telegram posts messages to a fixed chat. Sends never block the caller and
// never fail it; over-limit messages are dropped.
type Telegram struct {
	botToken string
	chatID   string
	limiter  *rate.Limiter
	client   *http.Client
	endpoint string
}

// NewTelegram creates a notifier. Empty credentials yield a notifier that
// silently drops everything, so callers need no configuration checks.
func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		botToken: botToken,
		chatID:   chatID,
		limiter:  rate.NewLimiter(rate.Every(rateWindow/rateMessages), rateMessages),
		client:   &http.Client{Timeout: 5 * time.Second},
		endpoint: "https://api.telegram.org",
	}
}

// Notify queues one plain-text message for delivery and returns immediately.
// The message is escaped for Telegram's HTML parse mode, so callers may pass
// arbitrary text.
func (t *Telegram) Notify(message string) {
	if t.botToken == "" || t.chatID == "" {
		return
	}
	if !t.limiter.Allow() {
		return
	}
	go t.send(EscapeHTML(message))
}

func (t *Telegram) send(message string) {
	body, err := json.Marshal(map[string]string{
		"chat_id":    t.chatID,
		"text":       message,
		"parse_mode": "HTML",
	})
	if err != nil {
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.endpoint, t.botToken)
	resp, err := t.client.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		log.Printf("[NOTIFY] telegram send failed: %v", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("[NOTIFY] telegram send returned status %d", resp.StatusCode)
	}
}

// EscapeHTML escapes characters Telegram's HTML parse mode treats specially.
func EscapeHTML(text string) string {
	text = strings.ReplaceAll(text, "&", "&amp;")
	text = strings.ReplaceAll(text, "<", "&lt;")
	text = strings.ReplaceAll(text, ">", "&gt;")
	return text
}
