package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// DefaultLineEndpoint is the LINE Messaging API push endpoint.
const DefaultLineEndpoint = "https://api.line.me/v2/bot/message/push"

// lineMaxText is the LINE text message length limit.
const lineMaxText = 5000

// LineNotifier pushes text messages to one LINE user.
type LineNotifier struct {
	token    string
	userID   string
	endpoint string
	client   *http.Client
}

// NewLineNotifier creates a LINE push notifier.
func NewLineNotifier(channelToken, userID string) *LineNotifier {
	return &LineNotifier{
		token:    channelToken,
		userID:   userID,
		endpoint: DefaultLineEndpoint,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type linePush struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (l *LineNotifier) Send(ctx context.Context, alert Alert) error {
	text := alert.Message
	if text == "" {
		text = alert.Title
	}
	if r := []rune(text); len(r) > lineMaxText {
		text = string(r[:lineMaxText])
	}

	body, err := json.Marshal(linePush{
		To:       l.userID,
		Messages: []lineMessage{{Type: "text", Text: text}},
	})
	if err != nil {
		return fmt.Errorf("line: marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("line: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.token)

	resp, err := l.client.Do(req)
	if err != nil {
		return fmt.Errorf("line: send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("line: unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	log.Printf("[line] pushed alert: %s", alert.Title)
	return nil
}
