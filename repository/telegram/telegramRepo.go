package telegramrepo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"booklibrary/util/httpx"
)

const (
	maxAttempts  = 3
	retryBackoff = 2 * time.Second
)

// Notifier delivers fire-and-forget user notifications. Callers never treat a
// delivery failure as fatal.
type Notifier interface {
	Notify(ctx context.Context, chatID, text string) error
}

type httpNotifier struct {
	sendMessageURL string
	client         *http.Client
}

func NewHTTP(botToken string) Notifier {
	return &httpNotifier{
		sendMessageURL: fmt.Sprintf("https://api.telegram.org/bot%s/sendMessage", botToken),
		client:         httpx.Client(),
	}
}

func (n *httpNotifier) Notify(ctx context.Context, chatID, text string) error {
	payload, _ := json.Marshal(map[string]string{
		"chat_id": chatID,
		"text":    text,
	})

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * retryBackoff):
			}
		}
		lastErr = n.send(ctx, payload)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("telegram sendMessage failed after %d attempts: %w", maxAttempts, lastErr)
}

func (n *httpNotifier) send(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.sendMessageURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("telegram sendMessage: %s", resp.Status)
	}
	return nil
}
