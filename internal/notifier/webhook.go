package notifier

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/soundvault/soundvault/internal/transfer"
)

type Notifier interface {
	Notify(content string) error
}

// WebhookNotifier posts plain-text messages to a webhook (Discord-style
// {"content": ...} payload).
type WebhookNotifier struct {
	WebhookURL string
}

func (n *WebhookNotifier) Notify(content string) error {
	if n.WebhookURL == "" {
		return fmt.Errorf("webhook URL is not set")
	}

	payload := map[string]string{"content": content}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	resp, err := http.Post(n.WebhookURL, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook failed with status %d", resp.StatusCode)
	}

	return nil
}

// TransferObserver bridges the download multicast to a Notifier, announcing
// completed and failed transfers. Notification failures are reported through
// onError; they never disturb delivery to other observers.
type TransferObserver struct {
	notifier Notifier
	onError  func(err error)
}

func NewTransferObserver(n Notifier, onError func(err error)) *TransferObserver {
	if onError == nil {
		onError = func(error) {}
	}

	return &TransferObserver{notifier: n, onError: onError}
}

// HandleTransferEvent implements transfer.Observer.
func (o *TransferObserver) HandleTransferEvent(event transfer.Event) {
	var content string

	switch event.Type {
	case transfer.EventCompleted:
		content = "✅ Download finished: " + event.Reference.String()
	case transfer.EventFailed:
		content = "❌ Download failed: " + event.Reference.String()
	default:
		return
	}

	if err := o.notifier.Notify(content); err != nil {
		o.onError(err)
	}
}
