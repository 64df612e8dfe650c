// api/notification.go
package api

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// NotificationType defines the severity level of a notification
type NotificationType string

const (
	// ErrorNotification represents critical errors requiring immediate attention
	ErrorNotification NotificationType = "error"
	// WarningNotification represents potential issues that don't block operation
	WarningNotification NotificationType = "warning"
	// SuccessNotification represents successful operations
	SuccessNotification NotificationType = "success"
	// InfoNotification represents general status updates
	InfoNotification NotificationType = "info"
)

// Notifier sends operational emails about sync runs through Mailgun. An
// unconfigured notifier (missing domain, key, or recipient) drops every
// notification after logging it, so sync paths can call it unconditionally.
type Notifier struct {
	cfg    MailgunConfig
	client *http.Client
	source string
}

// NewNotifier builds a notifier from explicit configuration.
func NewNotifier(cfg MailgunConfig) *Notifier {
	return &Notifier{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		source: "Animals Sync API",
	}
}

func (n *Notifier) enabled() bool {
	return n.cfg.Domain != "" && n.cfg.APIKey != "" && n.cfg.To != ""
}

// Notify logs the notification and, when Mailgun is configured, emails it.
// Delivery failures are logged but never fail the sync that triggered them.
func (n *Notifier) Notify(typ NotificationType, message, details string) {
	log.Printf("[%s] %s: %s", strings.ToUpper(string(typ)), message, details)
	if !n.enabled() {
		return
	}
	if err := n.send(typ, message, details); err != nil {
		log.Printf("Failed to send email notification: %v", err)
	}
}

func (n *Notifier) send(typ NotificationType, message, details string) error {
	var subject string
	switch typ {
	case ErrorNotification:
		subject = fmt.Sprintf("[ERROR] Animals Sync: %s", message)
	case WarningNotification:
		subject = fmt.Sprintf("[WARNING] Animals Sync: %s", message)
	case SuccessNotification:
		subject = fmt.Sprintf("[SUCCESS] Animals Sync: %s", message)
	default:
		subject = fmt.Sprintf("[INFO] Animals Sync: %s", message)
	}

	body := fmt.Sprintf(
		"%s\n\n%s\n\nTime: %s\nSource: %s\n\nThis is an automated notification from the Animals Sync API.",
		message, details, time.Now().Format(time.RFC3339), n.source)

	mailgunURL := fmt.Sprintf("https://api.mailgun.net/v3/%s/messages", n.cfg.Domain)
	formData := url.Values{}
	formData.Set("from", fmt.Sprintf("Animals Sync API <animals-sync@%s>", n.cfg.Domain))
	formData.Set("to", n.cfg.To)
	formData.Set("subject", subject)
	formData.Set("text", body)

	req, err := http.NewRequest(http.MethodPost, mailgunURL, strings.NewReader(formData.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.SetBasicAuth("api", n.cfg.APIKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send email notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("mailgun API returned error status: %d, body: %s", resp.StatusCode, preview(respBody))
	}
	return nil
}
