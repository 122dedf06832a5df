package workflows

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type SlackPayload struct {
	Text string `json:"text"`
}

// SlackNotifier posts workflow failures to an incoming webhook. A notifier without a
// webhook URL drops reports.
type SlackNotifier struct {
	webhookURL string
	client     *http.Client
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		webhookURL: webhookURL,
		client: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// ErrSlackDisabled is returned when no webhook URL is configured.
var ErrSlackDisabled = errors.New("SLACK_WEBHOOK_URL is not set")

// ReportError posts an error message to the alerts channel.
func (n *SlackNotifier) ReportError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if n == nil || n.webhookURL == "" {
		return ErrSlackDisabled
	}

	message := fmt.Sprintf(
		":rotating_light: *AEO Pipeline Error*\n"+
			"*Time:* %s\n"+
			"*Error:* ```%s```",
		time.Now().UTC().Format(time.RFC3339),
		err.Error(),
	)

	body, err := json.Marshal(SlackPayload{Text: message})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("slack webhook returned status %d", resp.StatusCode)
	}
	return nil
}

// ReportWorkflowFailure reports a workflow failure with the subject it was processing.
func (n *SlackNotifier) ReportWorkflowFailure(ctx context.Context, workflow, subject, reason string, err error) error {
	if err == nil {
		return nil
	}

	if workflow == "" {
		workflow = "unknown"
	}
	if subject == "" {
		subject = "unknown"
	}
	if reason == "" {
		reason = "unknown"
	}

	return n.ReportError(ctx, fmt.Errorf(
		"workflow failed: workflow=%s reason=%s subject=%s error=%v",
		workflow,
		reason,
		subject,
		err,
	))
}
