package destination

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"tina/internal/eew"
	"tina/internal/router"
	"tina/internal/telemetry/logging"
)

const (
	slackColorWarning = "warning"
	slackColorInfo    = "#439FE0"
)

type slackAttachment struct {
	Fallback string `json:"fallback"`
	Text     string `json:"text"`
	Footer   string `json:"footer"`
	Color    string `json:"color"`
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

// SlackWorker posts the short-form summary to a Slack incoming webhook.
type SlackWorker struct {
	webhookURL string
	client     *http.Client
	logger     logging.Logger
	metrics    *Metrics
}

// SetMetrics attaches the shared delivery counters.
func (w *SlackWorker) SetMetrics(m *Metrics) { w.metrics = m }

// NewSlackWorker constructs a SlackWorker posting to webhookURL.
func NewSlackWorker(webhookURL string, logger logging.Logger) *SlackWorker {
	if logger == nil {
		logger = logging.New(nil)
	}
	return &SlackWorker{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

func (w *SlackWorker) Run(ctx context.Context, deliveries <-chan router.Delivery) {
	RunLoop(ctx, deliveries, func(ctx context.Context, d router.Delivery) {
		header, body, footer, ok := FormatShortParts(d.Latest, d.Previous)
		if !ok {
			return
		}
		text := fmt.Sprintf("[%s] %s", header, body)

		err := w.post(ctx, text, footer, slackColor(d.Latest))
		if err != nil {
			w.logger.ErrorCtx(ctx, "slack delivery failed", slog.String("error", err.Error()), slog.String("id", d.Latest.ID), slog.String("delivery", d.DeliveryID))
		}
		w.metrics.observe("slack", err)
	})
}

func slackColor(e *eew.Event) string {
	if phase, ok := e.Phase(); ok && phase == eew.PhaseAlert {
		return slackColorWarning
	}
	return slackColorInfo
}

func (w *SlackWorker) post(ctx context.Context, text, footer, color string) error {
	payload := slackPayload{Attachments: []slackAttachment{{
		Fallback: text,
		Text:     text,
		Footer:   footer,
		Color:    color,
	}}}
	body, err := json.Marshal(payload)
	if err != nil {
		return newDeliveryError(ErrUnknown, err.Error())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.webhookURL, bytes.NewReader(body))
	if err != nil {
		return newDeliveryError(ErrNetwork, err.Error())
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return newDeliveryError(ErrNetwork, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return newDeliveryError(ErrRejected, fmt.Sprintf("status %d", resp.StatusCode))
	}
	return nil
}
