package notifier

import (
	"context"
	"net/http"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/instaflow/pkg/domain/model"
	"github.com/slack-go/slack"
)

// Slack posts reminder digests to an incoming webhook
type Slack struct {
	webhookURL string
	client     *http.Client
}

type SlackOption func(*Slack)

// WithSlackHTTPClient replaces the client used to call the webhook
func WithSlackHTTPClient(client *http.Client) SlackOption {
	return func(s *Slack) {
		s.client = client
	}
}

// NewSlack returns a notifier for webhookURL. An empty URL yields a notifier
// that reports ErrNotConfigured.
func NewSlack(webhookURL string, opts ...SlackOption) *Slack {
	s := &Slack{
		webhookURL: webhookURL,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Slack) Name() string {
	return "slack"
}

func (s *Slack) Notify(ctx context.Context, _ *model.Settings, message string) error {
	if s.webhookURL == "" {
		return goerr.Wrap(model.ErrNotConfigured, "slack webhook URL is not set")
	}

	msg := &slack.WebhookMessage{
		Text: message,
		Blocks: &slack.Blocks{
			BlockSet: []slack.Block{
				slack.NewSectionBlock(slack.NewTextBlockObject(slack.PlainTextType, message, false, false), nil, nil),
			},
		},
	}
	if err := slack.PostWebhookCustomHTTPContext(ctx, s.webhookURL, s.client, msg); err != nil {
		return goerr.Wrap(err, "failed to post slack webhook")
	}
	return nil
}
