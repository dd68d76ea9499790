package config

import (
	"log/slog"

	"github.com/secmon-lab/instaflow/pkg/domain/interfaces"
	"github.com/secmon-lab/instaflow/pkg/service/notifier"
	"github.com/urfave/cli/v3"
)

// Notifier holds flags for reminder delivery channels. Telegram credentials
// live in the stored settings; only the API endpoint is configurable here.
type Notifier struct {
	slackWebhookURL  string
	telegramEndpoint string
}

func (x *Notifier) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "slack-webhook-url",
			Usage:       "Slack incoming webhook URL for reminder digests",
			Category:    "Notification",
			Sources:     cli.EnvVars("INSTAFLOW_SLACK_WEBHOOK_URL"),
			Destination: &x.slackWebhookURL,
		},
		&cli.StringFlag{
			Name:        "telegram-api-endpoint",
			Usage:       "Telegram Bot API endpoint format (for testing or proxies)",
			Category:    "Notification",
			Sources:     cli.EnvVars("INSTAFLOW_TELEGRAM_API_ENDPOINT"),
			Destination: &x.telegramEndpoint,
			Hidden:      true,
		},
	}
}

func (x Notifier) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Bool("slack", x.slackWebhookURL != ""),
		slog.String("telegram_endpoint", x.telegramEndpoint),
	)
}

// Configure builds the notifiers. Telegram is always present and skips
// delivery until the settings carry credentials.
func (x *Notifier) Configure() []interfaces.Notifier {
	var opts []notifier.TelegramOption
	if x.telegramEndpoint != "" {
		opts = append(opts, notifier.WithTelegramEndpoint(x.telegramEndpoint))
	}
	notifiers := []interfaces.Notifier{notifier.NewTelegram(opts...)}

	if x.slackWebhookURL != "" {
		notifiers = append(notifiers, notifier.NewSlack(x.slackWebhookURL))
	}
	return notifiers
}
