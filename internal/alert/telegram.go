package alert

import (
	"fmt"

	"go.uber.org/zap"
	tele "gopkg.in/telebot.v3"

	"rentradar/internal/models"
)

// Notifier surfaces silent policy actions to an operator channel.
type Notifier interface {
	SourceQuarantined(src *models.Source)
}

type telegramNotifier struct {
	bot    *tele.Bot
	chat   *tele.Chat
	logger *zap.Logger
}

type noopNotifier struct{}

func (noopNotifier) SourceQuarantined(*models.Source) {}

// New builds a Telegram notifier, falling back to a no-op when the channel
// is unconfigured or unreachable. Alert failures never propagate.
func New(token string, chatID int64, logger *zap.Logger) Notifier {
	if token == "" || chatID == 0 {
		return noopNotifier{}
	}

	bot, err := tele.NewBot(tele.Settings{Token: token})
	if err != nil {
		logger.Warn("Telegram alerts disabled, bot init failed", zap.Error(err))
		return noopNotifier{}
	}

	return &telegramNotifier{
		bot:    bot,
		chat:   &tele.Chat{ID: chatID},
		logger: logger,
	}
}

func (n *telegramNotifier) SourceQuarantined(src *models.Source) {
	text := fmt.Sprintf(
		"🚫 Source quarantined\nName: %s\nURL: %s\nConsecutive failures: %d\nLast error: %s",
		src.Name, src.URL, src.ConsecutiveFailures, src.LastError,
	)
	if _, err := n.bot.Send(n.chat, text); err != nil {
		n.logger.Warn("Failed to send quarantine alert",
			zap.Uint("source_id", src.ID), zap.Error(err))
	}
}
