package notify

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/TickPredictor/models"
)

// TelegramNotifier pushes actionable trade intents to a Telegram chat.
// A nil notifier is safe to call and does nothing, so callers never need
// to branch on whether notifications are configured.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger zerolog.Logger
}

// NewTelegram creates a notifier, or nil when token or chat id are
// unset.
func NewTelegram(token string, chatID int64) (*TelegramNotifier, error) {
	if token == "" || chatID == 0 {
		return nil, nil
	}

	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}

	return &TelegramNotifier{
		bot:    bot,
		chatID: chatID,
		logger: log.With().Str("component", "telegram_notifier").Logger(),
	}, nil
}

// SendIntent formats and sends a trade intent. HOLD intents are skipped.
func (n *TelegramNotifier) SendIntent(intent models.TradeIntent) error {
	if n == nil || !intent.Actionable() {
		return nil
	}

	text := fmt.Sprintf(
		"📊 *%s %s*\n"+
			"Confidence: %.1f%% (%s)\n"+
			"Lot: %.2f | SL: %d pips | TP: %d pips\n"+
			"Valid until: %s UTC\n"+
			"_%s_",
		intent.Action, intent.Symbol,
		intent.Confidence*100, intent.Strength,
		intent.LotSize, intent.StopLossPips, intent.TakeProfitPips,
		intent.ValidUntil.UTC().Format(models.TimestampLayout),
		intent.Reason,
	)

	msg := tgbotapi.NewMessage(n.chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := n.bot.Send(msg); err != nil {
		return fmt.Errorf("sending telegram message: %w", err)
	}

	n.logger.Info().Str("action", intent.Action).Msg("trade intent sent to telegram")
	return nil
}
