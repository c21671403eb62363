package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"waterbot/internal/core"
	"waterbot/internal/log"
)

// handleTimeout bounds the work done for one incoming message.
const handleTimeout = 15 * time.Second

// Sender is the part of tgbotapi.BotAPI used to answer messages.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Telegram long-polls the Bot API and answers every text message through
// the interpreter. Messages are handled one at a time in arrival order.
type Telegram struct {
	api         *tgbotapi.BotAPI
	sender      Sender
	interpreter *Interpreter
	logger      *log.Logger
	pollTimeout time.Duration
}

func NewTelegram(token string, interpreter *Interpreter, logger *log.Logger, pollTimeout time.Duration) (*Telegram, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("connect to telegram: %w", err)
	}
	t := newTelegram(api, interpreter, logger, pollTimeout)
	t.api = api
	t.logger.Info("Authorized on Telegram", "username", api.Self.UserName)
	return t, nil
}

func newTelegram(sender Sender, interpreter *Interpreter, logger *log.Logger, pollTimeout time.Duration) *Telegram {
	if pollTimeout < time.Second {
		pollTimeout = 30 * time.Second
	}
	return &Telegram{
		sender:      sender,
		interpreter: interpreter,
		logger:      logger.WithComponent(log.ComponentTelegram),
		pollTimeout: pollTimeout,
	}
}

// Run receives updates until ctx is cancelled.
func (t *Telegram) Run(ctx context.Context) error {
	if t.api == nil {
		return errors.New("telegram client not initialized")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = int(t.pollTimeout / time.Second)
	updates := t.api.GetUpdatesChan(u)

	t.logger.InfoContext(ctx, "Started long polling", "timeout", t.pollTimeout)

	for {
		select {
		case <-ctx.Done():
			t.api.StopReceivingUpdates()
			t.logger.InfoContext(ctx, "Stopped long polling", "reason", ctx.Err())
			return nil
		case update, ok := <-updates:
			if !ok {
				return errors.New("telegram updates channel closed")
			}
			t.handleUpdate(ctx, update)
		}
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Chat == nil {
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	user := core.UserID(strconv.FormatInt(msg.From.ID, 10))
	reply := t.interpreter.HandleText(ctx, user, msg.Text)

	out := tgbotapi.NewMessage(msg.Chat.ID, reply.Text)
	out.ReplyMarkup = Keyboard()
	if _, err := t.sender.Send(out); err != nil {
		t.logger.ErrorContext(ctx, "Failed to send reply",
			log.FieldUserID, user,
			"chat_id", msg.Chat.ID,
			log.FieldErrorType, log.ErrorTypeNetwork,
			log.FieldError, err)
	}
}

// Keyboard is the persistent reply keyboard with the quick-add buttons.
func Keyboard() tgbotapi.ReplyKeyboardMarkup {
	button := func(ml int) tgbotapi.KeyboardButton {
		return tgbotapi.NewKeyboardButton("+" + strconv.Itoa(ml))
	}
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(button(QuickAmounts[0]), button(QuickAmounts[1]), button(QuickAmounts[2])),
		tgbotapi.NewKeyboardButtonRow(button(QuickAmounts[3]), button(QuickAmounts[4])),
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton(ButtonStats), tgbotapi.NewKeyboardButton(ButtonUndo)),
	)
	kb.ResizeKeyboard = true
	return kb
}
