package telegram

import (
	"context"
	"strconv"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/PaulSonOfLars/gotgbot/v2/ext"
	"go.uber.org/zap"

	"spinwheel/internal/ledger"
	"spinwheel/internal/logger"
	"spinwheel/internal/login"
	"spinwheel/internal/referral"
)

const (
	MessageWelcome      = "Welcome! Please start the login process from our website."
	MessageInvalidToken = "This login link is invalid or has expired."
	MessageAlreadyUsed  = "This login link has already been used."
	MessageLoggedIn     = "You have successfully logged in! You can now return to the website."
	MessageFailure      = "Something went wrong, please try again."
	ButtonWebsite       = "Go to Website"
)

type Fulfiller interface {
	FulfillLogin(ctx context.Context, token string, identity referral.Identity, code string) (login.FulfillResult, *ledger.User, error)
}

// Reply is what the bot answers to a /start update.
type Reply struct {
	Text string
	Url  string // optional link button
}

type StartHandler struct {
	Login  Fulfiller
	WebUrl string
}

// ParsePayload splits a /start payload into the login token and the
// optional referral code: "<token>" or "<token>_<code>".
func ParsePayload(payload string) (token string, code string) {
	payload = strings.TrimSpace(payload)
	token, code, _ = strings.Cut(payload, "_")
	return token, code
}

// BuildPayload is the inverse of ParsePayload.
func BuildPayload(token string, code string) string {
	if code == "" {
		return token
	}
	return token + "_" + code
}

func (h *StartHandler) Reply(ctx context.Context, payload string, identity referral.Identity) Reply {
	token, code := ParsePayload(payload)
	if token == "" {
		return Reply{Text: MessageWelcome}
	}
	result, user, err := h.Login.FulfillLogin(ctx, token, identity, code)
	if err != nil {
		logger.Error("fulfill login", zap.String("user", identity.Id), zap.Error(err))
		return Reply{Text: MessageFailure}
	}
	switch result {
	case login.FulfillInvalidToken:
		return Reply{Text: MessageInvalidToken}
	case login.FulfillAlreadyUsed:
		return Reply{Text: MessageAlreadyUsed}
	}
	logger.Info("telegram login", zap.String("user", user.Id))
	return Reply{Text: MessageLoggedIn, Url: h.WebUrl}
}

// Handle is the gotgbot response for the /start command.
func (h *StartHandler) Handle(b *gotgbot.Bot, ctx *ext.Context) error {
	msg := ctx.EffectiveMessage
	from := ctx.EffectiveUser
	if msg == nil || from == nil {
		return nil
	}
	payload := ""
	if args := ctx.Args(); len(args) > 1 {
		payload = args[1]
	}
	reply := h.Reply(context.Background(), payload, referral.Identity{
		Id:        strconv.FormatInt(from.Id, 10),
		FirstName: from.FirstName,
		LastName:  from.LastName,
		Username:  from.Username,
	})
	opts := &gotgbot.SendMessageOpts{}
	if reply.Url != "" {
		opts.ReplyMarkup = gotgbot.InlineKeyboardMarkup{
			InlineKeyboard: [][]gotgbot.InlineKeyboardButton{{
				{Text: ButtonWebsite, Url: reply.Url},
			}},
		}
	}
	_, err := msg.Reply(b, reply.Text, opts)
	return err
}
