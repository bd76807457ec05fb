package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"
)

// Set at build time with -ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// BotAPI defines the interface for Telegram bot API operations.
type BotAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetFileDirectURL(fileID string) (string, error)
}

// Bot is the main Telegram bot handler.
type Bot struct {
	tg         BotAPI
	state      BotState
	adminID    int64
	generators Generators

	listingHandler *ListingHandler
}

// NewBot creates a new Bot instance. Only adminID may use it.
func NewBot(tg BotAPI, adminID int64, generators Generators, defaultImageCount int) *Bot {
	bot := &Bot{
		tg:         tg,
		adminID:    adminID,
		generators: generators,
	}

	bot.state = bot.NewBotState()
	bot.listingHandler = NewListingHandler(tg, defaultImageCount)

	return bot
}

// Shutdown stops all session workers.
func (b *Bot) Shutdown() {
	b.state.Shutdown()
}

// HandleUpdate is the main message router.
// It dispatches messages to the appropriate session worker for sequential processing.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, false)
}

// handleUpdateSync is like HandleUpdate but waits for message processing to complete.
// Used in tests where we need synchronous behavior.
func (b *Bot) handleUpdateSync(ctx context.Context, update tgbotapi.Update) {
	b.dispatchUpdate(ctx, update, true)
}

// dispatchUpdate routes updates to the appropriate session worker.
// If sync is true, it waits for message processing to complete.
func (b *Bot) dispatchUpdate(ctx context.Context, update tgbotapi.Update, sync bool) {
	var userId int64

	if update.CallbackQuery != nil {
		userId = update.CallbackQuery.From.ID
	} else if update.Message != nil && update.Message.From != nil {
		userId = update.Message.From.ID
	} else {
		return
	}

	// MUST be before getUserSession to prevent memory exhaustion from random user IDs
	if userId != b.adminID {
		log.Debug().Int64("userId", userId).Msg("dropping update from unknown user")
		return
	}

	session := b.state.getUserSession(userId)

	send := func(msg SessionMessage) {
		if sync {
			session.SendSync(msg)
		} else {
			session.Send(msg)
		}
	}

	if update.CallbackQuery != nil {
		send(SessionMessage{
			Type:          "callback",
			Ctx:           ctx,
			CallbackQuery: update.CallbackQuery,
		})
		return
	}

	log.Info().Str("text", update.Message.Text).Int("photos", len(update.Message.Photo)).Msg("got message")

	if len(update.Message.Photo) > 0 {
		send(SessionMessage{
			Type:    "photo",
			Ctx:     ctx,
			Message: update.Message,
		})
	} else {
		send(SessionMessage{
			Type:    "text",
			Ctx:     ctx,
			Message: update.Message,
		})
	}
}

// HandleSessionMessage implements MessageHandler interface.
// This is called by the session worker goroutine for sequential processing.
func (b *Bot) HandleSessionMessage(ctx context.Context, session *UserSession, msg SessionMessage) {
	switch msg.Type {
	case "callback":
		b.handleCallbackQuery(ctx, session, msg.CallbackQuery)
	case "photo":
		b.listingHandler.HandlePhoto(ctx, session, msg.Message)
	case "text":
		b.handleTextMessage(ctx, session, msg.Message)
	case "flow_complete":
		b.listingHandler.HandleFlowComplete(ctx, session, msg.FlowResult)
	}
}

// handleTextMessage processes text messages.
// Called from session worker - no locking needed.
func (b *Bot) handleTextMessage(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	// Scene instruction for a pending regeneration
	if b.listingHandler.HandleInput(ctx, session, message) {
		return
	}

	b.handleCommand(ctx, session, message)
}

// handleCommand processes bot commands.
// Called from session worker - no locking needed.
func (b *Bot) handleCommand(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	command, args := parseCommand(message.Text)
	argsStr := strings.Join(args, " ")
	switch command {
	case "/start":
		session.reply(MsgStartPrompt)
	case "/annonce":
		b.listingHandler.HandleShowListing(ctx, session)
	case "/titre", "/prix", "/description":
		b.listingHandler.HandleEditCommand(ctx, session, command, argsStr)
	case "/optimiser":
		b.listingHandler.HandleRefine(ctx, session)
	case "/recommencer":
		b.listingHandler.HandleRestart(ctx, session)
	case "/annuler":
		session.reply(MsgOk)
	case "/version":
		session.reply(MsgVersionInfo, Version, BuildTime)
	default:
		if session.Listing().HasSource() {
			session.replyWithKeyboard(makeImageCountKeyboard(b.listingHandler.defaultImageCount), MsgPhotoReceived)
			return
		}
		session.reply(MsgStartPrompt)
	}
}

// handleCallbackQuery handles inline keyboard button presses.
// Called from session worker - no locking needed.
func (b *Bot) handleCallbackQuery(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	// Answer the callback to remove the loading state
	if _, err := b.tg.Request(tgbotapi.NewCallback(query.ID, "")); err != nil {
		log.Debug().Err(err).Msg("failed to answer callback")
	}

	switch {
	case strings.HasPrefix(query.Data, callbackCount):
		b.listingHandler.HandleImageCountSelection(ctx, session, query)
	case strings.HasPrefix(query.Data, callbackRegen):
		b.listingHandler.HandleRegenerateSelection(ctx, session, query)
	case query.Data == callbackRefine:
		b.listingHandler.HandleRefine(ctx, session)
	case query.Data == callbackRestart:
		b.listingHandler.HandleRestart(ctx, session)
	default:
		log.Warn().Str("data", query.Data).Msg("unknown callback data")
	}
}
