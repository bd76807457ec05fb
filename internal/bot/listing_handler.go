package bot

import (
	"context"
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-annonce-bot/internal/listing"
	"github.com/rs/zerolog/log"
)

// Generators bundles the model-backed steps a Studio is built from.
type Generators struct {
	Synthesizer listing.Synthesizer
	Images      listing.VariationGenerator
	Refiner     listing.DescriptionRefiner
}

// ListingHandler handles the photo to listing flow.
type ListingHandler struct {
	tg                BotAPI
	downloader        *ImageDownloader
	defaultImageCount int
	now               func() time.Time
}

// NewListingHandler creates a new listing handler.
func NewListingHandler(tg BotAPI, defaultImageCount int) *ListingHandler {
	if defaultImageCount < listing.MinImageCount || defaultImageCount > listing.MaxImageCount {
		defaultImageCount = listing.DefaultImageCount
	}
	return &ListingHandler{
		tg:                tg,
		downloader:        NewImageDownloader(),
		defaultImageCount: defaultImageCount,
		now:               time.Now,
	}
}

// HandlePhoto stores the largest size of an uploaded photo as the source
// image and asks how many lifestyle images to generate.
func (h *ListingHandler) HandlePhoto(ctx context.Context, session *UserSession, message *tgbotapi.Message) {
	if session.IsRunning() {
		session.reply(MsgBusy)
		return
	}

	// Telegram sends sizes smallest first
	largest := message.Photo[len(message.Photo)-1]
	img, err := h.downloader.DownloadFromTelegramFileID(ctx, h.tg.GetFileDirectURL, largest.FileID)
	if err != nil {
		log.Error().Err(err).Int64("userId", session.userId).Msg("failed to download photo")
		session.reply(MsgPhotoDownloadFail)
		return
	}

	log.Info().
		Int64("userId", session.userId).
		Str("mimeType", img.MIMEType).
		Int("size", len(img.Data)).
		Msg("source photo received")

	session.setListing(session.Listing().WithSource(img))
	session.pendingRegenSlot = ""
	session.replyWithKeyboard(makeImageCountKeyboard(h.defaultImageCount), MsgPhotoReceived)
}

// HandleImageCountSelection starts a generation after the user picked an
// image count.
func (h *ListingHandler) HandleImageCountSelection(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	count, err := parseImageCount(query.Data)
	if err != nil || count < listing.MinImageCount || count > listing.MaxImageCount {
		session.reply(MsgInvalidImageCount, listing.MinImageCount, listing.MaxImageCount)
		return
	}
	if session.IsRunning() {
		session.reply(MsgBusy)
		return
	}
	if !session.Listing().HasSource() {
		session.reply(MsgNoPhoto)
		return
	}

	h.removeKeyboard(query)
	h.startGeneration(session, count)
}

// startGeneration runs the pipeline in the background on a snapshot of the
// listing session. The outcome comes back through the session inbox.
func (h *ListingHandler) startGeneration(session *UserSession, count int) {
	snapshot := session.Listing()
	status := session.reply(MsgProgressAnalyzing)
	session.pendingRegenSlot = ""

	h.runFlow(session, FlowResult{kind: flowGenerate, StatusMessageID: status.MessageID},
		func(ctx context.Context, onProgress listing.ProgressFunc) (listing.Session, error) {
			return session.studio.Generate(ctx, snapshot, count, onProgress)
		})
}

// runFlow marks the session as running and executes fn in a goroutine,
// editing the status message on every progress update.
func (h *ListingHandler) runFlow(
	session *UserSession,
	result FlowResult,
	fn func(ctx context.Context, onProgress listing.ProgressFunc) (listing.Session, error),
) {
	session.setRunning(true)
	flowCtx := session.ctx

	go func() {
		typingCtx, stopTyping := context.WithCancel(flowCtx)
		go session.startChatActionLoop(typingCtx, tgbotapi.ChatUploadPhoto)

		started := time.Now()
		next, err := fn(flowCtx, h.progressEditor(session, result.StatusMessageID))
		stopTyping()

		result.Session = next
		result.Err = err
		result.Elapsed = time.Since(started)
		session.Send(SessionMessage{
			Type:       "flow_complete",
			Ctx:        flowCtx,
			FlowResult: &result,
		})
	}()
}

func (h *ListingHandler) progressEditor(session *UserSession, messageID int) listing.ProgressFunc {
	return func(p listing.Progress) {
		if messageID == 0 {
			return
		}
		edit := tgbotapi.NewEditMessageText(session.userId, messageID, progressText(p))
		if _, err := h.tg.Request(edit); err != nil {
			log.Debug().Err(err).Str("progress", p.String()).Msg("failed to update status message")
		}
	}
}

// HandleFlowComplete applies the outcome of a background flow. It runs on
// the session worker, so the listing session only ever changes here or in
// other worker handlers.
func (h *ListingHandler) HandleFlowComplete(ctx context.Context, session *UserSession, result *FlowResult) {
	session.setRunning(false)

	logger := log.With().Int64("userId", session.userId).Dur("elapsed", result.Elapsed).Logger()

	switch result.kind {
	case flowGenerate:
		session.setListing(result.Session)
		if result.Err != nil {
			logger.Error().Err(result.Err).Msg("listing generation failed")
			if errors.Is(result.Err, listing.ErrBusy) {
				session.reply(MsgBusy)
				return
			}
			session.replyWithKeyboard(makeImageCountKeyboard(h.defaultImageCount),
				MsgGenerationFailed, escapeMarkdown(userErrorMessage(result.Err)))
			return
		}
		logger.Info().Int("images", len(result.Session.Images)).Msg("listing generation delivered")
		h.sendListing(session)
		h.sendGallery(session)
		session.reply(MsgGenerationDone)

	case flowRegenerate:
		if result.Err != nil {
			logger.Error().Err(result.Err).Str("slot", result.SlotID).Msg("image regeneration failed")
			if errors.Is(result.Err, listing.ErrUnknownSlot) {
				session.reply(MsgUnknownSlot)
				return
			}
			session.reply(MsgRegenFailed, escapeMarkdown(userErrorMessage(result.Err)))
			return
		}
		session.setListing(result.Session)
		if img, ok := result.Session.Image(result.SlotID); ok {
			h.sendImage(session, img, slotIndex(result.Session, img.ID))
		}
		session.reply(MsgRegenDone)

	case flowRefine:
		if result.Err != nil {
			logger.Error().Err(result.Err).Msg("description refinement failed")
			session.reply(MsgRefineFailed, escapeMarkdown(userErrorMessage(result.Err)))
			return
		}
		session.setListing(result.Session)
		session.reply(MsgDescriptionRefined, escapeMarkdown(result.Session.Draft.Description))
	}
}

// HandleRegenerateSelection remembers which slot to regenerate and asks for
// the scene instruction.
func (h *ListingHandler) HandleRegenerateSelection(ctx context.Context, session *UserSession, query *tgbotapi.CallbackQuery) {
	slotID := strings.TrimPrefix(query.Data, callbackRegen)
	if session.IsRunning() {
		session.reply(MsgBusy)
		return
	}
	current := session.Listing()
	if current.Stage != listing.StageReviewing {
		session.reply(MsgNoListing)
		return
	}
	if _, ok := current.Image(slotID); !ok {
		session.reply(MsgUnknownSlot)
		return
	}
	session.pendingRegenSlot = slotID
	session.reply(MsgRegenPrompt)
}

// HandleInput consumes a scene instruction when a regeneration is pending.
// Returns true if the message was handled.
func (h *ListingHandler) HandleInput(ctx context.Context, session *UserSession, message *tgbotapi.Message) bool {
	if session.pendingRegenSlot == "" {
		return false
	}

	text := strings.TrimSpace(message.Text)
	if text == "/annuler" {
		session.pendingRegenSlot = ""
		session.reply(MsgRegenCancelled)
		return true
	}
	// Other commands keep the pending slot
	if strings.HasPrefix(text, "/") {
		return false
	}

	slotID := session.pendingRegenSlot
	session.pendingRegenSlot = ""
	if text == "" {
		session.reply(MsgRegenEmpty)
		return true
	}
	if session.IsRunning() {
		session.reply(MsgBusy)
		return true
	}

	snapshot := session.Listing()
	status := session.reply(MsgProgressRegenerating)
	h.runFlow(session, FlowResult{kind: flowRegenerate, SlotID: slotID, StatusMessageID: status.MessageID},
		func(ctx context.Context, onProgress listing.ProgressFunc) (listing.Session, error) {
			return session.studio.Regenerate(ctx, snapshot, slotID, text, onProgress)
		})
	return true
}

// HandleRefine rewrites the description of the current listing.
func (h *ListingHandler) HandleRefine(ctx context.Context, session *UserSession) {
	if session.IsRunning() {
		session.reply(MsgBusy)
		return
	}
	snapshot := session.Listing()
	if snapshot.Stage != listing.StageReviewing {
		session.reply(MsgNoListing)
		return
	}

	status := session.reply(MsgProgressRefining)
	h.runFlow(session, FlowResult{kind: flowRefine, StatusMessageID: status.MessageID},
		func(ctx context.Context, onProgress listing.ProgressFunc) (listing.Session, error) {
			return session.studio.RefineDescription(ctx, snapshot, onProgress)
		})
}

// HandleRestart drops the generated listing but keeps the photo.
func (h *ListingHandler) HandleRestart(ctx context.Context, session *UserSession) {
	if session.IsRunning() {
		session.reply(MsgBusy)
		return
	}
	session.reset()
	if !session.Listing().HasSource() {
		session.reply(MsgStartPrompt)
		return
	}
	session.replyWithKeyboard(makeImageCountKeyboard(h.defaultImageCount), MsgRestarted)
}

// HandleEditCommand handles /titre, /prix and /description.
func (h *ListingHandler) HandleEditCommand(ctx context.Context, session *UserSession, command, value string) {
	if session.IsRunning() {
		session.reply(MsgBusy)
		return
	}
	current := session.Listing()
	if current.Stage != listing.StageReviewing {
		session.reply(MsgNoListing)
		return
	}
	value = strings.TrimSpace(value)
	if value == "" {
		session.reply(MsgEditUsage, command)
		return
	}

	switch command {
	case "/titre":
		session.setListing(current.WithTitle(value))
		session.reply(MsgTitleUpdated)
	case "/prix":
		session.setListing(current.WithPrice(value))
		session.reply(MsgPriceUpdated)
	case "/description":
		session.setListing(current.WithDescription(value))
		session.reply(MsgDescriptionUpdated)
	}
}

// HandleShowListing resends the current listing text and gallery.
func (h *ListingHandler) HandleShowListing(ctx context.Context, session *UserSession) {
	if session.Listing().Stage != listing.StageReviewing {
		session.reply(MsgNoListing)
		return
	}
	h.sendListing(session)
	h.sendGallery(session)
}

func (h *ListingHandler) sendListing(session *UserSession) {
	current := session.Listing()
	if current.Draft == nil {
		return
	}
	msg := tgbotapi.NewMessage(session.userId, formatListing(current.Draft))
	msg.ParseMode = tgbotapi.ModeMarkdown
	msg.ReplyMarkup = makeListingKeyboard()
	session.replyWithMessage(msg)
}

func (h *ListingHandler) sendGallery(session *UserSession) {
	current := session.Listing()
	for i, img := range current.Images {
		h.sendImage(session, img, i)
	}
}

// sendImage uploads one gallery slot as a photo with its regenerate button.
func (h *ListingHandler) sendImage(session *UserSession, img listing.GeneratedImage, index int) {
	name, data, err := img.Export(h.now())
	if err != nil {
		session.replyWithError(err)
		return
	}

	photo := tgbotapi.NewPhoto(session.userId, tgbotapi.FileBytes{Name: name, Bytes: data})
	photo.Caption = imageCaption(img, index)
	photo.ReplyMarkup = makeRegenerateKeyboard(img.ID)
	if _, err := h.tg.Send(photo); err != nil {
		log.Error().Err(err).Str("slot", img.ID).Msg("failed to send generated image")
	}
}

// removeKeyboard removes the inline keyboard from the message a callback
// came from.
func (h *ListingHandler) removeKeyboard(query *tgbotapi.CallbackQuery) {
	if query.Message == nil {
		return
	}
	edit := tgbotapi.NewEditMessageReplyMarkup(
		query.Message.Chat.ID,
		query.Message.MessageID,
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	if _, err := h.tg.Request(edit); err != nil {
		log.Debug().Err(err).Msg("failed to remove inline keyboard")
	}
}

func slotIndex(s listing.Session, slotID string) int {
	for i, img := range s.Images {
		if img.ID == slotID {
			return i
		}
	}
	return 0
}
