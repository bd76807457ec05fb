package bot

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/raine/telegram-annonce-bot/internal/listing"
	"github.com/raine/telegram-annonce-bot/internal/llm"
)

// Callback data prefixes
const (
	callbackCount   = "count:"
	callbackRegen   = "regen:"
	callbackRefine  = "refine"
	callbackRestart = "restart"
)

// makeImageCountKeyboard offers one button per allowed lifestyle image count.
// The default count is marked so the user can just tap it.
func makeImageCountKeyboard(defaultCount int) tgbotapi.InlineKeyboardMarkup {
	var row []tgbotapi.InlineKeyboardButton
	for n := listing.MinImageCount; n <= listing.MaxImageCount; n++ {
		label := fmt.Sprintf(BtnImageCount, n)
		if n == defaultCount {
			label = "⭐ " + label
		}
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callbackCount+strconv.Itoa(n)))
	}
	return tgbotapi.NewInlineKeyboardMarkup(row)
}

func makeListingKeyboard() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(BtnRefine, callbackRefine)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(BtnRestart, callbackRestart)),
	)
}

func makeRegenerateKeyboard(slotID string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(BtnRegenerate, callbackRegen+slotID)),
	)
}

// parseImageCount parses the count out of a "count:<n>" callback.
func parseImageCount(data string) (int, error) {
	return strconv.Atoi(strings.TrimPrefix(data, callbackCount))
}

// formatListing renders the draft as a Markdown message.
func formatListing(d *listing.Draft) string {
	price := d.Price
	if strings.TrimSpace(price) == "" {
		price = MsgPriceUnknown
	}
	text := formatReplyText(MsgListingFmt,
		escapeMarkdown(d.Title),
		escapeMarkdown(price),
		escapeMarkdown(d.Description),
	)
	if len(d.Tips) > 0 {
		var sb strings.Builder
		sb.WriteString(text)
		sb.WriteString(MsgListingTipsHeader)
		for _, tip := range d.Tips {
			sb.WriteString("• ")
			sb.WriteString(escapeMarkdown(tip))
			sb.WriteString("\n")
		}
		text = strings.TrimRight(sb.String(), "\n")
	}
	return text
}

// imageCaption labels a gallery slot by its position.
func imageCaption(img listing.GeneratedImage, index int) string {
	if img.Kind == listing.ImageKindNeutral {
		return MsgImageCaptionCover
	}
	return fmt.Sprintf(MsgImageCaptionScene, index)
}

// progressText maps a flow step to the status line shown to the user.
func progressText(p listing.Progress) string {
	switch p.Step {
	case listing.StepIdle:
		return MsgProgressDone
	case listing.StepAnalyzing:
		return MsgProgressAnalyzing
	case listing.StepCoverImage:
		return MsgProgressCoverImage
	case listing.StepLifestyle:
		return fmt.Sprintf(MsgProgressLifestyle, p.Current, p.Total)
	case listing.StepRegenerating:
		return MsgProgressRegenerating
	case listing.StepRefining:
		return MsgProgressRefining
	default:
		return p.String()
	}
}

// userErrorMessage turns a flow failure into the text shown to the user.
func userErrorMessage(err error) string {
	switch llm.KindOf(err) {
	case llm.KindQuota:
		return MsgErrQuota
	case llm.KindInvalidCredential:
		return MsgErrCredential
	case llm.KindRateLimited:
		return MsgErrRateLimited
	case llm.KindBadRequest:
		return MsgErrBadRequest
	case llm.KindMalformedSynthesisResponse:
		return MsgErrMalformed
	case llm.KindNoImageInResponse:
		return MsgErrNoImage
	default:
		var e *llm.Error
		if errors.As(err, &e) {
			return fmt.Sprintf(MsgErrUnknown, e.Message)
		}
		return fmt.Sprintf(MsgErrUnknown, err)
	}
}
