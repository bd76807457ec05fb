package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/raine/telegram-annonce-bot/internal/listing"
	"github.com/rs/zerolog/log"
)

const (
	DefaultTextModel  = "gemini-2.5-flash-preview-09-2025"
	DefaultImageModel = "gemini-2.5-flash-image-preview"
)

// Gemini pricing (per million tokens)
const (
	textInputPricePerMillion   = 0.30
	textOutputPricePerMillion  = 2.50
	imageInputPricePerMillion  = 0.30
	imageOutputPricePerMillion = 30.00 // image output tokens
)

const synthesisPrompt = "Analyse cette image d'un objet pour Leboncoin. Génère : 1. Un titre accrocheur. 2. Une description détaillée. 3. Un prix suggéré. 4. Trois conseils courts pour vendre cet objet plus vite. Réponds en JSON : {title, description, price, tips: []}"

const refinePrompt = "Réécris cette description Leboncoin pour la rendre plus professionnelle et persuasive : %s"

var (
	jsonResponseConfig  = &GenerationConfig{ResponseMIMEType: "application/json"}
	imageResponseConfig = &GenerationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}}
)

type GeminiOpts struct {
	TextModel  string
	ImageModel string
}

// Gemini generates listing text and pictures through a Backend, usually a
// Caller wrapping the relay client.
type Gemini struct {
	backend    Backend
	textModel  string
	imageModel string
}

var (
	_ listing.Synthesizer        = (*Gemini)(nil)
	_ listing.VariationGenerator = (*Gemini)(nil)
	_ listing.DescriptionRefiner = (*Gemini)(nil)
)

func NewGemini(backend Backend, opts GeminiOpts) *Gemini {
	g := &Gemini{
		backend:    backend,
		textModel:  DefaultTextModel,
		imageModel: DefaultImageModel,
	}
	if opts.TextModel != "" {
		g.textModel = opts.TextModel
	}
	if opts.ImageModel != "" {
		g.imageModel = opts.ImageModel
	}
	return g
}

// Synthesize asks the text model for title, description, price and selling
// tips for the photographed item.
func (g *Gemini) Synthesize(ctx context.Context, img listing.SourceImage) (*listing.Draft, error) {
	req := imageRequest(synthesisPrompt, img, jsonResponseConfig)

	resp, err := g.backend.Call(ctx, g.textModel, req)
	if err != nil {
		return nil, classifyFailure(err)
	}
	logUsage(g.textModel, "listing synthesis llm call", usageOf(resp, textInputPricePerMillion, textOutputPricePerMillion))

	text, ok := firstText(candidateParts(resp))
	if !ok {
		return nil, malformedResponse("the model answer has no text", nil)
	}
	return parseDraft(text)
}

// GenerateVariation asks the image model to re-stage the item following
// instruction and returns the first picture of the answer as a data URL.
func (g *Gemini) GenerateVariation(ctx context.Context, img listing.SourceImage, instruction string) (string, error) {
	req := imageRequest(instruction, img, imageResponseConfig)

	resp, err := g.backend.Call(ctx, g.imageModel, req)
	if err != nil {
		return "", classifyFailure(err)
	}
	logUsage(g.imageModel, "image variation llm call", usageOf(resp, imageInputPricePerMillion, imageOutputPricePerMillion))

	part, ok := firstImage(candidateParts(resp))
	if !ok {
		return "", errNoImage
	}
	return listing.EncodeDataURL(part.MIMEType, part.Data), nil
}

// RefineDescription rewrites a description to be more professional and
// persuasive. The answer replaces the description as a whole.
func (g *Gemini) RefineDescription(ctx context.Context, description string) (string, error) {
	req := textRequest(fmt.Sprintf(refinePrompt, description), nil)

	resp, err := g.backend.Call(ctx, g.textModel, req)
	if err != nil {
		return "", classifyFailure(err)
	}
	logUsage(g.textModel, "description refine llm call", usageOf(resp, textInputPricePerMillion, textOutputPricePerMillion))

	text, ok := firstText(candidateParts(resp))
	if !ok {
		return "", malformedResponse("the model answer has no text", nil)
	}
	return stripCodeFence(text), nil
}

// draftResponse mirrors the JSON the text model is asked to answer with.
type draftResponse struct {
	Title       *string    `json:"title"`
	Description *string    `json:"description"`
	Price       flexString `json:"price"`
	Tips        []string   `json:"tips"`
}

// flexString accepts a JSON string or number. The model answers prices
// both ways ("45 €" or 45).
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("price is neither a string nor a number: %s", trimmed)
	}
	if i, err := n.Int64(); err == nil {
		*f = flexString(strconv.FormatInt(i, 10))
		return nil
	}
	*f = flexString(n.String())
	return nil
}

func parseDraft(text string) (*listing.Draft, error) {
	jsonStr, err := extractJSONObject(text)
	if err != nil {
		return nil, malformedResponse("the listing answer is not a JSON object", err)
	}

	var resp draftResponse
	if err := json.Unmarshal([]byte(jsonStr), &resp); err != nil {
		return nil, malformedResponse("the listing answer could not be parsed", fmt.Errorf("%w (response: %s)", err, jsonStr))
	}

	draft := &listing.Draft{
		Price: strings.TrimSpace(string(resp.Price)),
		Tips:  []string{},
	}
	if resp.Title != nil {
		draft.Title = *resp.Title
	} else {
		log.Warn().Msg("listing answer has no title")
	}
	if resp.Description != nil {
		draft.Description = *resp.Description
	} else {
		log.Warn().Msg("listing answer has no description")
	}
	if resp.Tips != nil {
		draft.Tips = resp.Tips
	}
	return draft, nil
}

// extractJSONObject extracts a JSON object from text that may contain markdown
// code blocks or other formatting. Returns the extracted JSON string or an error.
func extractJSONObject(text string) (string, error) {
	text = strings.TrimSpace(text)
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end == -1 || end <= start {
		return "", fmt.Errorf("no JSON object found in response: %s", text)
	}
	return text[start : end+1], nil
}

// stripCodeFence removes a markdown code block the model occasionally wraps
// plain text answers in.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.Index(text, "\n"); nl != -1 && !strings.ContainsAny(text[:nl], " \t") {
		// drop the language tag
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
