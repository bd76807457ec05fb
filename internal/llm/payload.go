package llm

import (
	"github.com/raine/telegram-annonce-bot/internal/listing"
	"google.golang.org/genai"
)

// GenerateContentRequest is the Gemini generateContent body sent as the
// relay's "data" field.
type GenerateContentRequest struct {
	Contents         []*genai.Content  `json:"contents"`
	GenerationConfig *GenerationConfig `json:"generationConfig,omitempty"`
}

type GenerationConfig struct {
	ResponseMIMEType   string   `json:"responseMimeType,omitempty"`
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

func textRequest(prompt string, config *GenerationConfig) GenerateContentRequest {
	return GenerateContentRequest{
		Contents: []*genai.Content{
			genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
		},
		GenerationConfig: config,
	}
}

func imageRequest(prompt string, img listing.SourceImage, config *GenerationConfig) GenerateContentRequest {
	parts := []*genai.Part{
		genai.NewPartFromText(prompt),
		genai.NewPartFromBytes(img.Data, img.MIME()),
	}
	return GenerateContentRequest{
		Contents:         []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)},
		GenerationConfig: config,
	}
}

// responsePart is one part of a model answer.
type responsePart interface {
	isResponsePart()
}

type textPart struct {
	Text    string
	Thought bool
}

type imagePart struct {
	MIMEType string
	Data     []byte
}

// otherPart covers function calls, code execution and other kinds the
// listing flows never ask for.
type otherPart struct{}

func (textPart) isResponsePart()  {}
func (imagePart) isResponsePart() {}
func (otherPart) isResponsePart() {}

func toResponsePart(p *genai.Part) responsePart {
	switch {
	case p == nil:
		return otherPart{}
	case p.InlineData != nil && len(p.InlineData.Data) > 0:
		return imagePart{MIMEType: p.InlineData.MIMEType, Data: p.InlineData.Data}
	case p.Text != "":
		return textPart{Text: p.Text, Thought: p.Thought}
	default:
		return otherPart{}
	}
}

// candidateParts returns the parts of the first candidate.
func candidateParts(resp *genai.GenerateContentResponse) []responsePart {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	raw := resp.Candidates[0].Content.Parts
	parts := make([]responsePart, 0, len(raw))
	for _, p := range raw {
		parts = append(parts, toResponsePart(p))
	}
	return parts
}

// firstText returns the first answer text, skipping thought summaries.
func firstText(parts []responsePart) (string, bool) {
	for _, p := range parts {
		if t, ok := p.(textPart); ok && !t.Thought {
			return t.Text, true
		}
	}
	return "", false
}

// firstImage returns the first part carrying inline image data.
func firstImage(parts []responsePart) (imagePart, bool) {
	for _, p := range parts {
		if img, ok := p.(imagePart); ok {
			return img, true
		}
	}
	return imagePart{}, false
}
