package llm

import (
	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// Usage contains token usage and cost information.
type Usage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	CostUSD      float64
}

func usageOf(resp *genai.GenerateContentResponse, inputPrice, outputPrice float64) Usage {
	usage := Usage{}
	if resp == nil || resp.UsageMetadata == nil {
		return usage
	}
	usage.InputTokens = int64(resp.UsageMetadata.PromptTokenCount)
	usage.OutputTokens = int64(resp.UsageMetadata.CandidatesTokenCount)
	usage.TotalTokens = int64(resp.UsageMetadata.TotalTokenCount)
	usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens, inputPrice, outputPrice)
	return usage
}

func calculateGeminiCost(inputTokens, outputTokens int64, inputPrice, outputPrice float64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * inputPrice
	outputCost := float64(outputTokens) / 1_000_000 * outputPrice
	return inputCost + outputCost
}

func logUsage(model, msg string, usage Usage) {
	log.Info().
		Str("model", model).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg(msg)
}
