// Package ai wraps the text-analysis collaborator behind typed operations
// for summarization, keyword extraction, sentiment and topic classification.
package ai

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/anthropic"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/newsflow/newsflow-go/internal/config"
	"github.com/newsflow/newsflow-go/internal/metrics"
	"github.com/newsflow/newsflow-go/internal/models"
	"github.com/newsflow/newsflow-go/internal/normalize"
)

// UsageRecorder receives one record per billed provider call. Recording must
// never fail the analysis itself.
type UsageRecorder interface {
	RecordAIUsage(ctx context.Context, operation, model string, promptTokens, completionTokens int, callErr error)
}

// Analyzer runs AI text analysis through a configured LLM provider.
type Analyzer struct {
	llm       llms.Model
	modelName string
	usage     UsageRecorder
	collector *metrics.Collector
	logger    *slog.Logger
}

// NewAnalyzer creates an analyzer based on configuration.
func NewAnalyzer(cfg config.Config, usage UsageRecorder, logger *slog.Logger) (*Analyzer, error) {
	var model llms.Model
	var err error

	switch cfg.AIProvider {
	case config.ProviderOllama:
		model, err = ollama.New(
			ollama.WithModel(cfg.AIModel),
			ollama.WithServerURL(cfg.OllamaHost),
		)
		if err != nil {
			return nil, fmt.Errorf("create ollama model: %w", err)
		}

	case config.ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OpenAI API key required")
		}
		model, err = openai.New(
			openai.WithToken(cfg.OpenAIAPIKey),
			openai.WithModel(cfg.AIModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create openai model: %w", err)
		}

	case config.ProviderAnthropic:
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("Anthropic API key required")
		}
		model, err = anthropic.New(
			anthropic.WithToken(cfg.AnthropicAPIKey),
			anthropic.WithModel(cfg.AIModel),
		)
		if err != nil {
			return nil, fmt.Errorf("create anthropic model: %w", err)
		}

	default:
		return nil, fmt.Errorf("unsupported AI provider: %s", cfg.AIProvider)
	}

	return NewAnalyzerWithModel(model, cfg.AIModel, usage, logger), nil
}

// NewAnalyzerWithModel wraps an already-constructed LLM.
func NewAnalyzerWithModel(model llms.Model, modelName string, usage UsageRecorder, logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{
		llm:       model,
		modelName: modelName,
		usage:     usage,
		logger:    logger,
	}
}

// WithMetrics attaches an in-process collector that receives call timings
// and token counts alongside the persisted usage log.
func (a *Analyzer) WithMetrics(c *metrics.Collector) *Analyzer {
	a.collector = c
	return a
}

// Model returns the configured model name.
func (a *Analyzer) Model() string {
	return a.modelName
}

// SummarizeOptions controls summary generation.
type SummarizeOptions struct {
	Type      models.SummaryType
	MaxTokens int
}

// Summarize generates a summary of the given content. Content past the
// summary ceiling is rejected with ErrContentTooLong, never silently cut.
func (a *Analyzer) Summarize(ctx context.Context, content string, opts SummarizeOptions) (string, error) {
	if err := checkLength("summarize", content, normalize.MaxSummaryChars); err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("summarize: empty content")
	}
	if opts.Type == "" {
		opts.Type = models.SummaryMedium
	}

	systemPrompt := `You are a news summarization assistant. Summarize the provided article faithfully.
Do not add information that is not in the article. Do not editorialize.
Respond with the summary only, no preamble.`

	userPrompt := fmt.Sprintf("Write a %s of the following article.\n\nArticle:\n%s", summaryInstruction(opts.Type), content)

	var callOpts []llms.CallOption
	if opts.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(opts.MaxTokens))
	}

	out, err := a.generate(ctx, "summarize", systemPrompt, userPrompt, callOpts...)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

// KeywordOptions controls keyword extraction.
type KeywordOptions struct {
	Count int
}

// ExtractKeywords pulls the most relevant keywords from the content,
// lowercased, most relevant first.
func (a *Analyzer) ExtractKeywords(ctx context.Context, content string, opts KeywordOptions) ([]string, error) {
	if err := checkLength("extract keywords", content, normalize.MaxAnalysisChars); err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("extract keywords: empty content")
	}
	count := opts.Count
	if count <= 0 {
		count = 10
	}

	systemPrompt := `You are a keyword extraction assistant for news articles.
Extract the most relevant keywords and key phrases from the text.
Output one keyword per line, lowercase, most relevant first. No numbering, no commentary.`

	userPrompt := fmt.Sprintf("Extract up to %d keywords from this article:\n\n%s", count, content)

	out, err := a.generate(ctx, "extract_keywords", systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	var keywords []string
	for _, line := range strings.Split(out, "\n") {
		kw := strings.ToLower(strings.TrimSpace(strings.TrimLeft(line, "-*• \t")))
		if kw == "" {
			continue
		}
		keywords = append(keywords, kw)
		if len(keywords) == count {
			break
		}
	}
	return keywords, nil
}

// Sentiment labels returned by AnalyzeSentiment.
const (
	SentimentPositive = "positive"
	SentimentNegative = "negative"
	SentimentNeutral  = "neutral"
)

// AnalyzeSentiment classifies the overall sentiment of the content as
// positive, negative or neutral.
func (a *Analyzer) AnalyzeSentiment(ctx context.Context, content string) (string, error) {
	if err := checkLength("analyze sentiment", content, normalize.MaxAnalysisChars); err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("analyze sentiment: empty content")
	}

	systemPrompt := `You are a sentiment analysis assistant for news articles.
Classify the overall sentiment of the article.
Respond with exactly one word: positive, negative or neutral.`

	out, err := a.generate(ctx, "analyze_sentiment", systemPrompt, "Article:\n"+content)
	if err != nil {
		return "", err
	}

	label := strings.ToLower(strings.TrimSpace(out))
	switch {
	case strings.HasPrefix(label, SentimentPositive):
		return SentimentPositive, nil
	case strings.HasPrefix(label, SentimentNegative):
		return SentimentNegative, nil
	default:
		return SentimentNeutral, nil
	}
}

// ClassifyTopic assigns a single short topic label to the content.
func (a *Analyzer) ClassifyTopic(ctx context.Context, content string) (string, error) {
	if err := checkLength("classify topic", content, normalize.MaxAnalysisChars); err != nil {
		return "", err
	}
	if strings.TrimSpace(content) == "" {
		return "", fmt.Errorf("classify topic: empty content")
	}

	systemPrompt := `You are a topic classification assistant for news articles.
Assign the single best topic label, such as: technology, business, politics, science, health, sports, entertainment, world.
Respond with the topic label only, lowercase.`

	out, err := a.generate(ctx, "classify_topic", systemPrompt, "Article:\n"+content)
	if err != nil {
		return "", err
	}
	return strings.ToLower(strings.TrimSpace(out)), nil
}

// generate runs one provider call, records usage and classifies fatal errors.
func (a *Analyzer) generate(ctx context.Context, operation, systemPrompt, userPrompt string, opts ...llms.CallOption) (string, error) {
	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	start := time.Now()
	response, err := a.llm.GenerateContent(ctx, messages, opts...)
	elapsed := time.Since(start)
	if err != nil {
		err = wrapFatalError(fmt.Errorf("%s: %w", operation, err))
		a.recordUsage(ctx, operation, estimateTokens(systemPrompt+userPrompt), 0, err)
		return "", err
	}

	if len(response.Choices) == 0 {
		err = fmt.Errorf("%s: no response choices", operation)
		a.recordUsage(ctx, operation, estimateTokens(systemPrompt+userPrompt), 0, err)
		return "", err
	}

	choice := response.Choices[0]
	promptTokens, completionTokens := tokenCounts(choice, systemPrompt+userPrompt, choice.Content)
	a.recordUsage(ctx, operation, promptTokens, completionTokens, nil)
	if a.collector != nil {
		a.collector.RecordAIUsage(metrics.OpAIGenerate, elapsed, int64(promptTokens), int64(completionTokens))
	}

	return choice.Content, nil
}

func (a *Analyzer) recordUsage(ctx context.Context, operation string, promptTokens, completionTokens int, callErr error) {
	if a.usage == nil {
		return
	}
	a.usage.RecordAIUsage(ctx, operation, a.modelName, promptTokens, completionTokens, callErr)
}

// tokenCounts reads provider-reported token counts from the generation info,
// falling back to a character-based estimate when the provider omits them.
func tokenCounts(choice *llms.ContentChoice, prompt, completion string) (int, int) {
	promptTokens := infoInt(choice.GenerationInfo, "PromptTokens")
	completionTokens := infoInt(choice.GenerationInfo, "CompletionTokens")
	if promptTokens == 0 {
		promptTokens = estimateTokens(prompt)
	}
	if completionTokens == 0 {
		completionTokens = estimateTokens(completion)
	}
	return promptTokens, completionTokens
}

func infoInt(info map[string]any, key string) int {
	if info == nil {
		return 0
	}
	switch v := info[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}

// estimateTokens approximates token counts at 4 chars per token.
func estimateTokens(s string) int {
	return (len(s) + 3) / 4
}

// checkLength enforces the character ceiling on content before any
// provider call. Ceilings are measured in bytes of normalized text.
func checkLength(operation, content string, max int) error {
	if len(content) > max {
		return fmt.Errorf("%s: %w: %d chars exceeds limit of %d", operation, ErrContentTooLong, len(content), max)
	}
	return nil
}

func summaryInstruction(t models.SummaryType) string {
	switch t {
	case models.SummaryShort:
		return "short summary of one or two sentences"
	case models.SummaryLong:
		return "detailed summary of three or four paragraphs"
	case models.SummaryBulletPoints:
		return "summary as five to eight bullet points"
	case models.SummaryKeywordsOnly:
		return "comma-separated list of the key terms"
	default:
		return "concise summary of one paragraph"
	}
}
