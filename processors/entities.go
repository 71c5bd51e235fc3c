package processors

import (
	"context"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"videorag/config"
	"videorag/logging"
)

// EntityExtractor pulls named entities out of text. Implementations return
// an empty slice on failure, never an error: extraction quality degrades,
// ingestion does not stop.
type EntityExtractor interface {
	ExtractEntities(ctx context.Context, text string) []string
}

// OpenAIEntityExtractor asks a chat model for the entities in a text block.
type OpenAIEntityExtractor struct {
	client *openai.Client
	model  string
	log    *logging.Logger
}

func NewOpenAIEntityExtractor(cfg *config.Config, log *logging.Logger) *OpenAIEntityExtractor {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &OpenAIEntityExtractor{
		client: openai.NewClientWithConfig(clientConfig),
		model:  cfg.ChatModel,
		log:    log.With("component", "entity_extractor"),
	}
}

const entityPrompt = `Extract the named entities (people, organizations, locations, products) mentioned in the following text. Respond with a JSON array of strings and nothing else. Text:

`

func (e *OpenAIEntityExtractor) ExtractEntities(ctx context.Context, text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: e.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: entityPrompt + text},
		},
		MaxTokens:   300,
		Temperature: 0,
	})
	if err != nil {
		e.log.Warn("entity extraction call failed", "error", err)
		return nil
	}
	if len(resp.Choices) == 0 {
		return nil
	}

	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	// Models occasionally wrap the array in a code fence.
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var entities []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &entities); err != nil {
		e.log.Warn("entity extraction returned unparseable output", "error", err)
		return nil
	}
	return dedupeEntities(entities)
}

// RegexEntityExtractor is the fallback when no LLM is configured or the
// primary yields nothing. It collects capitalized word runs, which is crude
// but keeps the graph populated.
type RegexEntityExtractor struct{}

var capitalizedRun = regexp.MustCompile(`\b[A-Z][a-zA-Z]+(?:\s+[A-Z][a-zA-Z]+)*\b`)

var entityStopwords = map[string]bool{
	"The": true, "This": true, "That": true, "These": true, "Those": true,
	"A": true, "An": true, "And": true, "But": true, "Or": true,
	"I": true, "We": true, "You": true, "He": true, "She": true, "It": true, "They": true,
	"So": true, "Now": true, "Then": true, "Here": true, "There": true,
	"What": true, "When": true, "Where": true, "Why": true, "How": true,
	"If": true, "In": true, "On": true, "At": true, "For": true, "With": true,
	"Yeah": true, "Okay": true, "Well": true, "Right": true,
}

func (RegexEntityExtractor) ExtractEntities(_ context.Context, text string) []string {
	matches := capitalizedRun.FindAllString(text, -1)
	var entities []string
	for _, m := range matches {
		first := strings.Fields(m)[0]
		if len(strings.Fields(m)) == 1 && entityStopwords[first] {
			continue
		}
		entities = append(entities, m)
	}
	return dedupeEntities(entities)
}

// ChainExtractor tries the primary extractor and falls back to the
// secondary when it yields nothing.
type ChainExtractor struct {
	Primary  EntityExtractor
	Fallback EntityExtractor
}

func (c ChainExtractor) ExtractEntities(ctx context.Context, text string) []string {
	if c.Primary != nil {
		if entities := c.Primary.ExtractEntities(ctx, text); len(entities) > 0 {
			return entities
		}
	}
	if c.Fallback != nil {
		return c.Fallback.ExtractEntities(ctx, text)
	}
	return nil
}

func dedupeEntities(entities []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, e := range entities {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		key := strings.ToLower(e)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
