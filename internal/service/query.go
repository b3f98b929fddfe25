package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sakif/qi-research/internal/apperror"
	"github.com/sakif/qi-research/internal/llm"
	"github.com/sakif/qi-research/internal/repository"
)

const searchQuerySystemPrompt = "You are a helpful assistant specializing in generating search queries for nurse-led QI projects"

// Completer produces a chat completion with the given API key.
type Completer interface {
	Complete(ctx context.Context, apiKey string, messages []llm.Message) (string, error)
}

// QueryService drafts a literature search query from a project's title and
// description, using the shared GPT key.
type QueryService struct {
	keys   repository.GPTKeyRepository
	llm    Completer
	logger *slog.Logger
}

func NewQueryService(keys repository.GPTKeyRepository, completer Completer, logger *slog.Logger) *QueryService {
	return &QueryService{keys: keys, llm: completer, logger: logger}
}

// Generate returns a plain natural-language query.
func (s *QueryService) Generate(ctx context.Context, title, description string) (string, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return "", apperror.ValidationFailed("", "Title and description are required")
	}

	key, err := s.keys.Get(ctx)
	if err != nil {
		return "", err
	}

	out, err := s.llm.Complete(ctx, key.Key, []llm.Message{
		{Role: llm.RoleSystem, Content: searchQuerySystemPrompt},
		{Role: llm.RoleUser, Content: searchQueryPrompt(title, description)},
	})
	if err != nil {
		s.logger.Error("search query generation failed", slog.String("error", err.Error()))
		return "", apperror.Upstream("Failed to generate search query", err)
	}

	return cleanQuery(out), nil
}

func searchQueryPrompt(title, description string) string {
	return fmt.Sprintf("Generate a simple search query based on the following details:\n\n"+
		"Title: %s\n"+
		"Description: %s\n\n"+
		"The search query should be: \n"+
		"1. A straightforward and natural language phrase that helps in getting relevant and recent academic papers.\n"+
		"2. Avoid using complex operators, brackets, or logical connectors.", title, description)
}

// cleanQuery trims whitespace and one pair of wrapping double quotes.
func cleanQuery(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && strings.HasPrefix(s, `"`) && strings.HasSuffix(s, `"`) {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}
