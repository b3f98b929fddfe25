package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/qi-research/internal/apperror"
	"github.com/sakif/qi-research/internal/llm"
	"github.com/sakif/qi-research/internal/model"
)

func TestGenerateQuery(t *testing.T) {
	completer := &fakeCompleter{reply: "  \"fall prevention bed alarms elderly inpatients\"\n"}
	keys := &fakeKeys{key: &model.GPTKey{Key: "sk-shared"}}
	svc := NewQueryService(keys, completer, discardLogger())

	got, err := svc.Generate(context.Background(), "Falls", "Reduce inpatient falls")
	require.NoError(t, err)
	assert.Equal(t, "fall prevention bed alarms elderly inpatients", got)

	assert.Equal(t, "sk-shared", completer.gotKey)
	require.Len(t, completer.gotMessages, 2)
	assert.Equal(t, llm.Message{Role: llm.RoleSystem, Content: searchQuerySystemPrompt}, completer.gotMessages[0])
	assert.Contains(t, completer.gotMessages[1].Content, "Title: Falls\nDescription: Reduce inpatient falls")
	assert.Contains(t, completer.gotMessages[1].Content, "Avoid using complex operators")
}

func TestGenerateQuery_Validation(t *testing.T) {
	svc := NewQueryService(&fakeKeys{}, &fakeCompleter{}, discardLogger())

	_, err := svc.Generate(context.Background(), "", "d")
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = svc.Generate(context.Background(), "t", " ")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestGenerateQuery_NoSharedKey(t *testing.T) {
	completer := &fakeCompleter{reply: "x"}
	svc := NewQueryService(&fakeKeys{}, completer, discardLogger())

	_, err := svc.Generate(context.Background(), "t", "d")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Empty(t, completer.gotKey, "LLM must not be called without a key")
}

func TestGenerateQuery_UpstreamFailure(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("llm: provider returned 429")}
	svc := NewQueryService(&fakeKeys{key: &model.GPTKey{Key: "sk"}}, completer, discardLogger())

	_, err := svc.Generate(context.Background(), "t", "d")
	assert.ErrorIs(t, err, apperror.ErrUpstream)
}

func TestCleanQuery(t *testing.T) {
	tests := map[string]string{
		`"quoted"`:          "quoted",
		`  plain  `:         "plain",
		`"only one pair""`:  `only one pair"`,
		`""`:                "",
		`"`:                 `"`,
		`no "inner" change`: `no "inner" change`,
	}
	for in, want := range tests {
		assert.Equal(t, want, cleanQuery(in), "cleanQuery(%q)", in)
	}
}
