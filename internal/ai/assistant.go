package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/insurance-advisor/internal/logger"
	"github.com/spigell/insurance-advisor/internal/utils"
)

const (
	OffTopicMessage = "Please ask insurance-related questions only."
	SystemPrompt    = "You are a helpful insurance assistant."
	SummaryQuestion = "Summarize this insurance document in simple terms"

	defaultMaxLogLength = 200
)

// ErrOffTopic is returned for questions that are not about insurance. The
// provider is not called for them.
var ErrOffTopic = errors.New("please ask insurance-related questions only")

var insuranceKeywords = []string{
	"insurance", "policy", "premium", "claim", "coverage", "term", "retirement", "health", "life",
}

// Assistant answers insurance questions, optionally about an uploaded document.
type Assistant interface {
	Ask(ctx context.Context, question, documentText string) (string, error)
}

// Provider is an LLM backend that completes a system + user prompt.
type Provider interface {
	Complete(ctx context.Context, system, user string) (string, error)
	Name() string
	Model() string
}

// IsInsuranceQuestion reports whether the question mentions any insurance keyword.
func IsInsuranceQuestion(question string) bool {
	lowered := strings.ToLower(question)
	for _, keyword := range insuranceKeywords {
		if strings.Contains(lowered, keyword) {
			return true
		}
	}
	return false
}

// BuildUserPrompt embeds the optional document ahead of the question.
func BuildUserPrompt(question, documentText string) string {
	var b strings.Builder
	if strings.TrimSpace(documentText) != "" {
		b.WriteString("The following is an insurance document:\n\n")
		b.WriteString(documentText)
		b.WriteString("\n\n")
	}
	b.WriteString("Question: ")
	b.WriteString(question)
	return b.String()
}

// InsuranceAssistant guards questions by topic and forwards them to a provider.
type InsuranceAssistant struct {
	provider  Provider
	logger    *zap.Logger
	maxLogLen int
}

func NewInsuranceAssistant(provider Provider, log *zap.Logger, maxLogLength int) *InsuranceAssistant {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	return &InsuranceAssistant{
		provider:  provider,
		logger:    logger.WithCommonFields(log, provider.Name(), provider.Model()),
		maxLogLen: maxLogLength,
	}
}

func (a *InsuranceAssistant) Ask(ctx context.Context, question, documentText string) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question must not be empty")
	}

	if !IsInsuranceQuestion(question) {
		a.logger.Debug("rejecting off-topic question", zap.String("question", utils.TruncateForLog(question, a.maxLogLen)))
		return "", ErrOffTopic
	}

	prompt := BuildUserPrompt(question, documentText)

	a.logger.Debug("assistant request",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.Bool("with_document", strings.TrimSpace(documentText) != ""),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, a.maxLogLen)),
	)

	answer, err := a.provider.Complete(ctx, SystemPrompt, prompt)
	if err != nil {
		return "", fmt.Errorf("%s: %w", a.provider.Name(), err)
	}

	a.logger.Debug("assistant response",
		zap.Int("response_length", utf8.RuneCountInString(answer)),
		zap.String("response_preview", utils.TruncateForLog(answer, a.maxLogLen)),
	)

	return answer, nil
}

// Summarize asks the assistant for a plain-language summary of a document.
func Summarize(ctx context.Context, a Assistant, documentText string) (string, error) {
	if strings.TrimSpace(documentText) == "" {
		return "", errors.New("no document to summarize")
	}
	return a.Ask(ctx, SummaryQuestion, documentText)
}
