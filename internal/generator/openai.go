// Package generator talks to the chat-completion service that writes challenge
// questions and study suggestions.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"flashcard-challenge-service/internal/domain"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

const DefaultModel = openai.GPT4oMini

// Config selects the endpoint and model of the completion service.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// OpenAI implements app.Generator on top of the chat completion API.
type OpenAI struct {
	client *openai.Client
	model  string
	log    *zap.Logger
}

// NewOpenAI builds a generator for cfg, defaulting the model to DefaultModel.
func NewOpenAI(cfg Config, log *zap.Logger) *OpenAI {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}
	if cfg.Timeout > 0 {
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &OpenAI{client: openai.NewClientWithConfig(clientCfg), model: model, log: log}
}

const questionPrompt = `You write multiple-choice quizzes from flashcards.
Write exactly %d questions, each about a single concept from one of the given flashcards, of similar difficulty and without repeating the same check twice.
Every question has four choices named choice_a, choice_b, choice_c and choice_d, and exactly one of them is correct according to its flashcard.
Set "answer" to the name of the correct choice, for example "choice_b".
Reply with a single JSON object of this shape and nothing else:
{"questions":[{"flashcard_id":"...","question":"...","choice_a":"...","choice_b":"...","choice_c":"...","choice_d":"...","answer":"choice_a"}]}`

const suggestionPrompt = `You help learners improve. You get the result of a finished flashcard challenge and every question with the learner's answer and the correct one.
Suggest how to study next, focusing on the concepts behind the questions answered incorrectly.
Reply with a single JSON object {"suggestion":"..."}.`

type questionsEnvelope struct {
	Questions []domain.GeneratedQuestion `json:"questions"`
}

type suggestionRequest struct {
	Result    domain.ChallengeHistory   `json:"result"`
	Questions []domain.AnsweredQuestion `json:"questions"`
}

type suggestionEnvelope struct {
	Suggestion string `json:"suggestion"`
}

// GenerateQuestions sends the card projections and parses the question envelope.
func (g *OpenAI) GenerateQuestions(ctx context.Context, cards []domain.FlashcardProjection, count int) ([]domain.GeneratedQuestion, error) {
	payload, err := json.Marshal(cards)
	if err != nil {
		return nil, fmt.Errorf("encode flashcards: %w", err)
	}
	content, err := g.complete(ctx, fmt.Sprintf(questionPrompt, count), string(payload))
	if err != nil {
		return nil, err
	}

	var envelope questionsEnvelope
	if err := json.Unmarshal([]byte(content), &envelope); err != nil {
		return nil, fmt.Errorf("decode questions: %w", err)
	}
	g.log.Debug("generator returned questions", zap.Int("requested", count), zap.Int("returned", len(envelope.Questions)))
	return envelope.Questions, nil
}

// Suggest asks for study advice about one finished attempt and its answers.
func (g *OpenAI) Suggest(ctx context.Context, history domain.ChallengeHistory, answered []domain.AnsweredQuestion) (string, error) {
	payload, err := json.Marshal(suggestionRequest{Result: history, Questions: answered})
	if err != nil {
		return "", fmt.Errorf("encode history: %w", err)
	}
	content, err := g.complete(ctx, suggestionPrompt, string(payload))
	if err != nil {
		return "", err
	}

	var envelope suggestionEnvelope
	if err := json.Unmarshal([]byte(content), &envelope); err != nil || envelope.Suggestion == "" {
		// some models ignore the shape; keep whatever text came back
		return strings.TrimSpace(content), nil
	}
	return envelope.Suggestion, nil
}

func (g *OpenAI) complete(ctx context.Context, system, user string) (string, error) {
	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", errors.New("chat completion returned no content")
	}
	return resp.Choices[0].Message.Content, nil
}
