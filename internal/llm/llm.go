// Package llm drafts multiple-choice quizzes through an OpenAI-compatible
// API. It backs the generate subcommand only; the server never calls it.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/pavelanni/quizdesk/internal/model"
)

// Draft is the LLM's proposed quiz, shaped to match the create endpoint's
// payload so the output can be posted as-is after review.
type Draft struct {
	Title     string          `json:"title"`
	Questions []DraftQuestion `json:"questions"`
}

// DraftQuestion is one proposed question.
type DraftQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
}

// Client wraps an OpenAI-compatible API client.
type Client struct {
	api   *openai.Client
	model string
}

// New creates a new LLM client.
func New(baseURL, apiKey, modelName string) *Client {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &Client{
		api:   openai.NewClientWithConfig(config),
		model: modelName,
	}
}

// Ping verifies the endpoint is reachable and the model exists.
func (c *Client) Ping(ctx context.Context) error {
	_, err := c.api.ListModels(ctx)
	if err != nil {
		return fmt.Errorf("LLM endpoint unreachable: %w", err)
	}
	return nil
}

// GenerateQuiz asks the model for a quiz draft on the given topic.
func (c *Client) GenerateQuiz(ctx context.Context, topic string, numQuestions, numOptions int) (*Draft, error) {
	prompt, err := buildDraftPrompt(topic, numQuestions, numOptions)
	if err != nil {
		return nil, err
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.3,
	})
	if err != nil {
		return nil, fmt.Errorf("LLM API call: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("LLM returned no choices")
	}

	raw := resp.Choices[0].Message.Content
	slog.Debug("LLM response", "raw", raw)

	var draft Draft
	if err := json.Unmarshal([]byte(raw), &draft); err != nil {
		return nil, fmt.Errorf("parse LLM response: %w (raw: %s)", err, raw)
	}
	if err := validateDraft(&draft); err != nil {
		return nil, fmt.Errorf("LLM produced an unusable draft: %w (raw: %s)", err, raw)
	}
	return &draft, nil
}

// validateDraft enforces the same shape the create endpoint will demand:
// at least one question, two options each, correct index in bounds.
func validateDraft(d *Draft) error {
	if d.Title == "" {
		return fmt.Errorf("empty title")
	}
	if len(d.Questions) == 0 {
		return fmt.Errorf("no questions")
	}
	for i, q := range d.Questions {
		if q.Question == "" {
			return fmt.Errorf("question %d: empty text", i)
		}
		if len(q.Options) < 2 {
			return fmt.Errorf("question %d: needs at least 2 options, got %d", i, len(q.Options))
		}
		if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
			return fmt.Errorf("question %d: correctAnswer %d out of range", i, q.CorrectAnswer)
		}
	}
	return nil
}

// ToQuiz converts a reviewed draft into the storable model.
func (d *Draft) ToQuiz(timeLimit int) model.Quiz {
	quiz := model.Quiz{Title: d.Title, TimeLimit: timeLimit}
	for _, q := range d.Questions {
		correct := q.CorrectAnswer
		quiz.Questions = append(quiz.Questions, model.Question{
			Question:      q.Question,
			Options:       q.Options,
			CorrectAnswer: &correct,
		})
	}
	return quiz
}
