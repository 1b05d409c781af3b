package llm

import (
	"strings"
	"testing"
)

func TestBuildDraftPrompt(t *testing.T) {
	prompt, err := buildDraftPrompt("Go concurrency", 5, 4)
	if err != nil {
		t.Fatalf("buildDraftPrompt: %v", err)
	}
	if !strings.Contains(prompt, "Go concurrency") {
		t.Error("prompt should contain the topic")
	}
	if !strings.Contains(prompt, "Write 5 multiple-choice questions") {
		t.Error("prompt should state the question count")
	}
	if !strings.Contains(prompt, "exactly 4 answer options") {
		t.Error("prompt should state the option count")
	}
	if !strings.Contains(prompt, `"correctAnswer": 0`) {
		t.Error("prompt should show the expected JSON shape")
	}
}

func TestValidateDraft(t *testing.T) {
	valid := func() *Draft {
		return &Draft{
			Title: "Go Basics",
			Questions: []DraftQuestion{
				{Question: "Q1", Options: []string{"A", "B", "C"}, CorrectAnswer: 1},
			},
		}
	}

	tests := []struct {
		name    string
		mutate  func(d *Draft)
		wantErr string
	}{
		{"valid", func(d *Draft) {}, ""},
		{"empty title", func(d *Draft) { d.Title = "" }, "empty title"},
		{"no questions", func(d *Draft) { d.Questions = nil }, "no questions"},
		{"empty question text", func(d *Draft) { d.Questions[0].Question = "" }, "empty text"},
		{"single option", func(d *Draft) { d.Questions[0].Options = []string{"A"} }, "at least 2 options"},
		{"correct index too high", func(d *Draft) { d.Questions[0].CorrectAnswer = 3 }, "out of range"},
		{"negative correct index", func(d *Draft) { d.Questions[0].CorrectAnswer = -1 }, "out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid()
			tt.mutate(d)
			err := validateDraft(d)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("expected valid draft, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDraftToQuiz(t *testing.T) {
	d := &Draft{
		Title: "Networking",
		Questions: []DraftQuestion{
			{Question: "Q1", Options: []string{"A", "B"}, CorrectAnswer: 0},
			{Question: "Q2", Options: []string{"A", "B", "C"}, CorrectAnswer: 2},
		},
	}

	quiz := d.ToQuiz(15)
	if quiz.Title != "Networking" {
		t.Errorf("expected title kept, got %q", quiz.Title)
	}
	if quiz.TimeLimit != 15 {
		t.Errorf("expected time limit 15, got %d", quiz.TimeLimit)
	}
	if len(quiz.Questions) != 2 {
		t.Fatalf("expected 2 questions, got %d", len(quiz.Questions))
	}
	// Each question gets its own correct-answer pointer, not a shared one.
	if *quiz.Questions[0].CorrectAnswer != 0 || *quiz.Questions[1].CorrectAnswer != 2 {
		t.Errorf("correct answers not preserved: %d, %d",
			*quiz.Questions[0].CorrectAnswer, *quiz.Questions[1].CorrectAnswer)
	}
}
