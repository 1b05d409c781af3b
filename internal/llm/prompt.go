package llm

import (
	"bytes"
	"text/template"
)

var draftPromptTmpl = template.Must(template.New("draft").Parse(`You are a quiz author.
Write {{.NumQuestions}} multiple-choice questions about: {{.Topic}}

Rules:
- Each question has exactly {{.NumOptions}} answer options.
- Exactly one option is correct.
- Vary which position holds the correct option.
- Keep questions self-contained; no references to "the text above".

Respond with a single JSON object in exactly this shape:
{"title": "...", "questions": [{"question": "...", "options": ["...", "..."], "correctAnswer": 0}]}
where correctAnswer is the zero-based index of the correct option.`))

type draftPromptData struct {
	Topic        string
	NumQuestions int
	NumOptions   int
}

func buildDraftPrompt(topic string, numQuestions, numOptions int) (string, error) {
	var buf bytes.Buffer
	err := draftPromptTmpl.Execute(&buf, draftPromptData{
		Topic:        topic,
		NumQuestions: numQuestions,
		NumOptions:   numOptions,
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}
