package services

import (
	"context"
	"errors"
	"testing"
)

func validQuizRequest() *CreateQuizRequest {
	return &CreateQuizRequest{
		Title: "Capitals",
		Questions: []CreateQuestionRequest{{
			Text:      "Capital of Peru?",
			TimeLimit: 20,
			Options: []CreateOptionRequest{
				{Text: "Lima", IsCorrect: true},
				{Text: "Cusco"},
			},
		}},
	}
}

func TestCreateQuizAppliesDefaults(t *testing.T) {
	repo := newMemRepo()
	svc := NewQuizService(repo)

	quiz, err := svc.CreateQuiz(context.Background(), testHostID, validQuizRequest())
	if err != nil {
		t.Fatalf("CreateQuiz() error = %v", err)
	}
	q := quiz.Questions[0]
	if q.Points != DefaultMaxPoints || q.Order != 1 || q.Options[1].Order != 2 {
		t.Fatalf("question = %+v", q)
	}
	if q.CorrectOption() == nil || q.CorrectOption().Text != "Lima" {
		t.Fatalf("correct option not kept")
	}

	if _, err := svc.GetQuizByID(context.Background(), quiz.ID, testHostID+1); !errors.Is(err, ErrQuizNotFound) {
		t.Fatalf("foreign lookup error = %v, want ErrQuizNotFound", err)
	}
}

func TestCreateQuizValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*CreateQuizRequest)
	}{
		{"blank title", func(r *CreateQuizRequest) { r.Title = "  " }},
		{"no questions", func(r *CreateQuizRequest) { r.Questions = nil }},
		{"time limit too short", func(r *CreateQuizRequest) { r.Questions[0].TimeLimit = 2 }},
		{"two correct", func(r *CreateQuizRequest) { r.Questions[0].Options[1].IsCorrect = true }},
		{"none correct", func(r *CreateQuizRequest) { r.Questions[0].Options[0].IsCorrect = false }},
		{"too many options", func(r *CreateQuizRequest) {
			r.Questions[0].Options = append(r.Questions[0].Options,
				CreateOptionRequest{Text: "a"}, CreateOptionRequest{Text: "b"}, CreateOptionRequest{Text: "c"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validQuizRequest()
			tt.mutate(req)
			_, err := NewQuizService(newMemRepo()).CreateQuiz(context.Background(), testHostID, req)
			e, ok := AsError(err)
			if !ok || e.Code != CodeInvalidArgument {
				t.Fatalf("error = %v, want invalid argument", err)
			}
		})
	}
}
