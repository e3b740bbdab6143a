//go:build !integration

package usecase_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"assessment-activation/internal/domain/ports/adapter"
	"assessment-activation/internal/usecase"
)

type mockChatAdapter struct {
	reply  string
	tokens int
	err    error
	seen   []adapter.Message
}

func (m *mockChatAdapter) Chat(_ context.Context, messages []adapter.Message) (string, int, error) {
	m.seen = messages
	return m.reply, m.tokens, m.err
}

func sampleAnalysisRequest() *usecase.AnalysisRequest {
	req := &usecase.AnalysisRequest{
		Answers: map[string]int{"1": 5, "12": 4, "40": 5},
	}
	req.Report.TotalScore = 62
	req.Report.Level.Name = "moderate"
	req.Report.Type.Name = "observer"
	req.BasicInfo = usecase.BasicInfo{Age: "college", Gender: "female", Occupation: "student", SocialFrequency: "occasional"}
	return req
}

const goodReply = "Here is your analysis:\n```json\n" +
	`{"typeName":"Quiet Observer","englishName":"The Quiet Observer",` +
	`"features":["watchful","thoughtful"],` +
	`"rootCauses":[{"title":"early pressure","desc":"..."}],` +
	`"positiveReframe":"Your caution is care."}` +
	"\n```"

func TestAnalysisGenerate(t *testing.T) {
	ctx := context.Background()

	t.Run("extracts JSON wrapped in prose and fences", func(t *testing.T) {
		mock := &mockChatAdapter{reply: goodReply, tokens: 321}
		uc := usecase.NewAnalysisUseCase(mock, newTestLogger())

		res := uc.Generate(ctx, sampleAnalysisRequest())
		if !res.Success {
			t.Fatalf("Generate failed: %s", res.Error)
		}
		if res.Data.Name != "Quiet Observer" || res.Data.ID != "ai_generated" {
			t.Errorf("data = %+v", res.Data)
		}
		if res.Tokens != 321 {
			t.Errorf("Tokens = %d, want 321", res.Tokens)
		}
		if len(mock.seen) != 2 || mock.seen[0].Role != "system" {
			t.Errorf("unexpected prompt shape: %+v", mock.seen)
		}
		// The user prompt carries the profile and the high-anxiety questions.
		prompt := mock.seen[1].Content
		for _, want := range []string{"college student", "62/100", "Q1", "Q12"} {
			if !strings.Contains(prompt, want) {
				t.Errorf("prompt missing %q", want)
			}
		}
		if strings.Contains(prompt, "Q40") {
			t.Error("questions above 33 must not count as high-anxiety")
		}
	})

	t.Run("provider error becomes success=false", func(t *testing.T) {
		mock := &mockChatAdapter{err: errors.New("upstream 503")}
		uc := usecase.NewAnalysisUseCase(mock, newTestLogger())
		res := uc.Generate(ctx, sampleAnalysisRequest())
		if res.Success || res.Error == "" {
			t.Errorf("got %+v, want failure with message", res)
		}
	})

	t.Run("reply without JSON becomes success=false", func(t *testing.T) {
		mock := &mockChatAdapter{reply: "sorry, I cannot help with that"}
		uc := usecase.NewAnalysisUseCase(mock, newTestLogger())
		if res := uc.Generate(ctx, sampleAnalysisRequest()); res.Success {
			t.Errorf("got %+v, want failure", res)
		}
	})

	t.Run("incomplete analysis is rejected", func(t *testing.T) {
		mock := &mockChatAdapter{reply: `{"typeName":"X","features":[],"rootCauses":[]}`}
		uc := usecase.NewAnalysisUseCase(mock, newTestLogger())
		if res := uc.Generate(ctx, sampleAnalysisRequest()); res.Success {
			t.Errorf("got %+v, want failure", res)
		}
	})
}
