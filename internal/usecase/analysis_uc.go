// File: internal/usecase/analysis_uc.go
package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"assessment-activation/internal/domain/ports/adapter"
)

// DimensionInput is one scored dimension of an assessment report.
type DimensionInput struct {
	Name       string  `json:"name"`
	Score      int     `json:"score"`
	MaxScore   int     `json:"maxScore"`
	Percentage float64 `json:"percentage"`
	Level      struct {
		Level string `json:"level"`
	} `json:"level"`
}

// ReportInput is the locally computed assessment result the client sends for
// enrichment.
type ReportInput struct {
	TotalScore int `json:"totalScore"`
	Level      struct {
		Name string `json:"name"`
	} `json:"level"`
	Type struct {
		Name string `json:"name"`
	} `json:"type"`
	Dimensions []DimensionInput `json:"dimensions"`
}

type BasicInfo struct {
	Age             string `json:"age"`
	Gender          string `json:"gender"`
	Occupation      string `json:"occupation"`
	SocialFrequency string `json:"social_frequency"`
}

// AnalysisRequest is the /ai/generate payload.
type AnalysisRequest struct {
	Report    ReportInput    `json:"report"`
	Answers   map[string]int `json:"answers"`
	BasicInfo BasicInfo      `json:"basicInfo"`
}

type RootCause struct {
	Title string `json:"title"`
	Desc  string `json:"desc"`
}

// AnalysisData is the personalized profile extracted from the model reply.
type AnalysisData struct {
	ID              string      `json:"id"`
	Name            string      `json:"typeName"`
	EnglishName     string      `json:"englishName"`
	Features        []string    `json:"features"`
	RootCauses      []RootCause `json:"rootCauses"`
	PositiveReframe string      `json:"positiveReframe"`
}

// AnalysisResult is returned even on failure so the client can fall back to
// its built-in type table.
type AnalysisResult struct {
	Success        bool          `json:"success"`
	Data           *AnalysisData `json:"data,omitempty"`
	Error          string        `json:"error,omitempty"`
	ResponseTimeMs int64         `json:"responseTime"`
	Tokens         int           `json:"tokens"`
}

// AnalysisUseCase is a stateless passthrough to a chat-completion provider:
// build prompt, call, extract the JSON object from the reply.
type AnalysisUseCase struct {
	ai  adapter.ChatCompletionAdapter
	log *zerolog.Logger
}

func NewAnalysisUseCase(ai adapter.ChatCompletionAdapter, logger *zerolog.Logger) *AnalysisUseCase {
	return &AnalysisUseCase{ai: ai, log: logger}
}

const analysisSystemPrompt = "You are a professional and warm counselling psychologist specializing in the assessment of social anxiety."

var (
	ageLabels = map[string]string{
		"teen":        "12-17 (teenager)",
		"college":     "18-22 (college student)",
		"young_adult": "23-29 (young adult)",
		"adult":       "30-39 (adult)",
		"mature":      "40+ (mature)",
	}
	genderLabels = map[string]string{
		"male": "male", "female": "female", "other": "other",
	}
	occupationLabels = map[string]string{
		"student":      "student",
		"employee":     "office worker",
		"freelancer":   "freelancer",
		"entrepreneur": "entrepreneur",
		"unemployed":   "between jobs",
		"other":        "other",
	}
	frequencyLabels = map[string]string{
		"rarely":     "almost never",
		"occasional": "1-2 times a week",
		"regular":    "3-4 times a week",
		"frequent":   "5+ times a week",
	}
)

func label(m map[string]string, key string) string {
	if v, ok := m[key]; ok {
		return v
	}
	return "unknown"
}

// buildPrompt renders the assessment into the instruction the provider sees.
// The reply contract is a bare JSON object; the extractor below tolerates
// models that wrap it in prose anyway.
func buildPrompt(req *AnalysisRequest) string {
	var dims []string
	for _, d := range req.Report.Dimensions {
		dims = append(dims, fmt.Sprintf("%s: %d/%d (%.0f%%) - %s",
			d.Name, d.Score, d.MaxScore, d.Percentage, d.Level.Level))
	}

	var highScore []string
	for id, score := range req.Answers {
		if n, err := strconv.Atoi(id); err == nil && score >= 4 && n <= 33 {
			highScore = append(highScore, "Q"+id)
		}
	}

	var b strings.Builder
	b.WriteString("Based on the assessment data below, generate a deeply personalized social-anxiety profile for the user.\n\n")
	b.WriteString("[User profile]\n")
	fmt.Fprintf(&b, "Age group: %s\n", label(ageLabels, req.BasicInfo.Age))
	fmt.Fprintf(&b, "Gender: %s\n", label(genderLabels, req.BasicInfo.Gender))
	fmt.Fprintf(&b, "Occupation: %s\n", label(occupationLabels, req.BasicInfo.Occupation))
	fmt.Fprintf(&b, "Social frequency: %s\n\n", label(frequencyLabels, req.BasicInfo.SocialFrequency))
	b.WriteString("[Assessment result]\n")
	fmt.Fprintf(&b, "Total score: %d/100\n", req.Report.TotalScore)
	fmt.Fprintf(&b, "Level: %s\n", req.Report.Level.Name)
	fmt.Fprintf(&b, "Preliminary type: %s\n\n", req.Report.Type.Name)
	fmt.Fprintf(&b, "[Dimension scores]\n%s\n\n", strings.Join(dims, "\n"))
	fmt.Fprintf(&b, "[High-anxiety questions]\n%s\n\n", strings.Join(highScore, ", "))
	b.WriteString(`Respond with ONLY a JSON object, no other text, in exactly this shape:

{
  "typeName": "personalized type name, max 15 characters",
  "englishName": "Personalized Type Name",
  "features": ["core trait 1", "core trait 2", "core trait 3"],
  "rootCauses": [
    {"title": "root cause 1", "desc": "detailed explanation"},
    {"title": "root cause 2", "desc": "detailed explanation"}
  ],
  "positiveReframe": "a warm positive reframing, 60-80 characters"
}`)
	return b.String()
}

// extractJSON pulls the first top-level {...} object out of a model reply
// that may be wrapped in prose or code fences.
func extractJSON(reply string) (string, error) {
	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return "", errors.New("no JSON object in model reply")
	}
	return reply[start : end+1], nil
}

// Generate calls the provider and validates the extracted analysis. Failures
// come back as Success=false rather than an error: the caller treats the
// whole feature as best-effort.
func (uc *AnalysisUseCase) Generate(ctx context.Context, req *AnalysisRequest) *AnalysisResult {
	start := time.Now()
	fail := func(msg string) *AnalysisResult {
		uc.log.Warn().Str("reason", msg).Msg("analysis generation failed")
		return &AnalysisResult{
			Success:        false,
			Error:          msg,
			ResponseTimeMs: time.Since(start).Milliseconds(),
		}
	}

	messages := []adapter.Message{
		{Role: "system", Content: analysisSystemPrompt},
		{Role: "user", Content: buildPrompt(req)},
	}
	reply, tokens, err := uc.ai.Chat(ctx, messages)
	if err != nil {
		return fail(err.Error())
	}

	raw, err := extractJSON(reply)
	if err != nil {
		return fail(err.Error())
	}
	var data AnalysisData
	if err := json.Unmarshal([]byte(raw), &data); err != nil {
		return fail("malformed JSON in model reply")
	}
	if data.Name == "" || len(data.Features) == 0 || len(data.RootCauses) == 0 {
		return fail("incomplete analysis in model reply")
	}
	data.ID = "ai_generated"
	if data.EnglishName == "" {
		data.EnglishName = "AI Generated Type"
	}

	elapsed := time.Since(start)
	uc.log.Info().Dur("duration", elapsed).Int("tokens", tokens).Msg("analysis generated")
	return &AnalysisResult{
		Success:        true,
		Data:           &data,
		ResponseTimeMs: elapsed.Milliseconds(),
		Tokens:         tokens,
	}
}
