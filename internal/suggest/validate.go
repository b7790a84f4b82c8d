package suggest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"taskflow/internal/domain"
)

const (
	minValue = 0
	maxValue = 1000
)

// Validator sanitises raw model output against a roster.
type Validator struct {
	Logger *log.Logger
}

// ParseAndValidate uses the default logger.
func ParseAndValidate(raw string, roster []domain.Member) (Result, error) {
	return Validator{}.ParseAndValidate(raw, roster)
}

type rawResult struct {
	Recommendations []rawRecommendation `json:"recommendations"`
	Warnings        []string            `json:"warnings"`
	Suggestions     []string            `json:"suggestions"`
}

type rawRecommendation struct {
	MemberID               string     `json:"memberId"`
	MemberName             string     `json:"memberName"`
	Score                  *flexFloat `json:"score"`
	Reasons                []string   `json:"reasons"`
	Risks                  []string   `json:"risks"`
	ProjectedWorkloadAfter *flexFloat `json:"projectedWorkloadAfter"`
}

// flexFloat accepts 85, 85.5 and "85". Anything else decodes as invalid
// rather than failing the whole document.
type flexFloat struct {
	Value float64
	Valid bool
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.Value, f.Valid = n, true
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		if v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "%")), 64); err == nil && !math.IsNaN(v) {
			f.Value, f.Valid = v, true
		}
	}
	return nil
}

func (v Validator) ParseAndValidate(raw string, roster []domain.Member) (Result, error) {
	logger := v.Logger
	if logger == nil {
		logger = log.Default()
	}
	cleaned := StripCodeFence(raw)
	var parsed rawResult
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		return Result{}, MalformedResponseError{Raw: raw, Err: err}
	}

	known := make(map[string]domain.Member, len(roster))
	for _, m := range roster {
		known[m.ID] = m
	}
	res := Result{
		Recommendations: make([]Recommendation, 0, len(parsed.Recommendations)),
		Warnings:        nonNil(parsed.Warnings),
		Suggestions:     nonNil(parsed.Suggestions),
	}
	for i, r := range parsed.Recommendations {
		id := strings.TrimSpace(r.MemberID)
		m, ok := known[id]
		if !ok {
			logger.Warn("dropping recommendation for unknown member", "member_id", id, "index", i)
			res.Warnings = append(res.Warnings, fmt.Sprintf("dropped recommendation for unknown member %q", id))
			continue
		}
		rec := Recommendation{
			MemberID:   id,
			MemberName: strings.TrimSpace(r.MemberName),
			Reasons:    nonNil(r.Reasons),
			Risks:      nonNil(r.Risks),
		}
		if rec.MemberName == "" {
			rec.MemberName = m.Name
		}
		rec.Score = res.bounded(logger, id, "score", r.Score)
		rec.ProjectedWorkloadAfter = res.bounded(logger, id, "projectedWorkloadAfter", r.ProjectedWorkloadAfter)
		res.Recommendations = append(res.Recommendations, rec)
	}
	return res, nil
}

func (res *Result) bounded(logger *log.Logger, memberID, field string, f *flexFloat) float64 {
	if f == nil || !f.Valid {
		return 0
	}
	switch {
	case f.Value < minValue:
		logger.Warn("clamping out-of-range value", "member_id", memberID, "field", field, "value", f.Value)
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s for %s was %v, clamped to %d", field, memberID, f.Value, minValue))
		return minValue
	case f.Value > maxValue:
		logger.Warn("clamping out-of-range value", "member_id", memberID, "field", field, "value", f.Value)
		res.Warnings = append(res.Warnings, fmt.Sprintf("%s for %s was %v, clamped to %d", field, memberID, f.Value, maxValue))
		return maxValue
	}
	return f.Value
}

// StripCodeFence removes a surrounding Markdown code fence, with or without a
// language tag. Text that is already valid JSON, or that has no fence opening
// a line, is returned trimmed.
func StripCodeFence(text string) string {
	cleaned := strings.TrimSpace(text)
	if json.Valid([]byte(cleaned)) {
		return cleaned
	}
	start := fenceStart(cleaned)
	if start < 0 {
		return cleaned
	}
	body := cleaned[start+3:]
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		body = body[nl+1:]
	} else {
		body = strings.TrimPrefix(body, "json")
	}
	if end := strings.LastIndex(body, "```"); end >= 0 {
		body = body[:end]
	}
	return strings.TrimSpace(body)
}

// fenceStart finds a fence at the start of the text or of a line.
func fenceStart(s string) int {
	if strings.HasPrefix(s, "```") {
		return 0
	}
	if i := strings.Index(s, "\n```"); i >= 0 {
		return i + 1
	}
	return -1
}

func nonNil(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
