// Package verdict decodes the JSON verdicts the model is asked to return.
// The engine stores slots verbatim; parsing only serves read-side views.
package verdict

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"ArticlesEvaluator/internal/domain"
)

// ErrNoVerdict is returned for slots that hold a marker instead of model output.
var ErrNoVerdict = errors.New("slot holds no verdict")

// Dimension is the decoded answer of one rubric prompt.
// Score is nil for the qualitative dimension.
type Dimension struct {
	Score     *int   `json:"score,omitempty"`
	Rationale string `json:"rationale,omitempty"`
	Feedback  string `json:"feedback,omitempty"`
}

// Aggregate is the decoded final assessment.
type Aggregate struct {
	TotalScore     int      `json:"total_score"`
	KeyStrengths   []string `json:"key_strengths"`
	KeyWeaknesses  []string `json:"key_weaknesses"`
	Recommendation string   `json:"recommendation"`
}

// Slot is one decoded result slot; Raw is always kept.
type Slot struct {
	Name      string     `json:"name"`
	Raw       string     `json:"raw"`
	Dimension *Dimension `json:"dimension,omitempty"`
	Aggregate *Aggregate `json:"aggregate,omitempty"`
	Error     string     `json:"parse_error,omitempty"`
}

// ParseDimension decodes a rubric response.
func ParseDimension(raw string) (Dimension, error) {
	var d Dimension
	if err := decode(raw, &d); err != nil {
		return Dimension{}, err
	}
	return d, nil
}

// ParseAggregate decodes the aggregation response.
func ParseAggregate(raw string) (Aggregate, error) {
	var a Aggregate
	if err := decode(raw, &a); err != nil {
		return Aggregate{}, err
	}
	return a, nil
}

// ParseResults decodes every slot of a record. Undecodable slots keep
// their raw text and carry the parse error.
func ParseResults(results domain.Results) []Slot {
	slots := make([]Slot, 0, domain.SlotCount)
	for _, dim := range domain.Dimensions() {
		slot := Slot{Name: dim.String(), Raw: results[dim]}
		if d, err := ParseDimension(slot.Raw); err != nil {
			slot.Error = err.Error()
		} else {
			if !dim.Scored() {
				d.Score = nil
			}
			slot.Dimension = &d
		}
		slots = append(slots, slot)
	}

	final := Slot{Name: "final", Raw: results.Aggregate()}
	if a, err := ParseAggregate(final.Raw); err != nil {
		final.Error = err.Error()
	} else {
		final.Aggregate = &a
	}
	return append(slots, final)
}

func decode(raw string, target any) error {
	text := strings.TrimSpace(raw)
	if isMarker(text) {
		return ErrNoVerdict
	}
	text = extractObject(stripFence(text))
	if text == "" {
		return ErrNoVerdict
	}

	if err := json.Unmarshal([]byte(text), target); err == nil {
		return nil
	}
	repaired, err := jsonrepair.JSONRepair(text)
	if err != nil {
		return fmt.Errorf("repair verdict json: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), target); err != nil {
		return fmt.Errorf("decode verdict json: %w", err)
	}
	return nil
}

func isMarker(text string) bool {
	return text == "" ||
		text == domain.NotAvailable ||
		text == domain.NoResponse ||
		strings.HasPrefix(text, domain.ErrorPrefix)
}

func stripFence(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

// extractObject drops any prose around the outermost JSON object.
func extractObject(text string) string {
	start := strings.IndexByte(text, '{')
	if start < 0 {
		return ""
	}
	end := strings.LastIndexByte(text, '}')
	if end < start {
		return text[start:]
	}
	return text[start : end+1]
}
