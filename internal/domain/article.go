package domain

import "strings"

// ArticleRecord is a single input row submitted for evaluation.
// Its identity is its position in the batch, not any of its fields.
type ArticleRecord struct {
	Topic       string
	Themes      string
	Objectives  string
	KeyConcepts string
	Article     string
	Questions   string
}

// MissingFields lists the fields left empty, in input order.
func (r ArticleRecord) MissingFields() []string {
	fields := []struct {
		name  string
		value string
	}{
		{"topic", r.Topic},
		{"themes", r.Themes},
		{"objectives", r.Objectives},
		{"key concepts", r.KeyConcepts},
		{"article", r.Article},
		{"questions", r.Questions},
	}

	var missing []string
	for _, f := range fields {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	return missing
}
