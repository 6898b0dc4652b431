// Package prompts renders the rubric and aggregation requests sent to the backend.
package prompts

import (
	"fmt"
	"strings"
	"text/template"

	"ArticlesEvaluator/internal/domain"
	"ArticlesEvaluator/internal/ports"
)

// Courses lists the course names offered by the evaluation front ends.
var Courses = []string{
	"World History", "US History", "European History", "Human Geography",
	"Biology", "Chemistry", "Physics", "Environmental Science",
	"Calculus AB", "Calculus BC", "Statistics",
	"English Language", "English Literature",
	"Psychology", "Economics", "Government and Politics",
}

// KnownCourse reports whether course is one of Courses.
func KnownCourse(course string) bool {
	for _, c := range Courses {
		if strings.EqualFold(c, strings.TrimSpace(course)) {
			return true
		}
	}
	return false
}

type rubricData struct {
	Course string
	domain.ArticleRecord
}

type aggregateData struct {
	Course  string
	Results string
}

// Provider implements ports.PromptProvider with text/template.
type Provider struct {
	rubric    [domain.DimensionCount]*template.Template
	aggregate *template.Template
}

var _ ports.PromptProvider = (*Provider)(nil)

// NewProvider parses the built-in templates.
func NewProvider() (*Provider, error) {
	p := &Provider{}
	for _, dim := range domain.Dimensions() {
		tmpl, err := template.New(dim.String()).Option("missingkey=error").Parse(rubricTemplates[dim])
		if err != nil {
			return nil, fmt.Errorf("parse %s template: %w", dim, err)
		}
		p.rubric[dim] = tmpl
	}

	tmpl, err := template.New("aggregate").Option("missingkey=error").Parse(aggregateTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse aggregate template: %w", err)
	}
	p.aggregate = tmpl
	return p, nil
}

// MustNewProvider panics if the built-in templates do not parse.
func MustNewProvider() *Provider {
	p, err := NewProvider()
	if err != nil {
		panic(err)
	}
	return p
}

// Rubric renders one prompt per rubric dimension, in dimension order.
func (p *Provider) Rubric(record domain.ArticleRecord, course string) ([]string, error) {
	data := rubricData{Course: course, ArticleRecord: record}
	out := make([]string, 0, domain.DimensionCount)
	for _, dim := range domain.Dimensions() {
		var b strings.Builder
		if err := p.rubric[dim].Execute(&b, data); err != nil {
			return nil, fmt.Errorf("render %s prompt: %w", dim, err)
		}
		out = append(out, b.String())
	}
	return out, nil
}

// Aggregate renders the synthesis prompt over the composite document.
func (p *Provider) Aggregate(composite, course string) (string, error) {
	var b strings.Builder
	if err := p.aggregate.Execute(&b, aggregateData{Course: course, Results: composite}); err != nil {
		return "", fmt.Errorf("render aggregate prompt: %w", err)
	}
	return b.String(), nil
}
