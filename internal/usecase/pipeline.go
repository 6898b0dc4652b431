package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"ArticlesEvaluator/internal/domain"
	"ArticlesEvaluator/internal/fanout"
	"ArticlesEvaluator/internal/ports"
)

// PipelineDeps wires the driven adapters used to evaluate one article.
type PipelineDeps struct {
	Prompts        ports.PromptProvider
	Dispatcher     ports.Dispatcher
	MaxConcurrency int
	Logger         *slog.Logger
}

// Pipeline evaluates a single record: seven rubric calls in parallel, then one aggregate call.
type Pipeline struct {
	prompts    ports.PromptProvider
	dispatcher ports.Dispatcher
	executor   *fanout.Executor
	logger     *slog.Logger
}

// NewPipeline constructs the per-record evaluation component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		prompts:    deps.Prompts,
		dispatcher: deps.Dispatcher,
		executor:   fanout.New(deps.Dispatcher, deps.MaxConcurrency, deps.Logger),
		logger:     deps.Logger,
	}
}

// Evaluate always returns a full set of slots. Any failure while building or
// running the record's pipeline yields the "NA" sentinel instead of an error.
func (p *Pipeline) Evaluate(ctx context.Context, record domain.ArticleRecord, course, credential string) (results domain.Results) {
	defer func() {
		if r := recover(); r != nil {
			p.error("evaluation panicked", "panic", r)
			results = domain.FailedResults()
		}
	}()

	results, err := p.evaluate(ctx, record, course, credential)
	if err != nil {
		p.error("evaluation failed", "error", err)
		return domain.FailedResults()
	}
	return results
}

func (p *Pipeline) evaluate(ctx context.Context, record domain.ArticleRecord, course, credential string) (domain.Results, error) {
	var results domain.Results

	if p.prompts == nil || p.dispatcher == nil {
		return results, fmt.Errorf("pipeline is not configured")
	}

	prompts, err := p.prompts.Rubric(record, course)
	if err != nil {
		return results, fmt.Errorf("build rubric prompts: %w", err)
	}
	if len(prompts) != domain.DimensionCount {
		return results, fmt.Errorf("rubric produced %d prompts, want %d", len(prompts), domain.DimensionCount)
	}

	responses := p.executor.RunAll(ctx, prompts, credential)
	copy(results[:domain.DimensionCount], responses)

	finalPrompt, err := p.prompts.Aggregate(BuildComposite(responses), course)
	if err != nil {
		return results, fmt.Errorf("build aggregate prompt: %w", err)
	}

	final, err := p.dispatcher.Dispatch(ctx, finalPrompt, credential)
	if err != nil {
		p.error("aggregate call failed", "error", err)
		final = domain.ErrorMarker(err)
	}
	results[domain.AggregateSlot] = final

	return results, nil
}

// BuildComposite wraps each dimension's raw output in its section tag, in dimension order.
func BuildComposite(responses []string) string {
	var b strings.Builder
	b.WriteString("<evaluation_results>\n")
	for _, dim := range domain.Dimensions() {
		text := ""
		if int(dim) < len(responses) {
			text = responses[dim]
		}
		fmt.Fprintf(&b, "<%s>\n%s\n</%s>\n", dim.Section(), strings.TrimSpace(text), dim.Section())
	}
	b.WriteString("</evaluation_results>\n")
	return b.String()
}

func (p *Pipeline) error(msg string, args ...any) {
	if p.logger != nil {
		p.logger.Error(msg, args...)
	}
}
