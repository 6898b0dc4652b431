package domain

import "fmt"

// Dimension is a rubric criterion. Its value doubles as the result slot index.
type Dimension int

const (
	DimensionFormat Dimension = iota
	DimensionKeyConcepts
	DimensionThemesObjectives
	DimensionConceptFormula
	DimensionQuestionSufficiency
	DimensionFactualAccuracy
	DimensionQualitativeFeedback
)

const (
	// DimensionCount is the number of rubric prompts issued per record.
	DimensionCount = 7
	// AggregateSlot holds the synthesized verdict computed from all dimensions.
	AggregateSlot = DimensionCount
	// SlotCount is the number of result slots stored per record.
	SlotCount = DimensionCount + 1
)

// In-band markers written into result slots.
const (
	NotAvailable = "NA"
	NoResponse   = "No response received"
	ErrorPrefix  = "Error:"
)

var sectionTags = [DimensionCount]string{
	"format_evaluation",
	"alignment_with_key_concepts_and_skills",
	"alignment_with_themes_and_learning_objectives",
	"concept_formula_inclusion",
	"ap_question_sufficiency",
	"factual_accuracy",
	"good_to_have_factors",
}

var dimensionNames = [DimensionCount]string{
	"format",
	"concept-alignment",
	"theme-objective-alignment",
	"concept-formula-completeness",
	"question-sufficiency",
	"factual-accuracy",
	"qualitative-feedback",
}

// Dimensions lists the rubric dimensions in slot order.
func Dimensions() []Dimension {
	dims := make([]Dimension, DimensionCount)
	for i := range dims {
		dims[i] = Dimension(i)
	}
	return dims
}

// Section returns the tag wrapping this dimension in the composite document.
func (d Dimension) Section() string {
	if d < 0 || int(d) >= DimensionCount {
		return ""
	}
	return sectionTags[d]
}

// String returns a short human readable name.
func (d Dimension) String() string {
	if d < 0 || int(d) >= DimensionCount {
		return fmt.Sprintf("dimension(%d)", int(d))
	}
	return dimensionNames[d]
}

// Scored reports whether the dimension yields a numeric score.
func (d Dimension) Scored() bool {
	return d != DimensionQualitativeFeedback
}

// Results holds the 7 sub-evaluations followed by the aggregate verdict.
// Slots are opaque model output and are never parsed by the engine.
type Results [SlotCount]string

// FailedResults is the sentinel written for a record whose pipeline broke.
func FailedResults() Results {
	var r Results
	for i := range r {
		r[i] = NotAvailable
	}
	return r
}

// Aggregate returns the final verdict slot.
func (r Results) Aggregate() string {
	return r[AggregateSlot]
}

// Failed reports whether r is the "NA" sentinel.
func (r Results) Failed() bool {
	return r == FailedResults()
}

// ErrorMarker renders err as the in-band text stored in a result slot.
func ErrorMarker(err error) string {
	if err == nil {
		return ErrorPrefix + " unknown error"
	}
	return ErrorPrefix + " " + err.Error()
}
