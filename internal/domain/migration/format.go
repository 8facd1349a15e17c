package migration

import (
	"github.com/coursebridge/migration-backend/internal/domain/target"
)

// QuestionFormat is a tagged variant over the five target answer formats.
// The source type-mapping table is a total function into this variant, so
// an unmapped legacy type is an explicit case instead of a stray string.
type QuestionFormat interface {
	TargetType() string
	questionFormat()
}

// OptionSpec is one answer option to create, with its value token already
// generated.
type OptionSpec struct {
	Title     string
	Value     string
	IsCorrect bool
}

// BlankSpec is one accepted-answer entry referenced from an inline blank
// marker by generated id.
type BlankSpec struct {
	ID   string `json:"id"`
	Fill string `json:"fill"`
}

// MatchPair is one left/right pair of a matching question, keyed by the
// left option's value token.
type MatchPair struct {
	Left  string
	Right string
	Value string
}

// ShuffledTarget is one entry of the permuted right-hand list attached to
// every option of a matching question.
type ShuffledTarget struct {
	Value       string `json:"value"`
	MatchTarget string `json:"match_target"`
	Position    int    `json:"order"`
}

type SingleChoice struct {
	Options []OptionSpec
}

type MultiChoice struct {
	Options []OptionSpec
}

// Sorting carries options in the correct order; the ordering itself is the
// answer, so every option is flagged correct.
type Sorting struct {
	Options []OptionSpec
}

// FillInBlank carries the converted body with inline blank markers plus the
// ordered accepted-answer entries the markers reference.
type FillInBlank struct {
	Body   string
	Blanks []BlankSpec
}

// Matching carries the pairs plus one shuffled permutation of all targets,
// computed once so every option renders the same list.
type Matching struct {
	Pairs    []MatchPair
	Shuffled []ShuffledTarget
}

func (SingleChoice) TargetType() string { return target.QuestionTypeSingleChoice }
func (MultiChoice) TargetType() string  { return target.QuestionTypeMultiChoice }
func (Sorting) TargetType() string      { return target.QuestionTypeSortingChoice }
func (FillInBlank) TargetType() string  { return target.QuestionTypeFillInBlanks }
func (Matching) TargetType() string     { return target.QuestionTypeMatchingSorting }

func (SingleChoice) questionFormat() {}
func (MultiChoice) questionFormat()  {}
func (Sorting) questionFormat()      {}
func (FillInBlank) questionFormat()  {}
func (Matching) questionFormat()     {}
