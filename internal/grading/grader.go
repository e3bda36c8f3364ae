package grading

import (
	"math"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	"quiz-mastery-service/internal/domain"
)

// tolerance absorbs floating-point rounding when comparing a Calculation
// submission against its numeric target.
const tolerance = 0.001

// Result is the outcome of grading one submission.
type Result struct {
	Correct    bool
	Normalized string
}

// Grade decides whether a submission answers the question. Each input type
// carries its own equivalence rule, kept as explicit branches on purpose:
// folding them into one normalization routine would either over-normalize
// multiple-choice tokens or under-normalize free text.
//
// A submission that cannot be graded (malformed expression, unknown input
// type) is incorrect, never an error. Errors are reserved for misconfigured
// question records.
func Grade(q domain.Question, submitted string) (Result, error) {
	switch q.InputType {
	case domain.InputFreeText:
		return gradeFreeText(q, submitted)
	case domain.InputMultipleChoice:
		return gradeMultipleChoice(q, submitted)
	case domain.InputCalculation:
		return gradeCalculation(q, submitted)
	}
	return Result{Correct: false, Normalized: submitted}, nil
}

func gradeFreeText(q domain.Question, submitted string) (Result, error) {
	if len(q.Expected) == 0 {
		return Result{}, domain.ErrEmptyExpectedSet
	}
	got := NormalizeText(submitted)
	for _, expected := range q.Expected {
		if got == NormalizeText(expected) {
			return Result{Correct: true, Normalized: got}, nil
		}
	}
	return Result{Correct: false, Normalized: got}, nil
}

// gradeMultipleChoice compares the literal option value against the first
// expected answer. No normalization: the client submits a rendered option
// verbatim, so any difference is a genuine mismatch.
func gradeMultipleChoice(q domain.Question, submitted string) (Result, error) {
	if len(q.Expected) == 0 {
		return Result{}, domain.ErrEmptyExpectedSet
	}
	return Result{Correct: submitted == q.Expected[0], Normalized: submitted}, nil
}

func gradeCalculation(q domain.Question, submitted string) (Result, error) {
	if q.Target == nil {
		return Result{}, domain.ErrMissingTarget
	}
	sanitized := SanitizeExpression(submitted)
	value, err := EvalExpression(sanitized)
	if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
		return Result{Correct: false, Normalized: sanitized}, nil
	}
	return Result{
		Correct:    math.Abs(value-*q.Target) <= tolerance,
		Normalized: sanitized,
	}, nil
}

// punctStripper removes the fixed punctuation set that free-text grading
// ignores.
var punctStripper = strings.NewReplacer(
	".", "", ",", "", "!", "", "?", "", ";", "", ":", "", "'", "", `"`, "",
)

// NormalizeText canonicalizes free-text answers so that case, surrounding and
// interior whitespace, trivial punctuation, and Unicode composition form never
// decide correctness. Case folding is locale-invariant, and NFD decomposition
// makes combining diacritical and tonal marks compare equal regardless of how
// they were typed.
func NormalizeText(s string) string {
	s = strings.TrimSpace(s)
	s = cases.Fold().String(s)
	// Strip punctuation before collapsing so "answer !" leaves no residual space.
	s = punctStripper.Replace(s)
	s = strings.Join(strings.Fields(s), " ")
	return norm.NFD.String(s)
}

// BasePoints maps a difficulty tier to a question's base value. Fixed
// three-tier step function; the thresholds are part of the scoring contract.
func BasePoints(difficulty int) int {
	switch {
	case difficulty >= 3:
		return 30
	case difficulty == 2:
		return 20
	default:
		return 10
	}
}

// Apply turns a grade into the immutable record the rest of the system
// consumes. Awarded is zero unless the answer is correct.
func Apply(q domain.Question, r Result) domain.GradedAnswer {
	awarded := 0
	if r.Correct {
		awarded = BasePoints(q.Difficulty)
	}
	return domain.GradedAnswer{
		QuestionID: q.ID,
		Category:   q.Category,
		Correct:    r.Correct,
		Awarded:    awarded,
	}
}
