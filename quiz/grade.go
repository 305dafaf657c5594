package quiz

import (
	"fmt"
	"strings"
)

// Grade scores a against q. Scoring is all or nothing: a correct answer
// earns q.MaxScore, anything else earns 0.
func Grade(q *Quiz, a Answer) (bool, int) {
	var ok bool
	switch q.Type {
	case TypeSubjective:
		ok = gradeSubjective(q.Answer, a.Text)
	case TypeMultiple:
		ok = gradeMultiple(q.Options, a.OptionIDs)
	}
	if !ok {
		return false, 0
	}
	return true, q.maxScore()
}

func gradeSubjective(expected, given string) bool {
	want := normalizeText(expected)
	return want != "" && want == normalizeText(given)
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// gradeMultiple compares the submitted ids and the correct ids as sets.
// Order and duplicates in the submission do not matter.
func gradeMultiple(options []Option, selected []string) bool {
	correct := make(map[string]struct{}, len(options))
	for _, o := range options {
		if o.IsCorrect {
			correct[o.ID] = struct{}{}
		}
	}
	if len(correct) == 0 {
		return false
	}

	seen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		if _, ok := correct[id]; !ok {
			return false
		}
		seen[id] = struct{}{}
	}
	return len(seen) == len(correct)
}

func (q *Quiz) maxScore() int {
	if q.MaxScore <= 0 {
		return DefaultMaxScore
	}
	return q.MaxScore
}

// Validate checks authoring rules: a prompt, a known type, a positive max
// score, an answer for subjective quizzes and at least two options with one
// correct for multiple-choice quizzes.
func (q *Quiz) Validate() error {
	if strings.TrimSpace(q.Context) == "" {
		return fmt.Errorf("%w: context is required", ErrInvalidQuiz)
	}
	if q.CategoryID == "" {
		return fmt.Errorf("%w: category is required", ErrInvalidQuiz)
	}
	if q.MaxScore < 0 {
		return fmt.Errorf("%w: maxScore must be positive", ErrInvalidQuiz)
	}
	switch q.Type {
	case TypeSubjective:
		if strings.TrimSpace(q.Answer) == "" {
			return fmt.Errorf("%w: subjective quiz requires an answer", ErrInvalidQuiz)
		}
	case TypeMultiple:
		if len(q.Options) < 2 {
			return fmt.Errorf("%w: multiple-choice quiz requires at least two options", ErrInvalidQuiz)
		}
		var correct int
		for _, o := range q.Options {
			if strings.TrimSpace(o.Text) == "" {
				return fmt.Errorf("%w: option text is required", ErrInvalidQuiz)
			}
			if o.IsCorrect {
				correct++
			}
		}
		if correct == 0 {
			return fmt.Errorf("%w: multiple-choice quiz requires a correct option", ErrInvalidQuiz)
		}
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidQuiz, q.Type)
	}
	return nil
}

// Question returns the client view of q at position (zero based) in a
// session of total questions.
func (q *Quiz) Question(position, total int) *Question {
	out := &Question{
		QuizID:   q.ID,
		Type:     q.Type,
		Context:  q.Context,
		MaxScore: q.maxScore(),
		Position: position,
		Total:    total,
	}
	if q.Type == TypeMultiple {
		out.Options = make([]QuestionOption, len(q.Options))
		for i, o := range q.Options {
			out.Options[i] = QuestionOption{ID: o.ID, Text: o.Text}
		}
	}
	return out
}
