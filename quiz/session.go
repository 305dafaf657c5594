package quiz

import "math"

// Sample picks n distinct ids from pool uniformly at random without
// replacement, using intn as the random source. The pool is not modified.
func Sample(pool []string, n int, intn func(int) int) ([]string, error) {
	if n <= 0 || len(pool) < n {
		return nil, ErrNotEnoughQuestions
	}
	ids := make([]string, len(pool))
	copy(ids, pool)
	// Partial Fisher-Yates: only the first n slots are settled.
	for i := 0; i < n; i++ {
		j := i + intn(len(ids)-i)
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids[:n], nil
}

// Current returns the quiz id at the cursor, or false when finished.
func (s *Session) Current() (string, bool) {
	if s.Finished || s.CurrentIndex >= len(s.QuizIDs) {
		return "", false
	}
	return s.QuizIDs[s.CurrentIndex], true
}

// Apply appends a to the attempt log and advances the cursor.
func (s *Session) Apply(a Attempt) error {
	id, ok := s.Current()
	if !ok {
		return ErrFinished
	}
	a.QuizID = id
	s.Attempts = append(s.Attempts, a)
	s.CurrentIndex++
	s.Finished = s.CurrentIndex >= len(s.QuizIDs)
	return nil
}

// Summarize derives the result of a finished session from its attempt log.
func Summarize(s *Session) (*Result, error) {
	if !s.Finished {
		return nil, ErrNotFinished
	}
	r := &Result{
		SessionID:     s.ID,
		QuestionCount: len(s.QuizIDs),
		Attempts:      append([]Attempt(nil), s.Attempts...),
	}
	for _, a := range s.Attempts {
		r.TotalScore += a.Score
		r.TotalTime += a.TimeTaken
		if a.IsCorrect {
			r.CorrectCount++
		}
	}
	return r, nil
}

// NewStats builds Stats from raw aggregates. The correct rate is a
// percentage rounded to two decimals and zero when there are no attempts.
func NewStats(attempts, correct, totalScore int) Stats {
	st := Stats{Attempts: attempts, Correct: correct, TotalScore: totalScore}
	if attempts > 0 {
		st.AvgCorrectRate = math.Round(float64(correct)/float64(attempts)*100*100) / 100
	}
	return st
}
