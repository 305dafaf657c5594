package quiz

import "time"

// Type is the question kind.
type Type string

const (
	TypeSubjective Type = "subjective"
	TypeMultiple   Type = "multiple"
)

// DefaultMaxScore is awarded for a correct answer when a quiz sets none.
const DefaultMaxScore = 10

// Category groups quizzes. Names are unique.
type Category struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
}

// Option is one choice of a multiple-choice quiz.
type Option struct {
	ID        string `json:"id" db:"id"`
	Text      string `json:"text" db:"text"`
	IsCorrect bool   `json:"isCorrect" db:"is_correct"`
}

// Quiz is a single question with its grading data. Answer is used by
// subjective quizzes, Options by multiple-choice quizzes.
type Quiz struct {
	ID         string    `json:"id" db:"id"`
	CategoryID string    `json:"categoryId" db:"category_id"`
	Type       Type      `json:"type" db:"type"`
	Context    string    `json:"context" db:"context"`
	Answer     string    `json:"answer,omitempty" db:"answer"`
	Options    []Option  `json:"options,omitempty" db:"-"`
	MaxScore   int       `json:"maxScore" db:"max_score"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// QuestionOption is an Option without its correctness flag.
type QuestionOption struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Question is the client view of the quiz at a session cursor. It never
// carries the answer or option correctness.
type Question struct {
	QuizID   string           `json:"quizId"`
	Type     Type             `json:"type"`
	Context  string           `json:"context"`
	Options  []QuestionOption `json:"options,omitempty"`
	MaxScore int              `json:"maxScore"`
	Position int              `json:"position"`
	Total    int              `json:"total"`
}

// Answer is a submission. Text is read for subjective quizzes and
// OptionIDs for multiple-choice quizzes.
type Answer struct {
	Text      string   `json:"text,omitempty"`
	OptionIDs []string `json:"optionIds,omitempty"`
}

// Attempt is one graded entry of a session's attempt log.
type Attempt struct {
	QuizID    string `json:"quizId" db:"quiz_id"`
	IsCorrect bool   `json:"isCorrect" db:"is_correct"`
	Score     int    `json:"score" db:"score"`
	TimeTaken int    `json:"timeTaken" db:"time_taken"`
}

// Session is a fixed, ordered run of quizzes for one user.
//
// CurrentIndex always equals len(Attempts), and Finished is true exactly
// when CurrentIndex reaches len(QuizIDs).
type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	CategoryID   string    `json:"categoryId"`
	QuizIDs      []string  `json:"quizIds"`
	CurrentIndex int       `json:"currentIndex"`
	Attempts     []Attempt `json:"attempts"`
	Finished     bool      `json:"finished"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AttemptRecord is the durable per-user attempt written alongside each
// session submission. (SessionID, Position) is unique.
type AttemptRecord struct {
	ID        string    `json:"id" db:"id"`
	UserID    string    `json:"userId" db:"user_id"`
	QuizID    string    `json:"quizId" db:"quiz_id"`
	SessionID string    `json:"sessionId" db:"session_id"`
	Position  int       `json:"position" db:"position"`
	IsCorrect bool      `json:"isCorrect" db:"is_correct"`
	Score     int       `json:"score" db:"score"`
	TimeTaken int       `json:"timeTaken" db:"time_taken"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Result summarizes a finished session.
type Result struct {
	SessionID     string    `json:"sessionId"`
	TotalScore    int       `json:"totalScore"`
	CorrectCount  int       `json:"correctCount"`
	TotalTime     int       `json:"totalTime"`
	QuestionCount int       `json:"questionCount"`
	Attempts      []Attempt `json:"attempts"`
}

// Stats aggregates a user's durable attempts.
type Stats struct {
	Attempts       int     `json:"attempts"`
	Correct        int     `json:"correct"`
	TotalScore     int     `json:"totalScore"`
	AvgCorrectRate float64 `json:"avgCorrectRate"`
}
