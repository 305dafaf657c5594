package goQuiz

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/MrEthical07/goQuiz/quiz"
)

func seedCategory(t testing.TB, env *testEnv, name string, n int) *quiz.Category {
	t.Helper()
	ctx := context.Background()

	c, err := env.engine.CreateCategory(ctx, name, "")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	for i := 0; i < n; i++ {
		_, err := env.engine.CreateQuiz(ctx, CreateQuizInput{
			CategoryID: c.ID,
			Type:       quiz.TypeSubjective,
			Context:    fmt.Sprintf("What is %d+%d?", i, i),
			Answer:     fmt.Sprintf("%d", 2*i),
		})
		if err != nil {
			t.Fatalf("CreateQuiz %d failed: %v", i, err)
		}
	}
	return c
}

// answerFor returns the correct answer of the quiz at the session cursor.
func answerFor(t testing.TB, env *testEnv, s *quiz.Session) quiz.Answer {
	t.Helper()
	q, err := env.quizzes.GetQuiz(context.Background(), s.QuizIDs[s.CurrentIndex])
	if err != nil {
		t.Fatalf("GetQuiz: %v", err)
	}
	return quiz.Answer{Text: q.Answer}
}

func TestStartQuizSessionSamplesDistinct(t *testing.T) {
	env := newTestEnv(t, nil)
	c := seedCategory(t, env, "Maths", 15)

	s, err := env.engine.StartQuizSession(context.Background(), "u1", c.ID)
	if err != nil {
		t.Fatalf("StartQuizSession failed: %v", err)
	}
	if len(s.QuizIDs) != 10 || s.CurrentIndex != 0 || s.Finished {
		t.Fatalf("unexpected session %+v", s)
	}
	seen := map[string]bool{}
	for _, id := range s.QuizIDs {
		if seen[id] {
			t.Fatalf("duplicate quiz id %s", id)
		}
		seen[id] = true
		q, err := env.quizzes.GetQuiz(context.Background(), id)
		if err != nil || q.CategoryID != c.ID {
			t.Fatalf("quiz %s not from category: %v", id, err)
		}
	}
}

func TestStartQuizSessionUsesInjectedRandomness(t *testing.T) {
	env := newTestEnv(t, nil)
	c := seedCategory(t, env, "Maths", 12)
	env.engine.intn = func(int) int { return 0 }

	s, err := env.engine.StartQuizSession(context.Background(), "u1", c.ID)
	if err != nil {
		t.Fatalf("StartQuizSession failed: %v", err)
	}
	pool, _ := env.quizzes.QuizIDsByCategory(context.Background(), c.ID)
	for i, id := range s.QuizIDs {
		if id != pool[i] {
			t.Fatalf("position %d: expected %s, got %s", i, pool[i], id)
		}
	}
}

func TestStartQuizSessionShortCategory(t *testing.T) {
	ctx := context.Background()

	env := newTestEnv(t, nil)
	short := seedCategory(t, env, "Short", 4)
	empty := seedCategory(t, env, "Empty", 0)
	if _, err := env.engine.StartQuizSession(ctx, "u1", short.ID); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if _, err := env.engine.StartQuizSession(ctx, "u1", empty.ID); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("expected ErrEmptyCategory, got %v", err)
	}
	if _, err := env.engine.StartQuizSession(ctx, "u1", "missing"); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}

	lenient := newTestEnv(t, func(c *Config) { c.Quiz.AllowShortSession = true })
	short = seedCategory(t, lenient, "Short", 4)
	empty = seedCategory(t, lenient, "Empty", 0)
	s, err := lenient.engine.StartQuizSession(ctx, "u1", short.ID)
	if err != nil {
		t.Fatalf("short session should start: %v", err)
	}
	if len(s.QuizIDs) != 4 {
		t.Fatalf("expected 4 questions, got %d", len(s.QuizIDs))
	}
	if _, err := lenient.engine.StartQuizSession(ctx, "u1", empty.ID); !errors.Is(err, ErrEmptyCategory) {
		t.Fatalf("empty category must always fail, got %v", err)
	}
}

func TestNextQuestionHidesAnswers(t *testing.T) {
	env := newTestEnv(t, func(c *Config) { c.Quiz.SessionSize = 1 })
	ctx := context.Background()

	c, _ := env.engine.CreateCategory(ctx, "Geo", "")
	_, err := env.engine.CreateQuiz(ctx, CreateQuizInput{
		CategoryID: c.ID,
		Type:       quiz.TypeMultiple,
		Context:    "Pick the capitals",
		Options: []OptionInput{
			{Text: "Paris", IsCorrect: true},
			{Text: "Lyon"},
			{Text: "Rome", IsCorrect: true},
		},
		MaxScore: 4,
	})
	if err != nil {
		t.Fatalf("CreateQuiz failed: %v", err)
	}

	s, err := env.engine.StartQuizSession(ctx, "u1", c.ID)
	if err != nil {
		t.Fatalf("StartQuizSession failed: %v", err)
	}
	q, err := env.engine.NextQuestion(ctx, s.ID, "u1")
	if err != nil {
		t.Fatalf("NextQuestion failed: %v", err)
	}
	if q.Type != quiz.TypeMultiple || len(q.Options) != 3 || q.Position != 0 || q.Total != 1 || q.MaxScore != 4 {
		t.Fatalf("unexpected question %+v", q)
	}

	stored, _ := env.quizzes.GetQuiz(ctx, q.QuizID)
	var correct []string
	for _, o := range stored.Options {
		if o.IsCorrect {
			correct = append(correct, o.ID)
		}
	}
	// Reversed order and a duplicate still match the correct set.
	res, err := env.engine.SubmitAnswer(ctx, s.ID, "u1", quiz.Answer{OptionIDs: []string{correct[1], correct[0], correct[1]}}, 5)
	if err != nil {
		t.Fatalf("SubmitAnswer failed: %v", err)
	}
	if !res.IsCorrect || res.Score != 4 || !res.Finished {
		t.Fatalf("unexpected submit result %+v", res)
	}

	q, err = env.engine.NextQuestion(ctx, s.ID, "u1")
	if err != nil || q != nil {
		t.Fatalf("finished session must return nil question, got %+v %v", q, err)
	}
}

func TestFullSessionResultAndStats(t *testing.T) {
	env := newTestEnv(t, nil)
	c := seedCategory(t, env, "Maths", 10)
	ctx := context.Background()

	s, err := env.engine.StartQuizSession(ctx, "u1", c.ID)
	if err != nil {
		t.Fatalf("StartQuizSession failed: %v", err)
	}

	if _, err := env.engine.GetResult(ctx, s.ID, "u1"); !errors.Is(err, ErrNotFinished) {
		t.Fatalf("expected ErrNotFinished, got %v", err)
	}

	for i := 0; i < 10; i++ {
		cur, err := env.engine.GetSession(ctx, s.ID, "u1")
		if err != nil {
			t.Fatalf("GetSession failed: %v", err)
		}
		ans := answerFor(t, env, cur)
		if i%3 == 0 {
			ans.Text = "wrong"
		} else {
			ans.Text = "  " + ans.Text + " "
		}
		res, err := env.engine.SubmitAnswer(ctx, s.ID, "u1", ans, 3)
		if err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
		if res.CurrentIndex != i+1 || res.Finished != (i == 9) {
			t.Fatalf("submit %d: unexpected result %+v", i, res)
		}
	}

	if _, err := env.engine.SubmitAnswer(ctx, s.ID, "u1", quiz.Answer{Text: "x"}, 1); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession after finish, got %v", err)
	}

	r, err := env.engine.GetResult(ctx, s.ID, "u1")
	if err != nil {
		t.Fatalf("GetResult failed: %v", err)
	}
	// Positions 0, 3, 6 and 9 were answered wrong.
	if r.QuestionCount != 10 || r.CorrectCount != 6 || r.TotalScore != 60 || r.TotalTime != 30 || len(r.Attempts) != 10 {
		t.Fatalf("unexpected result %+v", r)
	}

	stats, err := env.engine.GetUserStats(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserStats failed: %v", err)
	}
	if stats.Attempts != 10 || stats.Correct != 6 || stats.TotalScore != 60 || stats.AvgCorrectRate != 60 {
		t.Fatalf("unexpected stats %+v", stats)
	}

	empty, _ := env.engine.GetUserStats(ctx, "nobody")
	if empty.Attempts != 0 || empty.AvgCorrectRate != 0 {
		t.Fatalf("unexpected empty stats %+v", empty)
	}

	if got := env.engine.metrics.Value(MetricQuizSessionFinished); got != 1 {
		t.Fatalf("expected finished metric 1, got %d", got)
	}
}

func TestSessionOwnership(t *testing.T) {
	env := newTestEnv(t, nil)
	c := seedCategory(t, env, "Maths", 10)
	ctx := context.Background()

	s, _ := env.engine.StartQuizSession(ctx, "owner", c.ID)

	if _, err := env.engine.GetSession(ctx, s.ID, "intruder"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := env.engine.NextQuestion(ctx, s.ID, "intruder"); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := env.engine.SubmitAnswer(ctx, s.ID, "intruder", quiz.Answer{Text: "0"}, 1); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession, got %v", err)
	}
	if _, err := env.engine.SubmitAnswer(ctx, "missing", "owner", quiz.Answer{Text: "0"}, 1); !errors.Is(err, ErrInvalidSession) {
		t.Fatalf("expected ErrInvalidSession for unknown session, got %v", err)
	}
	cur, _ := env.engine.GetSession(ctx, s.ID, "owner")
	if cur.CurrentIndex != 0 {
		t.Fatal("rejected submissions must not advance the session")
	}
}

func TestConcurrentSubmitNeverDoubleCounts(t *testing.T) {
	env := newTestEnv(t, nil)
	c := seedCategory(t, env, "Maths", 10)
	ctx := context.Background()

	s, _ := env.engine.StartQuizSession(ctx, "u1", c.ID)
	ans := answerFor(t, env, s)

	const n = 12
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	start := make(chan struct{})
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			_, err := env.engine.SubmitAnswer(ctx, s.ID, "u1", ans, 2)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
			} else if !errors.Is(err, ErrInvalidSession) {
				t.Errorf("unexpected error %v", err)
			}
		}()
	}
	close(start)
	wg.Wait()

	cur, _ := env.engine.GetSession(ctx, s.ID, "u1")
	if cur.CurrentIndex != wins || len(cur.Attempts) != wins {
		t.Fatalf("cursor %d and attempts %d must equal winners %d", cur.CurrentIndex, len(cur.Attempts), wins)
	}
	stats, _ := env.engine.GetUserStats(ctx, "u1")
	if stats.Attempts != wins {
		t.Fatalf("durable attempts %d must equal winners %d", stats.Attempts, wins)
	}
	if wins == 0 || wins > len(s.QuizIDs) {
		t.Fatalf("unexpected number of accepted submissions %d", wins)
	}
}

func TestCatalogValidation(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	c, err := env.engine.CreateCategory(ctx, "History", "dates")
	if err != nil {
		t.Fatalf("CreateCategory failed: %v", err)
	}
	if _, err := env.engine.CreateCategory(ctx, "history", ""); !errors.Is(err, ErrCategoryExists) {
		t.Fatalf("expected ErrCategoryExists, got %v", err)
	}
	if _, err := env.engine.CreateCategory(ctx, "  ", ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	bad := []CreateQuizInput{
		{CategoryID: c.ID, Type: quiz.TypeSubjective, Context: "Q"},
		{CategoryID: c.ID, Type: quiz.TypeMultiple, Context: "Q", Options: []OptionInput{{Text: "a", IsCorrect: true}}},
		{CategoryID: c.ID, Type: quiz.TypeMultiple, Context: "Q", Options: []OptionInput{{Text: "a"}, {Text: "b"}}},
		{CategoryID: c.ID, Type: "essay", Context: "Q", Answer: "x"},
		{CategoryID: c.ID, Type: quiz.TypeSubjective, Context: "", Answer: "x"},
		{CategoryID: c.ID, Type: quiz.TypeSubjective, Context: "Q", Answer: "x", MaxScore: -1},
	}
	for i, in := range bad {
		if _, err := env.engine.CreateQuiz(ctx, in); !errors.Is(err, ErrValidation) {
			t.Fatalf("case %d: expected validation error, got %v", i, err)
		}
	}
	if _, err := env.engine.CreateQuiz(ctx, CreateQuizInput{CategoryID: "missing", Type: quiz.TypeSubjective, Context: "Q", Answer: "x"}); !errors.Is(err, ErrCategoryNotFound) {
		t.Fatalf("expected ErrCategoryNotFound, got %v", err)
	}

	q, err := env.engine.CreateQuiz(ctx, CreateQuizInput{CategoryID: c.ID, Type: quiz.TypeSubjective, Context: "Year of Hastings?", Answer: "1066"})
	if err != nil {
		t.Fatalf("CreateQuiz failed: %v", err)
	}
	if q.MaxScore != quiz.DefaultMaxScore {
		t.Fatalf("expected default max score, got %d", q.MaxScore)
	}

	list, _ := env.engine.ListCategories(ctx)
	if len(list) != 1 || list[0].Name != "History" {
		t.Fatalf("unexpected categories %+v", list)
	}
}
