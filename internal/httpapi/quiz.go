package httpapi

import (
	"net/http"
	"time"

	goQuiz "github.com/MrEthical07/goQuiz"
	"github.com/MrEthical07/goQuiz/quiz"
	"github.com/go-chi/chi/v5"
)

type createCategoryRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=1000"`
}

type optionRequest struct {
	Text      string `json:"text" validate:"required"`
	IsCorrect bool   `json:"isCorrect"`
}

type createQuizRequest struct {
	CategoryID string          `json:"categoryId" validate:"required"`
	Type       quiz.Type       `json:"type" validate:"required,oneof=subjective multiple"`
	Context    string          `json:"context" validate:"required"`
	Answer     string          `json:"answer"`
	Options    []optionRequest `json:"options" validate:"dive"`
	MaxScore   int             `json:"maxScore" validate:"gte=0"`
}

type startSessionRequest struct {
	CategoryID string `json:"categoryId" validate:"required"`
}

type submitAnswerRequest struct {
	Text      string   `json:"text"`
	OptionIDs []string `json:"optionIds"`
	TimeTaken int      `json:"timeTaken" validate:"gte=0"`
}

// sessionView is a session as its owner sees it.
type sessionView struct {
	ID           string    `json:"id"`
	CategoryID   string    `json:"categoryId"`
	CurrentIndex int       `json:"currentIndex"`
	Total        int       `json:"total"`
	Finished     bool      `json:"finished"`
	CreatedAt    time.Time `json:"createdAt"`
}

func viewOf(s *quiz.Session) sessionView {
	return sessionView{
		ID:           s.ID,
		CategoryID:   s.CategoryID,
		CurrentIndex: s.CurrentIndex,
		Total:        len(s.QuizIDs),
		Finished:     s.Finished,
		CreatedAt:    s.CreatedAt,
	}
}

type questionResponse struct {
	Finished bool           `json:"finished"`
	Question *quiz.Question `json:"question"`
}

func (s *Server) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.engine.ListCategories(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if categories == nil {
		categories = []quiz.Category{}
	}
	ok(w, categories)
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	c, err := s.engine.CreateCategory(r.Context(), req.Name, req.Description)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created(w, c)
}

func (s *Server) createQuiz(w http.ResponseWriter, r *http.Request) {
	var req createQuizRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	in := goQuiz.CreateQuizInput{
		CategoryID: req.CategoryID,
		Type:       req.Type,
		Context:    req.Context,
		Answer:     req.Answer,
		MaxScore:   req.MaxScore,
	}
	for _, o := range req.Options {
		in.Options = append(in.Options, goQuiz.OptionInput{Text: o.Text, IsCorrect: o.IsCorrect})
	}

	q, err := s.engine.CreateQuiz(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created(w, q)
}

func (s *Server) startQuizSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	sess, err := s.engine.StartQuizSession(r.Context(), caller(r).UserID, req.CategoryID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	created(w, viewOf(sess))
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.engine.GetSession(r.Context(), chi.URLParam(r, "id"), caller(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, viewOf(sess))
}

func (s *Server) nextQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := s.engine.NextQuestion(r.Context(), chi.URLParam(r, "id"), caller(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, questionResponse{Finished: q == nil, Question: q})
}

func (s *Server) submitAnswer(w http.ResponseWriter, r *http.Request) {
	var req submitAnswerRequest
	if err := s.decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	res, err := s.engine.SubmitAnswer(r.Context(), chi.URLParam(r, "id"), caller(r).UserID,
		quiz.Answer{Text: req.Text, OptionIDs: req.OptionIDs}, req.TimeTaken)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (s *Server) result(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.GetResult(r.Context(), chi.URLParam(r, "id"), caller(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, res)
}

func (s *Server) stats(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.GetUserStats(r.Context(), caller(r).UserID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	ok(w, st)
}
