package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/soaringjerry/Quizbank/internal/middleware"
	"github.com/soaringjerry/Quizbank/internal/services"
	"github.com/soaringjerry/Quizbank/internal/utils"
)

const maxBodyBytes = 4 << 20

type Options struct {
	Questions *services.QuestionService
	Scores    *services.ScoreService
	Auth      *services.AuthService
	Signer    *middleware.Signer
	// RetryAttempts bounds how often a question mutation is re-run after a
	// stale-revision conflict. 1 disables retrying.
	RetryAttempts int
	Logger        *slog.Logger
	Build         BuildInfo
}

type BuildInfo struct {
	Commit    string
	BuildTime string
	Backend   string
}

type Router struct {
	questions *services.QuestionService
	scores    *services.ScoreService
	auth      *services.AuthService
	signer    *middleware.Signer
	retries   int
	log       *slog.Logger
	build     BuildInfo
}

func NewRouter(opts Options) *Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	retries := opts.RetryAttempts
	if retries < 1 {
		retries = 1
	}
	return &Router{
		questions: opts.Questions,
		scores:    opts.Scores,
		auth:      opts.Auth,
		signer:    opts.Signer,
		retries:   retries,
		log:       logger,
		build:     opts.Build,
	}
}

func (rt *Router) Register(mux *http.ServeMux) {
	admin := rt.admin

	mux.Handle("POST /api/db/question", admin(rt.handleAddQuestion))
	mux.Handle("PUT /api/db/question/{questionId}", admin(rt.handleUpdateQuestion))
	mux.Handle("DELETE /api/db/question/{questionId}", admin(rt.handleDeleteQuestion))
	mux.Handle("POST /api/db/questions/bulk-add", admin(rt.handleBulkAdd))

	mux.HandleFunc("GET /api/db/soal", rt.handleExam)
	mux.HandleFunc("GET /api/db/dbsoal", rt.handlePool)

	mux.HandleFunc("POST /api/db/score", rt.handleSubmitScore)
	mux.HandleFunc("GET /api/db/getscore", rt.handleListScores)
	mux.HandleFunc("GET /api/db/leaderboard", rt.handleLeaderboard)

	mux.HandleFunc("POST /api/auth/login", rt.handleLogin)

	mux.HandleFunc("GET /health", rt.handleHealth)
	mux.HandleFunc("GET /version", rt.handleVersion)
}

// admin guards question mutations once an admin account exists.
func (rt *Router) admin(h http.HandlerFunc) http.Handler {
	if !rt.auth.Enabled() || rt.signer == nil {
		return h
	}
	return rt.signer.WithAuth(middleware.RequireAdmin(h))
}

// POST /api/db/question
func (rt *Router) handleAddQuestion(w http.ResponseWriter, r *http.Request) {
	var q services.Question
	if !rt.decode(w, r, &q) {
		return
	}
	created, err := services.RetryOnConflict(r.Context(), rt.retries, func() (*services.Question, error) {
		return rt.questions.AddQuestion(r.Context(), &q)
	})
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// PUT /api/db/question/{questionId}
func (rt *Router) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	questionID := r.PathValue("questionId")
	var q services.Question
	if !rt.decode(w, r, &q) {
		return
	}
	updated, err := services.RetryOnConflict(r.Context(), rt.retries, func() (*services.Question, error) {
		return rt.questions.UpdateQuestion(r.Context(), questionID, &q)
	})
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /api/db/question/{questionId}?subject=
func (rt *Router) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	questionID := r.PathValue("questionId")
	subject := r.URL.Query().Get("subject")
	_, err := services.RetryOnConflict(r.Context(), rt.retries, func() (struct{}, error) {
		return struct{}{}, rt.questions.DeleteQuestion(r.Context(), questionID, subject)
	})
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"message": utils.T(locale, "question.deleted", questionID)})
}

// POST /api/db/questions/bulk-add?subjectId=
func (rt *Router) handleBulkAdd(w http.ResponseWriter, r *http.Request) {
	subjectID := r.URL.Query().Get("subjectId")
	var batch []*services.Question
	if !rt.decode(w, r, &batch) {
		return
	}
	res, err := services.RetryOnConflict(r.Context(), rt.retries, func() (*services.BulkAddResult, error) {
		return rt.questions.BulkAdd(r.Context(), subjectID, batch)
	})
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	summary := map[string]int{"added": res.Added, "skipped": res.Skipped}
	if res.Added == 0 {
		writeJSON(w, http.StatusOK, map[string]any{
			"message":          utils.T(locale, "bulk.nothing_added"),
			"summary":          summary,
			"skippedQuestions": res.SkippedIDs,
		})
		return
	}
	writeJSON(w, http.StatusMultiStatus, map[string]any{
		"message":          utils.T(locale, "bulk.done"),
		"summary":          summary,
		"addedQuestions":   res.AddedIDs,
		"skippedQuestions": res.SkippedIDs,
	})
}

// GET /api/db/soal lists subjects; with ?subjectId= it generates an exam.
func (rt *Router) handleExam(w http.ResponseWriter, r *http.Request) {
	subjectID := strings.TrimSpace(r.URL.Query().Get("subjectId"))
	if subjectID == "" {
		subjects, err := rt.questions.Subjects(r.Context())
		if err != nil {
			rt.fail(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"subjects": subjects})
		return
	}
	exam, err := rt.questions.GenerateExam(r.Context(), subjectID)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, exam)
}

// GET /api/db/dbsoal
func (rt *Router) handlePool(w http.ResponseWriter, r *http.Request) {
	pool, err := rt.questions.GetAll(r.Context())
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, pool)
}

// POST /api/db/score takes its fields from a JSON body, the query string, or
// both; body values win.
func (rt *Router) handleSubmitScore(w http.ResponseWriter, r *http.Request) {
	in, err := scoreInput(w, r)
	if err != nil {
		rt.failWithStatus(w, r, err)
		return
	}
	rec, err := rt.scores.Submit(r.Context(), in)
	if err != nil {
		rt.failWithStatus(w, r, err)
		return
	}
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, http.StatusCreated, map[string]any{
		"status":  true,
		"message": utils.T(locale, "score.saved"),
		"data":    rec,
	})
}

// GET /api/db/getscore
func (rt *Router) handleListScores(w http.ResponseWriter, r *http.Request) {
	records, err := rt.scores.List(r.Context())
	if err != nil {
		rt.failWithStatus(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": true, "count": len(records), "data": records})
}

// GET /api/db/leaderboard[?limit=]
func (rt *Router) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	board, err := rt.scores.Leaderboard(r.Context(), limit)
	if err != nil {
		rt.failWithStatus(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": true, "leaderboard": board})
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !rt.decode(w, r, &req) {
		return
	}
	res, err := rt.auth.Login(req.Username, req.Password)
	if err != nil {
		rt.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token":      res.Token,
		"username":   res.Username,
		"expires_in": int(res.ExpiresIn.Seconds()),
	})
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"name":       "Quizbank API",
		"locale":     locale,
		"msg":        utils.T(locale, "health.ok"),
		"backend":    rt.build.Backend,
		"commit":     rt.build.Commit,
		"build_time": rt.build.BuildTime,
	})
}

func (rt *Router) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"commit":     rt.build.Commit,
		"build_time": rt.build.BuildTime,
	})
}

func scoreInput(w http.ResponseWriter, r *http.Request) (services.ScoreInput, error) {
	var in services.ScoreInput
	if r.Body != nil && r.ContentLength != 0 && strings.Contains(r.Header.Get("Content-Type"), "json") {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err := dec.Decode(&in); err != nil {
			return in, invalidJSON(err)
		}
	}
	q := r.URL.Query()
	if in.UserName == "" {
		in.UserName = q.Get("userName")
	}
	if in.SubjectID == "" {
		in.SubjectID = q.Get("subjectId")
	}
	if in.Score == nil {
		if v, err := strconv.ParseFloat(q.Get("score"), 64); err == nil {
			in.Score = &v
		}
	}
	if in.TimeSpent == nil {
		if v, err := strconv.Atoi(q.Get("timeSpent")); err == nil {
			in.TimeSpent = &v
		}
	}
	return in, nil
}

func invalidJSON(err error) error {
	return services.NewInvalidError("request.invalid_json", err.Error())
}

func (rt *Router) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		rt.fail(w, r, invalidJSON(err))
		return false
	}
	return true
}

func (rt *Router) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, body := rt.errorBody(r, err)
	writeJSON(w, status, body)
}

// failWithStatus adds "status": false, the envelope the score routes use.
func (rt *Router) failWithStatus(w http.ResponseWriter, r *http.Request, err error) {
	status, body := rt.errorBody(r, err)
	body["status"] = false
	writeJSON(w, status, body)
}

func (rt *Router) errorBody(r *http.Request, err error) (int, map[string]any) {
	locale := middleware.LocaleFromContext(r.Context())
	se, ok := services.AsServiceError(err)
	if !ok {
		rt.log.Error("unhandled error",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"error", err,
		)
		return http.StatusInternalServerError, map[string]any{"error": utils.T(locale, "internal")}
	}
	status := statusFor(se.Code)
	if status >= http.StatusInternalServerError {
		rt.log.Warn("request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.RequestIDFromContext(r.Context()),
			"code", string(se.Code),
			"error", errors.Unwrap(se),
		)
	}
	body := map[string]any{"error": se.Localized(locale)}
	if se.Detail != nil {
		body["invalidQuestion"] = se.Detail
	}
	return status, body
}

func statusFor(code services.ErrorCode) int {
	switch code {
	case services.ErrorInvalid:
		return http.StatusBadRequest
	case services.ErrorUnauthorized:
		return http.StatusUnauthorized
	case services.ErrorForbidden:
		return http.StatusForbidden
	case services.ErrorNotFound:
		return http.StatusNotFound
	case services.ErrorConflict:
		return http.StatusConflict
	case services.ErrorBadGateway:
		return http.StatusBadGateway
	case services.ErrorUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
