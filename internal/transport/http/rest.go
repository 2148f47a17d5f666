package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"voice-quiz-service/internal/app"
	"voice-quiz-service/internal/domain"
)

type ctxKey int

const ctxKeyViewer ctxKey = iota

// RESTHandler serves quiz authoring, listing and results over JSON.
// Identity is taken from X-User-ID / X-User-Role set by the fronting proxy.
type RESTHandler struct {
	service *app.QuizService
	log     zerolog.Logger
}

func NewRESTHandler(service *app.QuizService, log zerolog.Logger) *RESTHandler {
	return &RESTHandler{
		service: service,
		log:     log.With().Str("component", "rest").Logger(),
	}
}

// Routes mounts the API under r.
func (h *RESTHandler) Routes(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Use(viewerMiddleware)
		r.Get("/quizzes", h.listQuizzes)
		r.Post("/quizzes", h.createQuiz)
		r.Get("/quizzes/{id}", h.getQuiz)
		r.Delete("/quizzes/{id}", h.deleteQuiz)
		r.Post("/quizzes/{id}/submit", h.submitQuiz)
		r.Get("/results", h.results)
	})
}

func viewerMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
		role := domain.Role(strings.ToLower(strings.TrimSpace(r.Header.Get("X-User-Role"))))
		if userID == "" || (role != domain.RoleTeacher && role != domain.RoleStudent) {
			writeFailure(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		ctx := context.WithValue(r.Context(), ctxKeyViewer, domain.Viewer{UserID: userID, Role: role})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func viewerFrom(r *http.Request) domain.Viewer {
	return r.Context().Value(ctxKeyViewer).(domain.Viewer)
}

func (h *RESTHandler) listQuizzes(w http.ResponseWriter, r *http.Request) {
	quizzes, err := h.service.ListQuizzes(r.Context(), viewerFrom(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "quizzes": quizzes})
}

func (h *RESTHandler) createQuiz(w http.ResponseWriter, r *http.Request) {
	var draft app.QuizDraft
	if err := readJSON(r, &draft); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	quiz, err := h.service.CreateQuiz(r.Context(), viewerFrom(r), draft)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "Quiz created successfully",
		"quizId":  quiz.ID,
	})
}

func (h *RESTHandler) getQuiz(w http.ResponseWriter, r *http.Request) {
	quiz, err := h.service.GetQuiz(r.Context(), viewerFrom(r), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "quiz": quiz})
}

func (h *RESTHandler) deleteQuiz(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuiz(r.Context(), viewerFrom(r), chi.URLParam(r, "id")); err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "Quiz deleted successfully"})
}

type submitRequest struct {
	Answers []string `json:"answers"`
}

func (h *RESTHandler) submitQuiz(w http.ResponseWriter, r *http.Request) {
	var req submitRequest
	if err := readJSON(r, &req); err != nil {
		writeFailure(w, http.StatusBadRequest, "invalid request body")
		return
	}
	result, err := h.service.SubmitAnswers(r.Context(), viewerFrom(r), chi.URLParam(r, "id"), req.Answers)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

func (h *RESTHandler) results(w http.ResponseWriter, r *http.Request) {
	viewer := viewerFrom(r)
	if viewer.Role == domain.RoleTeacher {
		reports, err := h.service.TeacherReports(r.Context(), viewer.UserID)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "reports": reports})
		return
	}
	results, err := h.service.StudentResults(r.Context(), viewer.UserID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "results": results})
}

func (h *RESTHandler) fail(w http.ResponseWriter, err error) {
	var invalid *domain.ValidationError
	switch {
	case errors.As(err, &invalid):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false,
			"message": invalid.Error(),
			"errors":  invalid.Problems,
		})
	case errors.Is(err, domain.ErrDuplicateTitle), errors.Is(err, domain.ErrInvalidQuiz):
		writeFailure(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeFailure(w, http.StatusForbidden, "Unauthorized")
	case errors.Is(err, domain.ErrQuizNotFound):
		writeFailure(w, http.StatusNotFound, err.Error())
	default:
		h.log.Error().Err(err).Msg("request failed")
		writeFailure(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

func writeFailure(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"success": false, "message": msg})
}
