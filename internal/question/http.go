package question

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/trivia-api/internal/logging"
	httperrors "github.com/gokatarajesh/trivia-api/pkg/http/errors"
)

const maxBodyBytes = 1 << 20

// HTTPHandler exposes the question bank over REST.
type HTTPHandler struct {
	svc    *Service
	logger zerolog.Logger
}

// NewHTTPHandler constructs a question HTTP handler.
func NewHTTPHandler(svc *Service, logger zerolog.Logger) *HTTPHandler {
	return &HTTPHandler{
		svc:    svc,
		logger: logger.With().Str("component", "question_http").Logger(),
	}
}

// Register mounts every question route on mux.
func (h *HTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /categories", h.HandleCategories)
	mux.HandleFunc("GET /categories/{id}/questions", h.HandleCategoryQuestions)
	mux.HandleFunc("GET /questions", h.HandleList)
	mux.HandleFunc("POST /questions", h.HandleCreateOrSearch)
	mux.HandleFunc("DELETE /question/{id}", h.HandleDelete)
	mux.HandleFunc("DELETE /questions/{id}", h.HandleDelete)
	mux.HandleFunc("POST /quizzes", h.HandleQuiz)
}

// HandleCategories responds with every category keyed by id.
// Route: GET /categories
func (h *HTTPHandler) HandleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.svc.Categories(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"success":    true,
		"categories": categories,
	})
}

// HandleList responds with one page of all questions.
// Route: GET /questions?page=1
func (h *HTTPHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	page, err := pageParam(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	result, err := h.svc.ListQuestions(r.Context(), page)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"success":         true,
		"questions":       result.Questions,
		"totalQuestions":  result.Total,
		"categories":      result.Categories,
		"currentCategory": "",
	})
}

// HandleCategoryQuestions responds with one page of a category's questions.
// Route: GET /categories/{id}/questions?page=1
func (h *HTTPHandler) HandleCategoryQuestions(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	page, err := pageParam(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	result, err := h.svc.ByCategory(r.Context(), id, page)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writePage(w, result)
}

// HandleCreateOrSearch serves both POST /questions payloads: a body with a
// searchTerm key is a search, anything else creates a question.
func (h *HTTPHandler) HandleCreateOrSearch(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.respondErr(w, r, &ValidationError{Msg: "request body too large"})
		return
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil || keys == nil {
		h.respondErr(w, r, &ValidationError{Msg: httperrors.MsgInvalidJSON})
		return
	}

	if _, ok := keys["searchTerm"]; ok {
		h.search(w, r, body)
		return
	}
	h.create(w, r, body)
}

func (h *HTTPHandler) search(w http.ResponseWriter, r *http.Request, body []byte) {
	var req SearchRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondErr(w, r, &ValidationError{Field: "searchTerm", Msg: "must be a string"})
		return
	}
	page, err := pageParam(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	result, err := h.svc.Search(r.Context(), req.SearchTerm, page)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writePage(w, result)
}

func (h *HTTPHandler) create(w http.ResponseWriter, r *http.Request, body []byte) {
	var req CreateRequest
	if err := json.Unmarshal(body, &req); err != nil {
		h.respondErr(w, r, decodeError(err))
		return
	}

	created, err := h.svc.Create(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"success": true,
		"created": created.ID,
	})
}

// HandleDelete removes one question.
// Routes: DELETE /question/{id}, DELETE /questions/{id}
func (h *HTTPHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"success": true,
		"deleted": id,
	})
}

// HandleQuiz responds with one random question the player has not seen yet.
// Route: POST /quizzes
func (h *HTTPHandler) HandleQuiz(w http.ResponseWriter, r *http.Request) {
	var req QuizRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.respondErr(w, r, decodeError(err))
		return
	}

	q, err := h.svc.NextQuizQuestion(r.Context(), req)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	writeJSON(w, map[string]interface{}{
		"success":  true,
		"question": q,
	})
}

func (h *HTTPHandler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	logger := logging.FromContext(r.Context())
	if logger.GetLevel() == zerolog.Disabled {
		logger = h.logger
	}

	var ve *ValidationError
	switch {
	case errors.As(err, &ve):
		logger.Debug().Err(err).Msg("request rejected")
		if ve.Field != "" {
			httperrors.RespondValidationError(w, ve.Error(), ve.Field)
			return
		}
		msg := ve.Msg
		if msg == "" {
			msg = httperrors.MsgBadRequest
		}
		httperrors.RespondBadRequest(w, msg)
	case errors.Is(err, ErrNotFound):
		logger.Debug().Err(err).Msg("nothing found")
		httperrors.RespondNotFound(w, httperrors.MsgNotFound)
	case errors.Is(err, ErrUnprocessable):
		logger.Debug().Err(err).Msg("request unprocessable")
		httperrors.RespondUnprocessable(w, httperrors.MsgUnprocessable)
	default:
		logger.Error().Err(err).Str("path", r.URL.Path).Msg("question request failed")
		httperrors.RespondInternalError(w, httperrors.MsgInternalError)
	}
}

func pageParam(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("page")
	if raw == "" {
		return 1, nil
	}
	page, err := strconv.Atoi(raw)
	if err != nil || page < 1 {
		return 0, newValidationError("page", "must be a positive integer")
	}
	return page, nil
}

func idParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		return 0, newValidationError("id", "must be a positive integer")
	}
	return id, nil
}

func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		return newValidationError(typeErr.Field, "has the wrong type")
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return &ValidationError{Msg: "request body too large"}
	}
	return &ValidationError{Msg: httperrors.MsgInvalidJSON}
}

func writePage(w http.ResponseWriter, p Page) {
	writeJSON(w, map[string]interface{}{
		"success":         true,
		"questions":       p.Questions,
		"total_questions": p.Total,
		"currentCategory": "",
	})
}

func writeJSON(w http.ResponseWriter, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
	}
}
