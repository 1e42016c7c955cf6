package portfolio

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"portfolio-api/internal/apierror"
	"portfolio-api/internal/auth"
	"portfolio-api/internal/observability"
)

const maxJSONBodyBytes = 1 << 20

// Handler serves CRUD for one record kind. Mount it behind the auth Gate.
type Handler[T any, P recordPtr[T]] struct {
	name       string
	collection *Collection[T, P]
	logger     *observability.Logger
}

// NewHandler builds a handler. name is the display name used in messages,
// e.g. "Project".
func NewHandler[T any, P recordPtr[T]](name string, collection *Collection[T, P], logger *observability.Logger) *Handler[T, P] {
	return &Handler[T, P]{name: name, collection: collection, logger: logger}
}

func (h *Handler[T, P]) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

func (h *Handler[T, P]) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.collection.List(r.Context())
	if err != nil {
		h.internalError(w, r, err, "list")
		return
	}

	h.logger.Debug(h.collection.Kind()+"_listed", h.fields(r, map[string]any{"count": len(records)}))
	apierror.WriteJSON(w, http.StatusOK, records)
}

func (h *Handler[T, P]) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	record, err := h.collection.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err, "fetch")
		return
	}

	apierror.WriteJSON(w, http.StatusOK, record)
}

func (h *Handler[T, P]) Create(w http.ResponseWriter, r *http.Request) {
	raw, ok := readBody(w, r)
	if !ok {
		return
	}

	var record T
	if err := decodeStrict(raw, &record); err != nil {
		apierror.Write(w, http.StatusBadRequest, apierror.CodeBadRequest, "invalid json body")
		return
	}

	created, err := h.collection.Create(r.Context(), record)
	if err != nil {
		h.writeError(w, r, err, "create")
		return
	}

	h.logger.Info(h.collection.Kind()+"_created", h.fields(r, map[string]any{"id": P(&created).Metadata().ID}))
	apierror.WriteJSON(w, http.StatusCreated, created)
}

// Update applies the fields present in the body to the stored record.
func (h *Handler[T, P]) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	raw, ok := readBody(w, r)
	if !ok {
		return
	}
	if !json.Valid(raw) {
		apierror.Write(w, http.StatusBadRequest, apierror.CodeBadRequest, "invalid json body")
		return
	}

	updated, err := h.collection.Update(r.Context(), id, func(current *T) error {
		if err := decodeStrict(raw, current); err != nil {
			return &ValidationError{Message: "invalid json body"}
		}
		return nil
	})
	if err != nil {
		h.writeError(w, r, err, "update")
		return
	}

	h.logger.Info(h.collection.Kind()+"_updated", h.fields(r, map[string]any{"id": id}))
	apierror.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler[T, P]) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}

	if err := h.collection.Delete(r.Context(), id); err != nil {
		h.writeError(w, r, err, "delete")
		return
	}

	h.logger.Info(h.collection.Kind()+"_deleted", h.fields(r, map[string]any{"id": id}))
	apierror.WriteJSON(w, http.StatusOK, map[string]string{"message": h.name + " deleted successfully"})
}

func (h *Handler[T, P]) pathID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := chi.URLParam(r, "id")
	if _, err := uuid.Parse(id); err != nil {
		apierror.Write(w, http.StatusBadRequest, apierror.CodeBadRequest, "invalid "+strings.ToLower(h.name)+" id")
		return "", false
	}
	return id, true
}

func (h *Handler[T, P]) writeError(w http.ResponseWriter, r *http.Request, err error, action string) {
	var validation *ValidationError
	switch {
	case errors.As(err, &validation):
		h.logger.Warn(h.collection.Kind()+"_"+action+"_rejected", h.fields(r, map[string]any{"reason": validation.Message}))
		apierror.Write(w, http.StatusBadRequest, apierror.CodeBadRequest, validation.Message)
	case errors.Is(err, ErrNotFound):
		apierror.Write(w, http.StatusNotFound, apierror.CodeNotFound, h.name+" not found")
	default:
		h.internalError(w, r, err, action)
	}
}

func (h *Handler[T, P]) internalError(w http.ResponseWriter, r *http.Request, err error, action string) {
	observability.CaptureRequestError(r, err)
	h.logger.Error(h.collection.Kind()+"_"+action+"_failed", h.fields(r, map[string]any{"error": err.Error()}))
	apierror.Write(w, http.StatusInternalServerError, apierror.CodeInternal, "Error processing "+strings.ToLower(h.name))
}

func (h *Handler[T, P]) fields(r *http.Request, fields map[string]any) map[string]any {
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		fields["user_id"] = claims.UserID
	}
	return fields
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		apierror.Write(w, http.StatusBadRequest, apierror.CodeBadRequest, "invalid json body")
		return nil, false
	}
	return raw, true
}

func decodeStrict(raw []byte, dst any) error {
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
