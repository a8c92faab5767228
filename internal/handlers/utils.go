package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/zidesign/catalog/internal/services"
	"github.com/zidesign/catalog/types"
)

type contextKey string

const (
	contextSubjectKey contextKey = "sub"
	contextActorKey   contextKey = "actor"
)

// ErrorResponse is the body of every non-2xx response. Code is the
// machine-readable kind the client maps back to a sentinel error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

func subjectFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(contextSubjectKey).(string)
	if !ok || strings.TrimSpace(subject) == "" {
		return "", errors.New("missing subject")
	}
	return subject, nil
}

func actorFromContext(ctx context.Context) (types.User, bool) {
	actor, ok := ctx.Value(contextActorKey).(types.User)
	return actor, ok
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

func writeUnauthenticated(w http.ResponseWriter) {
	writeError(w, http.StatusUnauthorized, types.ErrorCode(types.ErrUnauthorized), "authentication required")
}

// writeServiceError maps a service error onto its HTTP status. Internal
// errors are logged and hidden from the caller.
func writeServiceError(w http.ResponseWriter, log logrus.FieldLogger, err error) {
	code := types.ErrorCode(err)
	switch {
	case errors.Is(err, errBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, code, err.Error())
	case errors.Is(err, services.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, code, err.Error())
	case errors.Is(err, types.ErrValidation):
		writeError(w, http.StatusBadRequest, code, err.Error())
	case errors.Is(err, types.ErrUnauthorized):
		writeError(w, http.StatusForbidden, code, err.Error())
	case errors.Is(err, types.ErrNotFound):
		writeError(w, http.StatusNotFound, code, err.Error())
	case errors.Is(err, types.ErrInvalidTransition), errors.Is(err, types.ErrConflict):
		writeError(w, http.StatusConflict, code, err.Error())
	default:
		log.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, code, "internal server error")
	}
}

var errBodyTooLarge = fmt.Errorf("%w: request body too large", types.ErrValidation)

// decodeJSON decodes a request body. Malformed JSON, unknown enum values
// and bodies over the LimitBody cap are reported as validation errors.
func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return fmt.Errorf("%w: limit is %d bytes", errBodyTooLarge, tooLarge.Limit)
		}
		if errors.Is(err, types.ErrValidation) {
			return err
		}
		return fmt.Errorf("%w: invalid request body", types.ErrValidation)
	}
	return nil
}

// Healthz reports liveness.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
