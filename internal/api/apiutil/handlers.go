package apiutil

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/codr1/marketplace/internal/api/authz"
)

type FieldError struct {
	Field  string
	Reason string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

// FieldErrors collects validation failures in the order they were found.
type FieldErrors []FieldError

func (fe *FieldErrors) Add(field, reason string) {
	*fe = append(*fe, FieldError{Field: field, Reason: reason})
}

func (fe FieldErrors) HasErrors() bool {
	return len(fe) > 0
}

func (fe FieldErrors) Error() string {
	if len(fe) == 0 {
		return ""
	}
	return fe[0].Error()
}

// Messages returns one "field reason" string per failure.
func (fe FieldErrors) Messages() []string {
	messages := make([]string, 0, len(fe))
	for _, e := range fe {
		messages = append(messages, e.Error())
	}
	return messages
}

type validationResponse struct {
	Error    string            `json:"error"`
	Fields   map[string]string `json:"fields"`
	Messages []string          `json:"messages"`
}

// WriteFieldErrors renders a 400 with every field message.
func WriteFieldErrors(w http.ResponseWriter, fe FieldErrors) {
	fields := make(map[string]string, len(fe))
	for _, e := range fe {
		if _, ok := fields[e.Field]; !ok {
			fields[e.Field] = e.Reason
		}
	}
	_ = WriteJSON(w, http.StatusBadRequest, validationResponse{
		Error:    "Validation failed",
		Fields:   fields,
		Messages: fe.Messages(),
	})
}

type HandlerError struct {
	Status  int
	Message string
	Err     error
}

func (e HandlerError) Error() string {
	return e.Message
}

func (e HandlerError) Unwrap() error {
	return e.Err
}

type errorResponse struct {
	Error string `json:"error"`
}

func WriteError(w http.ResponseWriter, status int, message string) {
	_ = WriteJSON(w, status, errorResponse{Error: message})
}

// WriteHandlerError maps err to a response. HandlerError and FieldErrors keep
// their status; sql.ErrNoRows is a 404; everything else is logged as a 500.
func WriteHandlerError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var handlerErr HandlerError
	var fieldErrs FieldErrors
	switch {
	case errors.As(err, &fieldErrs):
		WriteFieldErrors(w, fieldErrs)
	case errors.As(err, &handlerErr):
		if handlerErr.Status >= http.StatusInternalServerError {
			log.Ctx(r.Context()).Error().Err(handlerErr.Err).Msg(handlerErr.Message)
		}
		WriteError(w, handlerErr.Status, handlerErr.Message)
	case errors.Is(err, sql.ErrNoRows):
		WriteError(w, http.StatusNotFound, "Not found")
	default:
		log.Ctx(r.Context()).Error().Err(err).Msg(msg)
		WriteError(w, http.StatusInternalServerError, msg)
	}
}

func DecodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return fmt.Errorf("missing request body")
	}
	defer r.Body.Close()

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(dst); err != nil {
		return err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return fmt.Errorf("invalid JSON body")
	}
	return nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	if err := encoder.Encode(payload); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, err := w.Write(buf.Bytes())
	return err
}

// RequireRole writes 401/403 and returns false when the request's user does not
// hold one of roles.
func RequireRole(w http.ResponseWriter, r *http.Request, roles ...string) (*authz.AuthUser, bool) {
	logger := log.Ctx(r.Context())
	user, err := authz.RequireRole(r.Context(), roles...)
	if err != nil {
		switch {
		case errors.Is(err, authz.ErrUnauthenticated):
			logger.Warn().Str("path", r.URL.Path).Msg("Access denied: unauthenticated")
			WriteError(w, http.StatusUnauthorized, "Unauthorized")
		case errors.Is(err, authz.ErrForbidden):
			logEvent := logger.Warn().Str("path", r.URL.Path)
			if user != nil {
				logEvent = logEvent.Int64("user_id", user.ID).Str("role", user.Role)
			}
			logEvent.Msg("Access denied: forbidden")
			WriteError(w, http.StatusForbidden, "Forbidden")
		default:
			logger.Error().Err(err).Msg("Access denied: error")
			WriteError(w, http.StatusInternalServerError, "Failed to authorize request")
		}
		return nil, false
	}
	return user, true
}

// RequireUser is RequireRole for any signed-in account.
func RequireUser(w http.ResponseWriter, r *http.Request) (*authz.AuthUser, bool) {
	return RequireRole(w, r, authz.RoleCustomer, authz.RoleVendor)
}
