package apiutil

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/codr1/marketplace/internal/api/authz"
)

func TestWriteFieldErrorsListsEveryMessage(t *testing.T) {
	var fe FieldErrors
	fe.Add("name", "is required")
	fe.Add("price_cents", "must be 0 or greater")

	recorder := httptest.NewRecorder()
	WriteFieldErrors(recorder, fe)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", recorder.Code)
	}

	var body struct {
		Error    string            `json:"error"`
		Fields   map[string]string `json:"fields"`
		Messages []string          `json:"messages"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Fields["name"] != "is required" {
		t.Fatalf("expected name field message, got %q", body.Fields["name"])
	}
	if len(body.Messages) != 2 || body.Messages[1] != "price_cents must be 0 or greater" {
		t.Fatalf("unexpected messages: %v", body.Messages)
	}
}

func TestWriteHandlerErrorMapping(t *testing.T) {
	var fe FieldErrors
	fe.Add("rating", "must be between 1 and 5")

	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"handler error", HandlerError{Status: http.StatusConflict, Message: "Already exists"}, http.StatusConflict},
		{"wrapped handler error", fmt.Errorf("tx: %w", HandlerError{Status: http.StatusForbidden, Message: "Forbidden"}), http.StatusForbidden},
		{"field errors", fe, http.StatusBadRequest},
		{"no rows", fmt.Errorf("load: %w", sql.ErrNoRows), http.StatusNotFound},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			recorder := httptest.NewRecorder()
			WriteHandlerError(recorder, req, tt.err, "Failed")
			if recorder.Code != tt.status {
				t.Fatalf("expected status %d, got %d", tt.status, recorder.Code)
			}
		})
	}
}

func TestDecodeJSONRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"name":"a","extra":1}`))
	var payload struct {
		Name string `json:"name"`
	}
	if err := DecodeJSON(req, &payload); err == nil {
		t.Fatalf("expected error for unknown field")
	}
}

func TestRequireRoleResponses(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	recorder := httptest.NewRecorder()
	if _, ok := RequireRole(recorder, req, authz.RoleVendor); ok {
		t.Fatalf("expected anonymous request to be rejected")
	}
	if recorder.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", recorder.Code)
	}

	ctx := authz.ContextWithUser(context.Background(), &authz.AuthUser{ID: 3, Role: authz.RoleCustomer})
	recorder = httptest.NewRecorder()
	if _, ok := RequireRole(recorder, req.WithContext(ctx), authz.RoleVendor); ok {
		t.Fatalf("expected customer to be rejected")
	}
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", recorder.Code)
	}
}
