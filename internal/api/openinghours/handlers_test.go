package openinghours

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/codr1/marketplace/internal/api/authz"
	"github.com/codr1/marketplace/internal/openhours"
	"github.com/codr1/marketplace/internal/testutil"
)

func setupOpeningHoursTest(t *testing.T) testutil.Fixture {
	t.Helper()

	database := testutil.NewTestDB(t)
	fixture := testutil.SeedShop(t, database)

	store = nil
	hoursCache = nil
	initOnce = sync.Once{}
	InitHandlers(database, nil)
	t.Cleanup(func() {
		store = nil
		hoursCache = nil
		initOnce = sync.Once{}
	})

	return fixture
}

func withUser(req *http.Request, id int64, role string) *http.Request {
	return req.WithContext(authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: id, Role: role}))
}

func decodeWire(t *testing.T, recorder *httptest.ResponseRecorder) []openhours.WireRecord {
	t.Helper()
	var records []openhours.WireRecord
	if err := json.Unmarshal(recorder.Body.Bytes(), &records); err != nil {
		t.Fatalf("decode response: %v (%s)", err, recorder.Body.String())
	}
	return records
}

func replaceDay(f testutil.Fixture, userID int64, day int, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(
		http.MethodPut,
		fmt.Sprintf("/api/v1/vendor/shops/%d/opening-hours/%d", f.ShopID, day),
		strings.NewReader(body),
	)
	req.SetPathValue(shopIDParam, fmt.Sprint(f.ShopID))
	req.SetPathValue(dayIDParam, fmt.Sprint(day))
	req.Header.Set("Content-Type", "application/json")
	req = withUser(req, userID, authz.RoleVendor)
	recorder := httptest.NewRecorder()
	HandleReplaceDay(recorder, req)
	return recorder
}

func TestHandleListOpeningHours_WireFormat(t *testing.T) {
	f := setupOpeningHoursTest(t)
	testutil.SeedHours(t, store.DB, f.ShopID, "22:00", "02:00", 5)

	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/shops/%d/opening-hours", f.ShopID), nil)
	req.SetPathValue(shopIDParam, fmt.Sprint(f.ShopID))
	recorder := httptest.NewRecorder()

	HandleListOpeningHours(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type: %s", ct)
	}
	body := recorder.Body.String()
	if !strings.Contains(body, `"is_closed":"0"`) || !strings.Contains(body, `"start_time":"22:00:00"`) {
		t.Fatalf("unexpected body: %s", body)
	}
	records := decodeWire(t, recorder)
	if len(records) != 1 || records[0].DayID != 5 || records[0].EndTime != "02:00:00" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestHandleListOpeningHours_ShopNotFound(t *testing.T) {
	setupOpeningHoursTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/shops/9999/opening-hours", nil)
	req.SetPathValue(shopIDParam, "9999")
	recorder := httptest.NewRecorder()

	HandleListOpeningHours(recorder, req)

	if recorder.Code != http.StatusNotFound {
		t.Fatalf("status: %d", recorder.Code)
	}
}

func TestHandleReplaceDay_SplitShift(t *testing.T) {
	f := setupOpeningHoursTest(t)

	recorder := replaceDay(f, f.VendorID, 2, `[
		{"day_id": 2, "is_closed": "0", "start_time": "13:00:00", "end_time": "18:00:00"},
		{"day_id": "2", "is_closed": "0", "start_time": "09:00", "end_time": "12:00"}
	]`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", recorder.Code, recorder.Body.String())
	}

	records := decodeWire(t, recorder)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].StartTime != "09:00:00" || records[1].StartTime != "13:00:00" {
		t.Fatalf("records not ordered by start: %+v", records)
	}

	rows, err := store.Queries.ListOpeningHours(context.Background(), f.ShopID)
	if err != nil {
		t.Fatalf("list hours: %v", err)
	}
	if len(rows) != 2 || rows[0].StartTime != "09:00" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestHandleReplaceDay_ClosedCollapses(t *testing.T) {
	f := setupOpeningHoursTest(t)
	testutil.SeedHours(t, store.DB, f.ShopID, "09:00", "17:00", 3, 4)

	recorder := replaceDay(f, f.VendorID, 3, `[
		{"is_closed": "0", "start_time": "09:00:00", "end_time": "12:00:00"},
		{"is_closed": "1", "start_time": "", "end_time": ""}
	]`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", recorder.Code, recorder.Body.String())
	}

	week, err := LoadWeek(context.Background(), f.ShopID)
	if err != nil {
		t.Fatalf("load week: %v", err)
	}
	day := week.ForDay(3)
	if len(day) != 1 || !day[0].IsClosed {
		t.Fatalf("expected a single closed record, got %+v", day)
	}
	if len(week.OpenOn(4)) != 1 {
		t.Fatalf("other days must be untouched: %+v", week)
	}
}

func TestHandleReplaceDay_EmptyClearsDay(t *testing.T) {
	f := setupOpeningHoursTest(t)
	testutil.SeedHours(t, store.DB, f.ShopID, "09:00", "17:00", 1)

	recorder := replaceDay(f, f.VendorID, 1, `[]`)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	if records := decodeWire(t, recorder); len(records) != 0 {
		t.Fatalf("expected no records, got %+v", records)
	}
}

func TestHandleReplaceDay_ValidationErrors(t *testing.T) {
	f := setupOpeningHoursTest(t)

	recorder := replaceDay(f, f.VendorID, 2, `[
		{"day_id": 3, "is_closed": "0", "start_time": "09:00", "end_time": "12:00"},
		{"is_closed": "0", "start_time": "9am", "end_time": "12:00"},
		{"is_closed": "0", "start_time": "10:00", "end_time": "10:00"}
	]`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", recorder.Code)
	}

	var payload struct {
		Error    string            `json:"error"`
		Fields   map[string]string `json:"fields"`
		Messages []string          `json:"messages"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Fields) != 3 || len(payload.Messages) != 3 {
		t.Fatalf("expected 3 field errors, got %+v", payload)
	}
	if _, ok := payload.Fields["records[0]"]; !ok {
		t.Fatalf("missing records[0] error: %+v", payload.Fields)
	}
}

func TestHandleReplaceDay_Forbidden(t *testing.T) {
	f := setupOpeningHoursTest(t)

	recorder := replaceDay(f, f.CustomerID, 2, `[]`)
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("status: %d", recorder.Code)
	}
}

func TestHandleReplaceDay_InvalidDay(t *testing.T) {
	f := setupOpeningHoursTest(t)

	recorder := replaceDay(f, f.VendorID, 8, `[]`)
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", recorder.Code)
	}
}

func TestHandleReplaceWeek(t *testing.T) {
	f := setupOpeningHoursTest(t)
	testutil.SeedHours(t, store.DB, f.ShopID, "09:00", "17:00", 1, 2, 3)

	req := httptest.NewRequest(
		http.MethodPut,
		fmt.Sprintf("/api/v1/vendor/shops/%d/opening-hours", f.ShopID),
		strings.NewReader(`[
			{"day_id": 6, "is_closed": "0", "start_time": "10:00:00", "end_time": "14:00:00"},
			{"day_id": 7, "is_closed": "1", "start_time": "00:00:00", "end_time": "00:00:00"}
		]`),
	)
	req.SetPathValue(shopIDParam, fmt.Sprint(f.ShopID))
	req = withUser(req, f.AdminID, authz.RoleAdmin)
	recorder := httptest.NewRecorder()

	HandleReplaceWeek(recorder, req)

	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d (%s)", recorder.Code, recorder.Body.String())
	}
	records := decodeWire(t, recorder)
	if len(records) != 2 || records[0].DayID != 6 || records[1].IsClosed != "1" {
		t.Fatalf("unexpected records: %+v", records)
	}
}

func TestHandleReplaceWeek_RequiresDayID(t *testing.T) {
	f := setupOpeningHoursTest(t)

	req := httptest.NewRequest(
		http.MethodPut,
		fmt.Sprintf("/api/v1/vendor/shops/%d/opening-hours", f.ShopID),
		strings.NewReader(`[{"is_closed": "0", "start_time": "10:00", "end_time": "14:00"}]`),
	)
	req.SetPathValue(shopIDParam, fmt.Sprint(f.ShopID))
	req = withUser(req, f.VendorID, authz.RoleVendor)
	recorder := httptest.NewRecorder()

	HandleReplaceWeek(recorder, req)

	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("status: %d", recorder.Code)
	}
}
