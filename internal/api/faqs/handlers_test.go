package faqs

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/codr1/marketplace/internal/api/authz"
	"github.com/codr1/marketplace/internal/db/dbq"
	"github.com/codr1/marketplace/internal/testutil"
)

func setupFaqsTest(t *testing.T) testutil.Fixture {
	t.Helper()

	database := testutil.NewTestDB(t)
	fixture := testutil.SeedShop(t, database)

	store = nil
	initOnce = sync.Once{}
	InitHandlers(database)
	t.Cleanup(func() {
		store = nil
		initOnce = sync.Once{}
	})

	return fixture
}

func vendorRequest(method string, f testutil.Fixture, faqID, userID int64, body string) *http.Request {
	target := fmt.Sprintf("/api/v1/vendor/shops/%d/faqs", f.ShopID)
	if faqID != 0 {
		target = fmt.Sprintf("%s/%d", target, faqID)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.SetPathValue("shop_id", fmt.Sprint(f.ShopID))
	if faqID != 0 {
		req.SetPathValue("faq_id", fmt.Sprint(faqID))
	}
	return req.WithContext(authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: userID, Role: authz.RoleVendor}))
}

func createFaq(t *testing.T, f testutil.Fixture, body string) dbq.Faq {
	t.Helper()
	recorder := httptest.NewRecorder()
	HandleCreateFaq(recorder, vendorRequest(http.MethodPost, f, 0, f.VendorID, body))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status: %d (%s)", recorder.Code, recorder.Body.String())
	}
	var faq dbq.Faq
	if err := json.Unmarshal(recorder.Body.Bytes(), &faq); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return faq
}

func listFaqs(t *testing.T, f testutil.Fixture) []dbq.Faq {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/shops/%d/faqs", f.ShopID), nil)
	req.SetPathValue("shop_id", fmt.Sprint(f.ShopID))
	recorder := httptest.NewRecorder()
	HandleListFaqs(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	var items []dbq.Faq
	if err := json.Unmarshal(recorder.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return items
}

func TestFaqs_CreateAndListInPositionOrder(t *testing.T) {
	f := setupFaqsTest(t)

	if items := listFaqs(t, f); len(items) != 0 {
		t.Fatalf("expected empty list, got %d", len(items))
	}

	createFaq(t, f, `{"question":"Do you take walk-ins?","answer":"Yes, until 16:00.","position":2}`)
	createFaq(t, f, `{"question":"Is there parking?","answer":"Street parking only.","position":1}`)

	items := listFaqs(t, f)
	if len(items) != 2 || items[0].Question != "Is there parking?" {
		t.Fatalf("unexpected order: %+v", items)
	}
}

func TestFaqs_UpdateAndDelete(t *testing.T) {
	f := setupFaqsTest(t)
	faq := createFaq(t, f, `{"question":"Card payments?","answer":"No."}`)

	recorder := httptest.NewRecorder()
	HandleUpdateFaq(recorder, vendorRequest(http.MethodPut, f, faq.ID, f.VendorID, `{"question":"Card payments?","answer":"Yes, all major cards."}`))
	if recorder.Code != http.StatusOK {
		t.Fatalf("update: %d (%s)", recorder.Code, recorder.Body.String())
	}
	if items := listFaqs(t, f); items[0].Answer != "Yes, all major cards." {
		t.Fatalf("answer not updated: %+v", items[0])
	}

	recorder = httptest.NewRecorder()
	HandleDeleteFaq(recorder, vendorRequest(http.MethodDelete, f, faq.ID, f.VendorID, ""))
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	HandleUpdateFaq(recorder, vendorRequest(http.MethodPut, f, faq.ID, f.VendorID, `{"question":"Q","answer":"A"}`))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("update deleted: %d", recorder.Code)
	}
}

func TestFaqs_Rejections(t *testing.T) {
	f := setupFaqsTest(t)

	recorder := httptest.NewRecorder()
	HandleCreateFaq(recorder, vendorRequest(http.MethodPost, f, 0, f.VendorID+1000, `{"question":"Q","answer":"A"}`))
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("other vendor: %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	HandleCreateFaq(recorder, vendorRequest(http.MethodPost, f, 0, f.VendorID, `{"question":" ","answer":"","position":-1}`))
	if recorder.Code != http.StatusBadRequest {
		t.Fatalf("validation: %d", recorder.Code)
	}
	var resp struct {
		Messages []string `json:"messages"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %v", resp.Messages)
	}
}
