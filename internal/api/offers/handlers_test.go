package offers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/codr1/marketplace/internal/api/authz"
	"github.com/codr1/marketplace/internal/db/dbq"
	"github.com/codr1/marketplace/internal/testutil"
)

func setupOffersTest(t *testing.T) testutil.Fixture {
	t.Helper()

	database := testutil.NewTestDB(t)
	fixture := testutil.SeedShop(t, database)

	store = nil
	initOnce = sync.Once{}
	InitHandlers(database)
	now = func() time.Time { return time.Date(2026, time.October, 16, 23, 30, 0, 0, time.UTC) }
	t.Cleanup(func() {
		store = nil
		initOnce = sync.Once{}
		now = time.Now
	})

	return fixture
}

func withUser(req *http.Request, id int64, role string) *http.Request {
	return req.WithContext(authz.ContextWithUser(req.Context(), &authz.AuthUser{ID: id, Role: role}))
}

func vendorRequest(method string, f testutil.Fixture, offerID int64, body string) *http.Request {
	target := fmt.Sprintf("/api/v1/vendor/shops/%d/offers", f.ShopID)
	if offerID != 0 {
		target = fmt.Sprintf("%s/%d", target, offerID)
	}
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.SetPathValue("shop_id", fmt.Sprint(f.ShopID))
	if offerID != 0 {
		req.SetPathValue("offer_id", fmt.Sprint(offerID))
	}
	return withUser(req, f.VendorID, authz.RoleVendor)
}

func createOffer(t *testing.T, f testutil.Fixture, body string) dbq.Offer {
	t.Helper()
	recorder := httptest.NewRecorder()
	HandleCreateOffer(recorder, vendorRequest(http.MethodPost, f, 0, body))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("status: %d (%s)", recorder.Code, recorder.Body.String())
	}
	var offer dbq.Offer
	if err := json.Unmarshal(recorder.Body.Bytes(), &offer); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return offer
}

func listOffers(t *testing.T, f testutil.Fixture, query string, user *authz.AuthUser) []dbq.Offer {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, fmt.Sprintf("/api/v1/shops/%d/offers%s", f.ShopID, query), nil)
	req.SetPathValue("shop_id", fmt.Sprint(f.ShopID))
	if user != nil {
		req = withUser(req, user.ID, user.Role)
	}
	recorder := httptest.NewRecorder()
	HandleListOffers(recorder, req)
	if recorder.Code != http.StatusOK {
		t.Fatalf("status: %d", recorder.Code)
	}
	var items []dbq.Offer
	if err := json.Unmarshal(recorder.Body.Bytes(), &items); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return items
}

func TestListOffers_OnlyActiveToday(t *testing.T) {
	f := setupOffersTest(t)

	createOffer(t, f, `{"title":"Autumn deal","discount_percent":15,"starts_on":"2026-10-01","ends_on":"2026-10-16"}`)
	createOffer(t, f, `{"title":"Next week","discount_percent":10,"starts_on":"2026-10-17","ends_on":"2026-10-24"}`)
	createOffer(t, f, `{"title":"Summer","discount_percent":20,"starts_on":"2026-07-01","ends_on":"2026-08-31"}`)

	items := listOffers(t, f, "", nil)
	if len(items) != 1 || items[0].Title != "Autumn deal" {
		t.Fatalf("unexpected active offers: %+v", items)
	}

	// all=1 is ignored for anyone who cannot manage the shop.
	customer := &authz.AuthUser{ID: f.CustomerID, Role: authz.RoleCustomer}
	if items := listOffers(t, f, "?all=1", customer); len(items) != 1 {
		t.Fatalf("customer all=1: expected 1 offer, got %d", len(items))
	}

	owner := &authz.AuthUser{ID: f.VendorID, Role: authz.RoleVendor}
	items = listOffers(t, f, "?all=1", owner)
	if len(items) != 3 || items[0].Title != "Summer" {
		t.Fatalf("owner all=1: unexpected offers %+v", items)
	}
}

func TestListOffers_UnknownShop(t *testing.T) {
	setupOffersTest(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/shops/999/offers", nil)
	req.SetPathValue("shop_id", "999")
	recorder := httptest.NewRecorder()
	HandleListOffers(recorder, req)
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", recorder.Code)
	}
}

func TestCreateOffer_Validation(t *testing.T) {
	f := setupOffersTest(t)

	cases := []struct {
		name  string
		body  string
		field string
	}{
		{"missing title", `{"discount_percent":10,"starts_on":"2026-10-01","ends_on":"2026-10-02"}`, "title"},
		{"zero discount", `{"title":"T","discount_percent":0,"starts_on":"2026-10-01","ends_on":"2026-10-02"}`, "discount_percent"},
		{"over 100", `{"title":"T","discount_percent":101,"starts_on":"2026-10-01","ends_on":"2026-10-02"}`, "discount_percent"},
		{"bad date", `{"title":"T","discount_percent":10,"starts_on":"01/10/2026","ends_on":"2026-10-02"}`, "starts_on"},
		{"ends before start", `{"title":"T","discount_percent":10,"starts_on":"2026-10-05","ends_on":"2026-10-04"}`, "ends_on"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder := httptest.NewRecorder()
			HandleCreateOffer(recorder, vendorRequest(http.MethodPost, f, 0, tc.body))
			if recorder.Code != http.StatusBadRequest {
				t.Fatalf("status: %d", recorder.Code)
			}
			var resp struct {
				Fields map[string]string `json:"fields"`
			}
			if err := json.Unmarshal(recorder.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if _, ok := resp.Fields[tc.field]; !ok {
				t.Fatalf("expected %s error, got %v", tc.field, resp.Fields)
			}
		})
	}
}

func TestCreateOffer_SingleDayRange(t *testing.T) {
	f := setupOffersTest(t)

	offer := createOffer(t, f, `{"title":"Flash sale","discount_percent":100,"starts_on":"2026-10-16","ends_on":"2026-10-16"}`)
	if offer.StartsOn != "2026-10-16" || offer.EndsOn != "2026-10-16" {
		t.Fatalf("unexpected range: %s to %s", offer.StartsOn, offer.EndsOn)
	}
}

func TestUpdateAndDeleteOffer(t *testing.T) {
	f := setupOffersTest(t)
	offer := createOffer(t, f, `{"title":"Deal","discount_percent":5,"starts_on":"2026-10-01","ends_on":"2026-10-31"}`)

	recorder := httptest.NewRecorder()
	HandleUpdateOffer(recorder, vendorRequest(http.MethodPut, f, offer.ID, `{"title":"Better deal","discount_percent":25,"starts_on":"2026-10-01","ends_on":"2026-10-31"}`))
	if recorder.Code != http.StatusOK {
		t.Fatalf("update: %d (%s)", recorder.Code, recorder.Body.String())
	}
	var updated dbq.Offer
	if err := json.Unmarshal(recorder.Body.Bytes(), &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.DiscountPercent != 25 || updated.Title != "Better deal" {
		t.Fatalf("unexpected offer: %+v", updated)
	}

	recorder = httptest.NewRecorder()
	HandleDeleteOffer(recorder, vendorRequest(http.MethodDelete, f, offer.ID, ""))
	if recorder.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", recorder.Code)
	}

	recorder = httptest.NewRecorder()
	HandleDeleteOffer(recorder, vendorRequest(http.MethodDelete, f, offer.ID, ""))
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("second delete: %d", recorder.Code)
	}
}

func TestCreateOffer_RequiresShopManager(t *testing.T) {
	f := setupOffersTest(t)
	body := `{"title":"Deal","discount_percent":5,"starts_on":"2026-10-01","ends_on":"2026-10-31"}`

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.SetPathValue("shop_id", fmt.Sprint(f.ShopID))
	recorder := httptest.NewRecorder()
	HandleCreateOffer(recorder, withUser(req, f.CustomerID, authz.RoleCustomer))
	if recorder.Code != http.StatusForbidden {
		t.Fatalf("customer: %d", recorder.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.SetPathValue("shop_id", fmt.Sprint(f.ShopID))
	recorder = httptest.NewRecorder()
	HandleCreateOffer(recorder, withUser(req, f.AdminID, authz.RoleAdmin))
	if recorder.Code != http.StatusCreated {
		t.Fatalf("admin: %d", recorder.Code)
	}
}
