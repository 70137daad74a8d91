package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"tipline/internal/auth"
	"tipline/internal/config"
	"tipline/internal/console"
	"tipline/internal/logging"
	"tipline/internal/record"
	"tipline/internal/storage"
)

type testEnv struct {
	server  *Server
	store   *record.Store
	authMgr *auth.Manager
}

func setupTestServer(t *testing.T) *testEnv {
	t.Helper()

	db := storage.New(filepath.Join(t.TempDir(), "test.db"), logging.Discard())
	t.Cleanup(func() {
		db.Close()
	})

	store := record.NewStore(db)
	authMgr := auth.NewManager(auth.Config{
		TokenTTL:   time.Hour,
		BcryptCost: bcrypt.MinCost,
	}, store, logging.Discard())

	cfg := config.DefaultConfig()
	server := NewServer(Options{
		Config:   cfg,
		Store:    store,
		AuthMgr:  authMgr,
		Catalog:  nil,
		Profiler: console.NewProfiler(10),
		Logger:   logging.Discard(),
	})

	return &testEnv{server: server, store: store, authMgr: authMgr}
}

func (e *testEnv) get(t *testing.T, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func (e *testEnv) postForm(t *testing.T, path string, values url.Values, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func (e *testEnv) patchForm(t *testing.T, path string, values url.Values, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPatch, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.server.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return body
}

func (e *testEnv) seedLocation(t *testing.T, name string) *record.Location {
	t.Helper()
	loc := &record.Location{Name: name, Region: "central", CreatedAt: time.Now().UTC()}
	if err := e.store.Insert(loc); err != nil {
		t.Fatalf("failed to seed location: %v", err)
	}
	return loc
}

func (e *testEnv) seedReviewerToken(t *testing.T) string {
	t.Helper()
	user, err := e.authMgr.CreateUser("rev@example.com", "Rev", "secret", record.RoleReviewer)
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}
	token, err := e.authMgr.IssueToken(user)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return token
}

func TestHealthz(t *testing.T) {
	e := setupTestServer(t)

	w := e.get(t, "/healthz")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("X-Request-ID header missing")
	}
}

func TestRootIndex(t *testing.T) {
	e := setupTestServer(t)

	w := e.get(t, "/")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	if w := e.get(t, "/nonsense"); w.Code != http.StatusNotFound {
		t.Errorf("unknown path status = %d, want 404", w.Code)
	}
}

func TestCreateReport(t *testing.T) {
	e := setupTestServer(t)
	loc := e.seedLocation(t, "Harbor")

	w := e.postForm(t, "/api/v1/reports", url.Values{
		"location_id":    {formatID(loc.Id)},
		"subject":        {"Broken window"},
		"body":           {"The window at the mill is broken."},
		"reporter_email": {"someone@example.com"},
	}, "")

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	body := decodeBody(t, w)
	report, ok := body["report"].(map[string]any)
	if !ok {
		t.Fatalf("report missing from response: %v", body)
	}
	if report["status"] != record.StatusOpen {
		t.Errorf("status = %v, want open", report["status"])
	}
	publicId, _ := report["publicId"].(string)
	if publicId == "" {
		t.Fatal("publicId missing")
	}

	// The report is retrievable by its public id
	w = e.get(t, "/api/v1/reports/"+publicId)
	if w.Code != http.StatusOK {
		t.Errorf("get status = %d, want 200", w.Code)
	}
}

func TestCreateReportValidation(t *testing.T) {
	e := setupTestServer(t)

	w := e.postForm(t, "/api/v1/reports", url.Values{
		"subject": {"No location"},
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	body := decodeBody(t, w)
	details, _ := body["details"].(map[string]any)
	if details["location_id"] == nil || details["body"] == nil {
		t.Errorf("missing field errors: %v", body)
	}
}

func TestCreateReportUnknownLocation(t *testing.T) {
	e := setupTestServer(t)

	w := e.postForm(t, "/api/v1/reports", url.Values{
		"location_id": {"999"},
		"subject":     {"s"},
		"body":        {"b"},
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestCreateReportTargetMustBelongToLocation(t *testing.T) {
	e := setupTestServer(t)
	loc := e.seedLocation(t, "Here")
	other := e.seedLocation(t, "There")

	tgt := &record.Target{
		LocationId: other.Id,
		Name:       "Foreign",
		Category:   "venue",
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.store.Insert(tgt); err != nil {
		t.Fatalf("failed to seed target: %v", err)
	}

	w := e.postForm(t, "/api/v1/reports", url.Values{
		"location_id": {formatID(loc.Id)},
		"target_id":   {formatID(tgt.Id)},
		"subject":     {"s"},
		"body":        {"b"},
	}, "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestGetReportNotFound(t *testing.T) {
	e := setupTestServer(t)

	w := e.get(t, "/api/v1/reports/no-such-id")
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	body := decodeBody(t, w)
	if body["error"] != "Report not found" {
		t.Errorf("error = %v, want the catalog message", body["error"])
	}
}

func TestListReports(t *testing.T) {
	e := setupTestServer(t)
	loc := e.seedLocation(t, "Harbor")

	for _, subject := range []string{"one", "two"} {
		w := e.postForm(t, "/api/v1/reports", url.Values{
			"location_id": {formatID(loc.Id)},
			"subject":     {subject},
			"body":        {"b"},
		}, "")
		if w.Code != http.StatusCreated {
			t.Fatalf("seed report failed: %d", w.Code)
		}
	}

	w := e.get(t, "/api/v1/reports?status=open")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	reports, _ := body["reports"].([]any)
	if len(reports) != 2 {
		t.Errorf("got %d reports, want 2", len(reports))
	}

	if w := e.get(t, "/api/v1/reports?status=bogus"); w.Code != http.StatusBadRequest {
		t.Errorf("invalid status filter: status = %d, want 400", w.Code)
	}
}

func TestUpdateReportStatus(t *testing.T) {
	e := setupTestServer(t)
	loc := e.seedLocation(t, "Harbor")
	token := e.seedReviewerToken(t)

	w := e.postForm(t, "/api/v1/reports", url.Values{
		"location_id": {formatID(loc.Id)},
		"subject":     {"s"},
		"body":        {"b"},
	}, "")
	body := decodeBody(t, w)
	report := body["report"].(map[string]any)
	publicId := report["publicId"].(string)

	// Without a token the change is rejected
	w = e.patchForm(t, "/api/v1/reports/"+publicId+"/status",
		url.Values{"status": {record.StatusReviewing}}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("unauthenticated status = %d, want 401", w.Code)
	}

	// open -> reviewing
	w = e.patchForm(t, "/api/v1/reports/"+publicId+"/status",
		url.Values{"status": {record.StatusReviewing}}, token)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	body = decodeBody(t, w)
	if body["report"].(map[string]any)["status"] != record.StatusReviewing {
		t.Errorf("report status not updated: %v", body)
	}

	// reviewing -> open is allowed (reopen)
	w = e.patchForm(t, "/api/v1/reports/"+publicId+"/status",
		url.Values{"status": {record.StatusOpen}}, token)
	if w.Code != http.StatusOK {
		t.Errorf("reopen status = %d, want 200", w.Code)
	}

	// open -> closed is not a legal transition
	w = e.patchForm(t, "/api/v1/reports/"+publicId+"/status",
		url.Values{"status": {record.StatusClosed}}, token)
	if w.Code != http.StatusUnprocessableEntity {
		t.Errorf("illegal transition status = %d, want 422", w.Code)
	}
	body = decodeBody(t, w)
	details, _ := body["details"].(map[string]any)
	if details["from"] != record.StatusOpen || details["to"] != record.StatusClosed {
		t.Errorf("transition details = %v", details)
	}
}

func TestLocationsAndTargets(t *testing.T) {
	e := setupTestServer(t)
	loc := e.seedLocation(t, "Harbor")

	tgt := &record.Target{
		LocationId: loc.Id,
		Name:       "The Mill",
		Category:   "business",
		Active:     true,
		CreatedAt:  time.Now().UTC(),
	}
	if err := e.store.Insert(tgt); err != nil {
		t.Fatalf("failed to seed target: %v", err)
	}

	w := e.get(t, "/api/v1/locations")
	if w.Code != http.StatusOK {
		t.Fatalf("locations status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	locations, _ := body["locations"].([]any)
	if len(locations) != 1 {
		t.Errorf("got %d locations, want 1", len(locations))
	}

	w = e.get(t, "/api/v1/targets?location="+formatID(loc.Id))
	if w.Code != http.StatusOK {
		t.Fatalf("targets status = %d, want 200", w.Code)
	}
	body = decodeBody(t, w)
	targets, _ := body["targets"].([]any)
	if len(targets) != 1 {
		t.Errorf("got %d targets, want 1", len(targets))
	}

	if w := e.get(t, "/api/v1/targets"); w.Code != http.StatusBadRequest {
		t.Errorf("missing location param: status = %d, want 400", w.Code)
	}
}

func TestLoginLogout(t *testing.T) {
	e := setupTestServer(t)

	if _, err := e.authMgr.CreateUser("rev@example.com", "Rev", "secret", record.RoleReviewer); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	w := e.postForm(t, "/api/v1/login", url.Values{
		"email":    {"rev@example.com"},
		"password": {"secret"},
	}, "")
	if w.Code != http.StatusOK {
		t.Fatalf("login status = %d, want 200: %s", w.Code, w.Body.String())
	}
	body := decodeBody(t, w)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("token missing from login response")
	}
	user, _ := body["user"].(map[string]any)
	if user["email"] != "rev@example.com" {
		t.Errorf("user email = %v", user["email"])
	}

	w = e.postForm(t, "/api/v1/login", url.Values{
		"email":    {"rev@example.com"},
		"password": {"wrong"},
	}, "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("bad password status = %d, want 401", w.Code)
	}

	w = e.postForm(t, "/api/v1/logout", nil, token)
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d, want 200", w.Code)
	}

	// The revoked token no longer authenticates
	w = e.postForm(t, "/api/v1/logout", nil, token)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("revoked token status = %d, want 401", w.Code)
	}
}

func TestDebugConsole(t *testing.T) {
	e := setupTestServer(t)
	e.store.DB().SetRecorder(e.server.profiler)

	// Generate some traffic to profile
	e.seedLocation(t, "Traced")
	if w := e.get(t, "/api/v1/locations"); w.Code != http.StatusOK {
		t.Fatalf("locations failed: %d", w.Code)
	}

	w := e.get(t, "/debug/queries")
	if w.Code != http.StatusOK {
		t.Fatalf("console status = %d, want 200", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}
	if !strings.Contains(w.Body.String(), "SELECT") {
		t.Error("console page missing recorded statements")
	}

	w = e.get(t, "/debug/queries.json")
	if w.Code != http.StatusOK {
		t.Fatalf("console JSON status = %d, want 200", w.Code)
	}
	body := decodeBody(t, w)
	if body["summary"] == nil || body["queries"] == nil {
		t.Errorf("console JSON shape: %v", body)
	}
}

func TestDebugConsoleDisabled(t *testing.T) {
	e := setupTestServer(t)

	// Rebuild without a profiler; debug routes must not exist
	cfg := config.DefaultConfig()
	server := NewServer(Options{
		Config:  cfg,
		Store:   e.store,
		AuthMgr: e.authMgr,
		Logger:  logging.Discard(),
	})

	req := httptest.NewRequest(http.MethodGet, "/debug/queries", nil)
	w := httptest.NewRecorder()
	server.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	e := setupTestServer(t)

	e.server.router.HandleFunc("/panic", func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	})

	w := e.get(t, "/panic")
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

// formatID formats an id for a form value
func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
