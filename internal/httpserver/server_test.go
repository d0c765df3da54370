package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/tinytelemetry/portal/internal/duckdb"
	"github.com/tinytelemetry/portal/internal/model"
	"github.com/tinytelemetry/portal/internal/seed"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, *duckdb.Store, *gin.Engine) {
	t.Helper()
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	if err := seed.Apply(context.Background(), store, seed.Default()); err != nil {
		t.Fatalf("seed: %v", err)
	}

	srv := NewServer("", store)
	return srv, store, srv.Handler()
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body != "" {
		reader = bytes.NewBufferString(body)
	} else {
		reader = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHealthEndpoint(t *testing.T) {
	_, _, r := newTestServer(t)

	w := do(r, http.MethodGet, "/api/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d, want %d", w.Code, http.StatusOK)
	}

	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal health: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("health status = %v, want ok", body["status"])
	}
	if body["dashboards"].(float64) != float64(len(seed.Default().Dashboards)) {
		t.Errorf("dashboards = %v", body["dashboards"])
	}
}

func TestListWidgets_Envelope(t *testing.T) {
	_, _, r := newTestServer(t)

	w := do(r, http.MethodGet, "/apis/widgets", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}

	var env model.ListEnvelope[model.WidgetDescriptor]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(env.Data) != len(seed.Default().Widgets) {
		t.Errorf("len(data) = %d, want %d", len(env.Data), len(seed.Default().Widgets))
	}
}

func TestListWidgets_EmptyCatalogIsArray(t *testing.T) {
	store, err := duckdb.NewStore("")
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	defer store.Close()
	r := NewServer("", store).Handler()

	w := do(r, http.MethodGet, "/apis/widgets", "")
	if got := strings.TrimSpace(w.Body.String()); got != `{"data":[]}` {
		t.Fatalf("body = %s, want {\"data\":[]}", got)
	}
}

func TestGetWidget(t *testing.T) {
	_, _, r := newTestServer(t)

	w := do(r, http.MethodGet, "/apis/widgets/Gauge", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d; body: %s", w.Code, w.Body.String())
	}
	var env model.ItemEnvelope[model.WidgetDefinition]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Data.Name != "Gauge" || env.Data.Config["max"] == nil {
		t.Errorf("definition = %+v", env.Data)
	}

	if w := do(r, http.MethodGet, "/apis/widgets/Nope", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing widget status = %d, want 404", w.Code)
	}
}

func TestListAndGetDashboards(t *testing.T) {
	_, _, r := newTestServer(t)

	w := do(r, http.MethodGet, "/apis/dashboards", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var env model.ListEnvelope[model.DashboardDescriptor]
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(env.Data) != 3 {
		t.Fatalf("len(data) = %d, want 3", len(env.Data))
	}

	w = do(r, http.MethodGet, "/apis/dashboards/ops", "")
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	if w := do(r, http.MethodGet, "/apis/dashboards/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing dashboard status = %d, want 404", w.Code)
	}
}

func TestCreateDashboard(t *testing.T) {
	_, store, r := newTestServer(t)

	w := do(r, http.MethodPost, "/apis/dashboards", `{"url":"finance","name":"Finance"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d; body: %s", w.Code, w.Body.String())
	}
	if _, err := store.GetDashboard(context.Background(), "finance"); err != nil {
		t.Fatalf("created dashboard not stored: %v", err)
	}

	if w := do(r, http.MethodPost, "/apis/dashboards", `{"url":"finance","name":"Again"}`); w.Code != http.StatusConflict {
		t.Errorf("duplicate status = %d, want 409", w.Code)
	}
	if w := do(r, http.MethodPost, "/apis/dashboards", `{"url":"Bad Url","name":"x"}`); w.Code != http.StatusBadRequest {
		t.Errorf("invalid status = %d, want 400", w.Code)
	}
	if w := do(r, http.MethodPost, "/apis/dashboards", `{not json`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed status = %d, want 400", w.Code)
	}
}

func TestDashboards_WrongMethod(t *testing.T) {
	_, _, r := newTestServer(t)

	w := do(r, http.MethodDelete, "/apis/dashboards", "")
	// Gin returns 404 unless HandleMethodNotAllowed is set.
	if w.Code != http.StatusMethodNotAllowed && w.Code != http.StatusNotFound {
		t.Errorf("DELETE status = %d, want 405 or 404", w.Code)
	}
}

func TestRequestIDHeader(t *testing.T) {
	_, _, r := newTestServer(t)

	w := do(r, http.MethodGet, "/api/health", "")
	if w.Header().Get(RequestIDHeader) == "" {
		t.Fatal("response has no request id")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if got := rec.Header().Get(RequestIDHeader); got != "abc-123" {
		t.Errorf("request id = %q, want propagated abc-123", got)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	_, _, r := newTestServer(t)

	do(r, http.MethodGet, "/apis/widgets", "")
	w := do(r, http.MethodGet, "/metrics", "")
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `portal_http_requests_total{method="GET",route="/apis/widgets",status="200"} 1`) {
		t.Errorf("metrics missing widget request counter:\n%s", w.Body.String())
	}
}

func TestStartStop(t *testing.T) {
	_, store, _ := newTestServer(t)

	srv := NewServer("127.0.0.1:0", store)
	if err := srv.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	resp, err := http.Get("http://" + srv.Addr() + "/api/health")
	if err != nil {
		t.Fatalf("GET health: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("health status = %d", resp.StatusCode)
	}
	if err := srv.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
}
