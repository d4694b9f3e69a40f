package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/collisionlab/internal/config"
	"github.com/playmatatu/collisionlab/internal/lab"
)

type createResponse struct {
	ID    string       `json:"id"`
	Token string       `json:"token"`
	State lab.Snapshot `json:"state"`
}

func setupTestRouter(t *testing.T) (*gin.Engine, *lab.LabManager) {
	t.Helper()
	return setupTestRouterWithConfig(t, config.Default())
}

func setupTestRouterWithConfig(t *testing.T, cfg *config.Config) (*gin.Engine, *lab.LabManager) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	m := lab.NewLabManager(nil, cfg)
	r := gin.New()
	SetupRoutes(r, nil, m, cfg)
	return r, m
}

func doRequest(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func createLab(t *testing.T, r *gin.Engine, body string) createResponse {
	t.Helper()
	w := doRequest(r, http.MethodPost, "/api/v1/labs", body)
	if w.Code != http.StatusCreated {
		t.Fatalf("create lab: expected 201, got %d: %s", w.Code, w.Body.String())
	}
	var resp createResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if w.Header().Get("X-Lab-Token") != resp.Token {
		t.Errorf("X-Lab-Token header %q does not match body %q", w.Header().Get("X-Lab-Token"), resp.Token)
	}
	return resp
}

func decodeSnapshot(t *testing.T, w *httptest.ResponseRecorder) lab.Snapshot {
	t.Helper()
	var s lab.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode snapshot: %v (%s)", err, w.Body.String())
	}
	return s
}

func TestHealth(t *testing.T) {
	r, _ := setupTestRouter(t)
	w := doRequest(r, http.MethodGet, "/api/v1/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body map[string]interface{}
	json.Unmarshal(w.Body.Bytes(), &body)
	if body["status"] != "ok" || body["labs"] != float64(0) {
		t.Errorf("unexpected health body: %v", body)
	}
}

func TestCreateLab(t *testing.T) {
	r, m := setupTestRouter(t)

	def := createLab(t, r, "")
	if def.State.Preset != "default" || len(def.State.Balls) != 2 {
		t.Errorf("default lab = %+v", def.State)
	}

	cradle := createLab(t, r, `{"preset":"newtons-cradle","elasticity":0.5}`)
	if len(cradle.State.Balls) != 5 || cradle.State.Settings.Elasticity != 0.5 {
		t.Errorf("cradle lab = %+v", cradle.State.Settings)
	}
	if m.Count() != 2 {
		t.Errorf("manager has %d labs, want 2", m.Count())
	}

	if w := doRequest(r, http.MethodPost, "/api/v1/labs", `{"preset":"nope"}`); w.Code != http.StatusNotFound {
		t.Errorf("unknown preset: expected 404, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/v1/labs", `{"ball_count":9}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad ball count: expected 400, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodPost, "/api/v1/labs", `{`); w.Code != http.StatusBadRequest {
		t.Errorf("malformed body: expected 400, got %d", w.Code)
	}
}

func TestDefaultElasticityAppliesToDefaultPreset(t *testing.T) {
	cfg := config.Default()
	cfg.DefaultElasticity = 0.6
	r, _ := setupTestRouterWithConfig(t, cfg)

	for _, body := range []string{"", `{"preset":"default"}`} {
		lb := createLab(t, r, body)
		if e := lb.State.Settings.Elasticity; e != 0.6 {
			t.Errorf("body %q: elasticity = %v, want 0.6", body, e)
		}
	}
	if lb := createLab(t, r, `{"preset":"head-on"}`); lb.State.Settings.Elasticity != 1 {
		t.Errorf("named presets keep their own elasticity, got %v", lb.State.Settings.Elasticity)
	}
}

func TestLabLifecycle(t *testing.T) {
	r, m := setupTestRouter(t)
	lb := createLab(t, r, `{"preset":"head-on"}`)
	base := "/api/v1/labs/" + lb.Token

	w := doRequest(r, http.MethodGet, base, "")
	if w.Code != http.StatusOK {
		t.Fatalf("get: expected 200, got %d", w.Code)
	}

	w = doRequest(r, http.MethodPost, base+"/play", "")
	if s := decodeSnapshot(t, w); !s.Playing {
		t.Errorf("play did not start the lab")
	}

	w = doRequest(r, http.MethodPost, base+"/step", `{"dt":1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("step: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	s := decodeSnapshot(t, w)
	if s.Playing || s.LastStep.BallCollisions != 1 {
		t.Errorf("after step playing=%v stats=%+v", s.Playing, s.LastStep)
	}

	w = doRequest(r, http.MethodPost, base+"/step", `{"direction":"backward"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("step backward: expected 200, got %d", w.Code)
	}
	if s := decodeSnapshot(t, w); s.ElapsedTime >= 1 {
		t.Errorf("backward step did not rewind: elapsed %v", s.ElapsedTime)
	}

	w = doRequest(r, http.MethodPost, base+"/reset", "")
	if s := decodeSnapshot(t, w); s.ElapsedTime != 0 || s.Balls[0].X != -1 {
		t.Errorf("reset left elapsed=%v x=%v", s.ElapsedTime, s.Balls[0].X)
	}

	if w := doRequest(r, http.MethodDelete, base, ""); w.Code != http.StatusNoContent {
		t.Errorf("delete: expected 204, got %d", w.Code)
	}
	if w := doRequest(r, http.MethodGet, base, ""); w.Code != http.StatusNotFound {
		t.Errorf("get after delete: expected 404, got %d", w.Code)
	}
	if m.Count() != 0 {
		t.Errorf("lab still registered after delete")
	}
}

func TestStepBackwardWithoutElasticity(t *testing.T) {
	r, _ := setupTestRouter(t)
	lb := createLab(t, r, `{"preset":"head-on","elasticity":0}`)
	base := "/api/v1/labs/" + lb.Token

	doRequest(r, http.MethodPost, base+"/step", `{"dt":0.5}`)
	if w := doRequest(r, http.MethodPost, base+"/step", `{"direction":"backward"}`); w.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", w.Code)
	}
}

func TestUpdateSettingsAndBalls(t *testing.T) {
	r, _ := setupTestRouter(t)
	lb := createLab(t, r, "")
	base := "/api/v1/labs/" + lb.Token

	w := doRequest(r, http.MethodPatch, base+"/settings", `{"ball_count":4,"speed":0.25}`)
	if w.Code != http.StatusOK {
		t.Fatalf("settings: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if s := decodeSnapshot(t, w); len(s.Balls) != 4 || s.Settings.Speed != lab.SpeedSlow {
		t.Errorf("settings not applied: %+v", s.Settings)
	}
	if w := doRequest(r, http.MethodPatch, base+"/settings", `{"elasticity":2}`); w.Code != http.StatusBadRequest {
		t.Errorf("bad elasticity: expected 400, got %d", w.Code)
	}

	w = doRequest(r, http.MethodPut, base+"/balls/1", `{"vx":0.2,"vy":-0.1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("ball update: expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if b := decodeSnapshot(t, w).Balls[1]; b.VX != 0.2 || b.VY != -0.1 {
		t.Errorf("velocity not applied: %+v", b)
	}

	tests := []struct {
		path string
		body string
		want int
	}{
		{base + "/balls/x", `{"mass":1}`, http.StatusBadRequest},
		{base + "/balls/9", `{"mass":1}`, http.StatusBadRequest},
		{base + "/balls/0", `{"mass":50}`, http.StatusBadRequest},
		{"/api/v1/labs/missing/balls/0", `{"mass":1}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		if w := doRequest(r, http.MethodPut, tt.path, tt.body); w.Code != tt.want {
			t.Errorf("PUT %s %s: expected %d, got %d", tt.path, tt.body, tt.want, w.Code)
		}
	}
}

func TestPresetsWithoutDatabase(t *testing.T) {
	r, _ := setupTestRouter(t)
	w := doRequest(r, http.MethodGet, "/api/v1/presets", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var body struct {
		Presets []lab.Preset `json:"presets"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Presets) != len(lab.BuiltinPresets) {
		t.Errorf("got %d presets, want %d", len(body.Presets), len(lab.BuiltinPresets))
	}

	if w := doRequest(r, http.MethodPost, "/api/v1/admin/login", `{}`); w.Code != http.StatusNotFound {
		t.Errorf("admin routes should not exist without a database, got %d", w.Code)
	}
}
