package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fmidev/geonames-engine/internal/engine"
	apperrors "github.com/fmidev/geonames-engine/pkg/errors"
)

type fakeAdminEngine struct {
	reloadErr error
	meta      engine.Meta
	hits      int64
	misses    int64
}

func (f *fakeAdminEngine) Reload(ctx context.Context) error { return f.reloadErr }
func (f *fakeAdminEngine) Meta() engine.Meta                { return f.meta }
func (f *fakeAdminEngine) CacheStats() (int64, int64)       { return f.hits, f.misses }

func TestReloadSuccessReportsSuccess(t *testing.T) {
	fe := &fakeAdminEngine{meta: engine.Meta{Fingerprint: 42, HasFingerprint: true, LocationCount: 10}}
	h := NewAdminHandler(fe, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	w := httptest.NewRecorder()
	h.Reload(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	var body struct {
		Success bool `json:"success"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if !body.Success {
		t.Fatalf("success = false, want true")
	}
}

func TestReloadFailureReportsMessageNotServerError(t *testing.T) {
	fe := &fakeAdminEngine{reloadErr: apperrors.New(apperrors.ErrReloadInProgress, http.StatusConflict, "reload already in progress")}
	h := NewAdminHandler(fe, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/reload", nil)
	w := httptest.NewRecorder()
	h.Reload(w, req)

	if w.Code >= http.StatusInternalServerError {
		t.Fatalf("status = %d, want a non-5xx status for a reload already in progress", w.Code)
	}

	var body struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if body.Success {
		t.Fatalf("success = true, want false on reload error")
	}
	if body.Message == "" {
		t.Fatalf("message is empty, want the reload error surfaced to the caller")
	}
}

func TestGeonamesMetaType(t *testing.T) {
	fe := &fakeAdminEngine{meta: engine.Meta{LocationCount: 7}}
	h := NewAdminHandler(fe, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/geonames?type=meta", nil)
	w := httptest.NewRecorder()
	h.Geonames(w, req)

	var got engine.Meta
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.LocationCount != 7 {
		t.Fatalf("LocationCount = %d, want 7", got.LocationCount)
	}
}

func TestGeonamesCacheType(t *testing.T) {
	fe := &fakeAdminEngine{hits: 5, misses: 2}
	h := NewAdminHandler(fe, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/geonames?type=cache", nil)
	w := httptest.NewRecorder()
	h.Geonames(w, req)

	var got map[string]int64
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got["hits"] != 5 || got["misses"] != 2 {
		t.Fatalf("got = %v, want hits=5 misses=2", got)
	}
}

func TestGeonamesUnknownTypeIsBadRequest(t *testing.T) {
	fe := &fakeAdminEngine{}
	h := NewAdminHandler(fe, nil)

	req := httptest.NewRequest(http.MethodGet, "/admin/geonames?type=bogus", nil)
	w := httptest.NewRecorder()
	h.Geonames(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
