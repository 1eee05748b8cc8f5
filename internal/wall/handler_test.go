package wall

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
)

func newTestHandler(t *testing.T, n SlotCount) (*Handler, *Wall, *fakeEngine) {
	t.Helper()
	e := newFakeEngine()
	e.failCreate["bad"] = true
	w, err := newTestWall(e, n)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return NewHandler(w, discardLogger(), nil), w, e
}

func newTestRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/wall", h.Routes)
	return r
}

func TestHandler_AddStream(t *testing.T) {
	h, w, _ := newTestHandler(t, 4)
	r := newTestRouter(h)

	b, _ := json.Marshal(map[string]interface{}{"addresses": []string{"a", "bad", "c"}})
	req := httptest.NewRequest(http.MethodPost, "/wall/streams", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var resp struct {
		Results []struct {
			Slot      int    `json:"slot"`
			Address   string `json:"address"`
			SessionID string `json:"session_id"`
			Error     string `json:"error"`
		} `json:"results"`
		Wall Snapshot `json:"wall"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(resp.Results))
	}
	if resp.Results[0].SessionID == "" || resp.Results[0].Error != "" {
		t.Errorf("result 0: %+v", resp.Results[0])
	}
	if resp.Results[1].Error == "" || resp.Results[1].Slot != 1 {
		t.Errorf("result 1 should report a create failure in slot 1: %+v", resp.Results[1])
	}
	if resp.Wall.Cursor != 3 {
		t.Errorf("expected cursor 3, got %d", resp.Wall.Cursor)
	}
	if got := slotAddresses(w); got[0] != "a" || got[1] != "" || got[2] != "c" {
		t.Errorf("unexpected slots: %v", got)
	}
}

func TestHandler_AddStream_single_address(t *testing.T) {
	h, w, _ := newTestHandler(t, 2)
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/wall/streams", strings.NewReader(`{"address":"x"}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got := slotAddresses(w); got[0] != "x" {
		t.Errorf("expected slot 0 to play x, got %v", got)
	}
}

func TestHandler_AddStream_bad_request(t *testing.T) {
	h, _, _ := newTestHandler(t, 2)
	r := newTestRouter(h)

	req := httptest.NewRequest(http.MethodPost, "/wall/streams", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_SetSlotCount(t *testing.T) {
	h, w, _ := newTestHandler(t, 1)
	r := newTestRouter(h)
	w.AddStream("a")

	req := httptest.NewRequest(http.MethodPut, "/wall/slots", strings.NewReader(`{"count":6}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.SlotCount != 6 || snap.Grid != (GridShape{Rows: 3, Columns: 2}) || len(snap.Slots) != 6 {
		t.Errorf("unexpected snapshot: %+v", snap)
	}
	if w.ActiveSessions() != 0 {
		t.Errorf("expected no sessions after resize, got %d", w.ActiveSessions())
	}
}

func TestHandler_SetSlotCount_unsupported(t *testing.T) {
	h, w, _ := newTestHandler(t, 4)
	r := newTestRouter(h)

	for _, body := range []string{`{"count":3}`, `{"count":0}`, `{}`} {
		req := httptest.NewRequest(http.MethodPut, "/wall/slots", strings.NewReader(body))
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", body, rec.Code)
		}
	}
	if w.SlotCount() != 4 {
		t.Errorf("slot count changed to %d", w.SlotCount())
	}
}

func TestHandler_GetWall(t *testing.T) {
	h, w, _ := newTestHandler(t, 2)
	r := newTestRouter(h)
	w.AddStream("a")

	req := httptest.NewRequest(http.MethodGet, "/wall", nil)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var snap Snapshot
	if err := json.NewDecoder(rec.Body).Decode(&snap); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if snap.Slots[0].Address != "a" || snap.Slots[0].State != "playing" || snap.Slots[1].State != StateEmpty {
		t.Errorf("unexpected slots: %+v", snap.Slots)
	}
	if len(snap.SlotCounts) != len(SupportedSlotCounts) {
		t.Errorf("expected offered slot counts, got %v", snap.SlotCounts)
	}
}

func TestHandler_StreamSlot_not_found(t *testing.T) {
	h, _, _ := newTestHandler(t, 2)
	r := newTestRouter(h)

	for path, want := range map[string]int{
		"/wall/slots/5/stream":  http.StatusNotFound,
		"/wall/slots/-1/stream": http.StatusNotFound,
		"/wall/slots/x/stream":  http.StatusBadRequest,
	} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		if rec.Code != want {
			t.Errorf("%s: expected %d, got %d", path, want, rec.Code)
		}
	}
}

func TestHandler_StreamSlot_relays_target(t *testing.T) {
	h, w, _ := newTestHandler(t, 2)
	srv := httptest.NewServer(newTestRouter(h))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/wall/slots/1/stream")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != streamContentType {
		t.Errorf("expected %s, got %s", streamContentType, ct)
	}

	target, err := w.Target(1)
	if err != nil {
		t.Fatalf("Target: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for target.Viewers() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("viewer never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := target.Write([]byte("FLV\x01")); err != nil {
		t.Fatalf("Write: %v", err)
	}
	buf := make([]byte, 4)
	if _, err := io.ReadFull(resp.Body, buf); err != nil {
		t.Fatalf("read relay: %v", err)
	}
	if string(buf) != "FLV\x01" {
		t.Errorf("unexpected relay bytes %q", buf)
	}

	// Resizing destroys the slot, which ends the relay.
	if err := w.SetSlotCount(4); err != nil {
		t.Fatalf("SetSlotCount: %v", err)
	}
	if _, err := io.ReadAll(resp.Body); err != nil {
		t.Errorf("relay should end cleanly, got %v", err)
	}
}
