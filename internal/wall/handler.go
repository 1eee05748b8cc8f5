package wall

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"video-wall/internal/platform/metrics"

	"github.com/go-chi/chi/v5"
)

const streamContentType = "video/x-flv"

// Handler exposes the wall control surface over HTTP using go-chi.
type Handler struct {
	wall    *Wall
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler for w. Metrics may be nil (e.g. in tests).
func NewHandler(w *Wall, log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{wall: w, log: log, metrics: m}
}

// Routes mounts the wall endpoints on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/", h.GetWall)
	r.Post("/streams", h.AddStream)
	r.Put("/slots", h.SetSlotCount)
	r.Get("/slots/{index}/stream", h.StreamSlot)
}

type addStreamRequest struct {
	Address   StreamAddress   `json:"address"`
	Addresses []StreamAddress `json:"addresses"`
}

type assignResultResponse struct {
	AssignResult
	Error        string `json:"error,omitempty"`
	ReleaseError string `json:"release_error,omitempty"`
}

type addStreamResponse struct {
	Results []assignResultResponse `json:"results"`
	Wall    Snapshot               `json:"wall"`
}

type setSlotCountRequest struct {
	Count SlotCount `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// GetWall handles GET /wall.
func (h *Handler) GetWall(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.wall.Snapshot())
}

// AddStream handles POST /wall/streams.
// Body: { "addresses": ["wss://host/live/a.flv", ...] } or { "address": "..." }.
func (h *Handler) AddStream(w http.ResponseWriter, r *http.Request) {
	var req addStreamRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid add stream body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	addresses := req.Addresses
	if len(addresses) == 0 && req.Address != "" {
		addresses = []StreamAddress{req.Address}
	}

	results := h.wall.AddStream(addresses...)
	resp := addStreamResponse{
		Results: make([]assignResultResponse, 0, len(results)),
		Wall:    h.wall.Snapshot(),
	}
	for _, res := range results {
		out := assignResultResponse{AssignResult: res}
		if res.Err != nil {
			out.Error = res.Err.Error()
		}
		if res.ReleaseErr != nil {
			out.ReleaseError = res.ReleaseErr.Error()
		}
		resp.Results = append(resp.Results, out)
	}

	writeJSON(w, http.StatusOK, resp)
}

// SetSlotCount handles PUT /wall/slots. Body: { "count": 4 }.
func (h *Handler) SetSlotCount(w http.ResponseWriter, r *http.Request) {
	var req setSlotCountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log.Debug("invalid slot count body", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	if err := h.wall.SetSlotCount(req.Count); err != nil {
		switch {
		case errors.Is(err, ErrUnsupportedSlotCount):
			h.log.Info("slot count rejected", slog.Int("count", int(req.Count)))
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		case errors.Is(err, ErrWallClosed):
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		default:
			h.log.Error("set slot count failed", slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		}
		return
	}

	h.log.Info("slot count changed", slog.Int("count", int(req.Count)))
	writeJSON(w, http.StatusOK, h.wall.Snapshot())
}

// StreamSlot handles GET /wall/slots/{index}/stream. It relays whatever the
// slot's session plays until the client goes away or the slot is destroyed.
func (h *Handler) StreamSlot(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid slot index"})
		return
	}

	target, err := h.wall.Target(index)
	if err != nil {
		if errors.Is(err, ErrWallClosed) {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
			return
		}
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}

	chunks, cancel, err := target.Subscribe()
	if err != nil {
		writeJSON(w, http.StatusGone, errorResponse{Error: err.Error()})
		return
	}
	defer cancel()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", streamContentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	h.log.Debug("viewer joined",
		slog.Int("slot", index),
		slog.Uint64("generation", target.Generation()))

	for {
		select {
		case <-r.Context().Done():
			return
		case chunk, ok := <-chunks:
			if !ok {
				return
			}
			n, err := w.Write(chunk)
			h.metrics.AddRelayBytes(n)
			if err != nil {
				return
			}
			if err := rc.Flush(); err != nil {
				return
			}
		}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
