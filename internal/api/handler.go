package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/gyaneshwarpardhi/cmdgraph/internal/config"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/engine"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/graph"
	"github.com/gyaneshwarpardhi/cmdgraph/internal/metrics"
)

// Handler holds all HTTP handler dependencies.
type Handler struct {
	eng     *engine.Engine
	loader  *config.Loader
	limiter *rate.Limiter
	mux     *http.ServeMux
}

// New creates an HTTP handler and registers all routes. reloadPerMinute caps
// POST /v1/commands/reload; zero or less disables the limit.
func New(eng *engine.Engine, loader *config.Loader, reloadPerMinute int) http.Handler {
	limit := rate.Inf
	if reloadPerMinute > 0 {
		limit = rate.Limit(float64(reloadPerMinute) / 60)
	}
	h := &Handler{
		eng:     eng,
		loader:  loader,
		limiter: rate.NewLimiter(limit, 1),
		mux:     http.NewServeMux(),
	}

	h.mux.HandleFunc("GET /v1/commands", h.getCommands)
	h.mux.HandleFunc("GET /v1/commands/packet", h.getPacket)
	h.mux.HandleFunc("POST /v1/commands/reload", h.reloadCommands)
	h.mux.HandleFunc("GET /healthz", h.healthz)
	h.mux.HandleFunc("GET /readyz", h.readyz)
	h.mux.Handle("GET /metrics", promhttp.Handler())

	return loggingMiddleware(h.mux)
}

// GET /v1/commands: the active graph as JSON. Viewer parameters (see
// viewerFromQuery) return the part of the graph that viewer may see.
func (h *Handler) getCommands(w http.ResponseWriter, r *http.Request) {
	snap := h.eng.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no command graph built yet")
		return
	}
	v, ok, err := viewerFromQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !ok {
		writeJSON(w, http.StatusOK, snap)
		return
	}
	view, err := snap.ViewFor(v)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":     snap.ID,
		"viewer": v,
		"view":   view,
	})
}

// GET /v1/commands/packet: framed packet bytes. ?form=payload returns the
// unframed message instead. Viewer parameters select a per-viewer graph.
func (h *Handler) getPacket(w http.ResponseWriter, r *http.Request) {
	snap := h.eng.Current()
	if snap == nil {
		writeError(w, http.StatusServiceUnavailable, "no command graph built yet")
		return
	}
	q := r.URL.Query()
	v, ok, err := viewerFromQuery(q)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	packet, payload, fingerprint := snap.Packet, snap.Payload, snap.Fingerprint
	if ok {
		view, err := snap.ViewFor(v)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		packet, payload, fingerprint = view.Packet, view.Payload, view.Fingerprint
	}

	body := packet
	etag := `"` + fingerprint + `"`
	switch form := q.Get("form"); form {
	case "", "framed":
	case "payload":
		body = payload
		etag = `"` + fingerprint + `-payload"`
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown form %q", form))
		return
	}

	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("X-Packet-Id", strconv.Itoa(int(snap.PacketID)))
	w.Header().Set("X-Compression-Threshold", strconv.Itoa(snap.Threshold))
	writeBinary(w, http.StatusOK, body)
}

// POST /v1/commands/reload: reread the command file and rebuild.
func (h *Handler) reloadCommands(w http.ResponseWriter, r *http.Request) {
	if !h.limiter.Allow() {
		metrics.Reloads.WithLabelValues("api", "limited").Inc()
		writeError(w, http.StatusTooManyRequests, "reload rate limit exceeded")
		return
	}

	cfg, err := h.loader.Reload()
	if err != nil {
		metrics.Reloads.WithLabelValues("api", "error").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := config.Validate(cfg); err != nil {
		metrics.Reloads.WithLabelValues("api", "invalid").Inc()
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	res, err := h.eng.Rebuild(r.Context(), cfg)
	switch {
	case errors.Is(err, engine.ErrQueueFull):
		metrics.Reloads.WithLabelValues("api", "busy").Inc()
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	case errors.Is(err, graph.ErrUnresolvedRedirect):
		metrics.Reloads.WithLabelValues("api", "invalid").Inc()
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	case err != nil:
		metrics.Reloads.WithLabelValues("api", "error").Inc()
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	metrics.Reloads.WithLabelValues("api", "ok").Inc()
	writeJSON(w, http.StatusOK, map[string]any{
		"reloaded":       true,
		"changed":        res.Changed,
		"id":             res.Snapshot.ID,
		"fingerprint":    res.Snapshot.Fingerprint,
		"node_count":     res.Snapshot.NodeCount,
		"commands_count": len(cfg.Commands),
	})
}

// GET /healthz: always 200 (liveness probe).
func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GET /readyz: 503 until a graph is built, or while the compile queue is >80% full.
func (h *Handler) readyz(w http.ResponseWriter, r *http.Request) {
	util := h.eng.QueueUtilization()
	metrics.CompileQueueUtilization.Set(util)
	snap := h.eng.Current()
	switch {
	case snap == nil:
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "building",
			"queue_utilization": util,
		})
	case util > 0.8:
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status":            "overloaded",
			"queue_utilization": util,
		})
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"status":            "ready",
			"fingerprint":       snap.Fingerprint,
			"queue_utilization": util,
		})
	}
}
