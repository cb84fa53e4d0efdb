// Package api exposes the orchestrator over HTTP. Routes mirror the
// scanner's public contract:
//
//	POST   /scan             submit a scan, returns {scan_id}
//	GET    /scan/{id}        poll status; result embedded when completed
//	POST   /scan/{id}/cancel cooperative cancel; 409 once terminal
//	DELETE /scan/{id}        drop a scan record
//	GET    /scans            all scans, newest first
//	GET    /                 health banner
//
// Handlers are thin: decode, call the orchestrator, map its sentinel
// errors onto status codes. Pipeline failures never surface here; they
// are discovered by polling.
package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/snlscan/snlscan/internal/jsonutil"
	"github.com/snlscan/snlscan/pkg/job"
	"github.com/snlscan/snlscan/pkg/orchestrator"
)

// Service is the orchestrator surface the handlers consume.
type Service interface {
	Submit(target string, mode job.Mode) (string, error)
	GetStatus(id string) (*job.Job, error)
	List() ([]*job.Job, error)
	Cancel(id string) error
	Delete(id string) error
}

// Handler serves the scan API.
type Handler struct {
	svc     Service
	metrics http.Handler
}

// New creates the API handler. metricsHandler may be nil to disable the
// /metrics route.
func New(svc Service, metricsHandler http.Handler) *Handler {
	return &Handler{svc: svc, metrics: metricsHandler}
}

// Routes mounts all endpoints on a fresh router.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.health)
	r.Post("/scan", h.submit)
	r.Get("/scans", h.list)
	r.Route("/scan/{id}", func(r chi.Router) {
		r.Get("/", h.status)
		r.Post("/cancel", h.cancel)
		r.Delete("/", h.delete)
	})
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}
	return r
}

// scanRequest is the submit body. "url" is accepted as a legacy alias
// for "target".
type scanRequest struct {
	Target string `json:"target"`
	URL    string `json:"url"`
	Mode   string `json:"mode"`
}

type scanCreated struct {
	ScanID  string `json:"scan_id"`
	Message string `json:"message"`
}

// jobStatus is the poll response shape. Result stays null until the
// scan completes; Error stays null unless it fails or is cancelled.
type jobStatus struct {
	ScanID      string      `json:"scan_id"`
	Status      job.Status  `json:"status"`
	Target      string      `json:"target"`
	Mode        job.Mode    `json:"mode"`
	SubmittedAt string      `json:"submitted_at"`
	Result      interface{} `json:"result"`
	Error       *string     `json:"error"`
}

func toStatus(j *job.Job) jobStatus {
	s := jobStatus{
		ScanID:      j.ID,
		Status:      j.Status,
		Target:      j.Target,
		Mode:        j.Mode,
		SubmittedAt: j.SubmittedAt.Format(time.RFC3339),
	}
	if j.Result != nil {
		s.Result = j.Result
	}
	if j.Error != "" {
		e := j.Error
		s.Error = &e
	}
	return s
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, map[string]string{
		"message": "snlscan API is running. POST to /scan to start.",
	})
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	body := http.MaxBytesReader(w, r.Body, 1<<16)
	defer body.Close()

	buf, err := io.ReadAll(body)
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid body"})
		return
	}
	if err := jsonutil.Unmarshal(buf, &req); err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "invalid json"})
		return
	}

	target := req.Target
	if target == "" {
		target = req.URL
	}

	id, err := h.svc.Submit(target, job.Mode(req.Mode))
	if err != nil {
		if errors.Is(err, orchestrator.ErrInvalidTarget) {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "failed to queue scan"})
		return
	}

	render.Status(r, http.StatusAccepted)
	render.JSON(w, r, scanCreated{ScanID: id, Message: "Scan started successfully."})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	j, err := h.svc.GetStatus(chi.URLParam(r, "id"))
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, toStatus(j))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.svc.List()
	if err != nil {
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "failed to list scans"})
		return
	}
	out := make([]jobStatus, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, toStatus(j))
	}
	render.JSON(w, r, out)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Cancel(id); err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{
		"message": "Scan cancelled successfully",
		"scan_id": id,
	})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Delete(id); err != nil {
		h.renderError(w, r, err)
		return
	}
	render.JSON(w, r, map[string]string{
		"message": "Scan deleted successfully",
		"scan_id": id,
	})
}

// renderError maps orchestrator sentinels onto HTTP status codes.
func (h *Handler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrNotFound):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": "scan not found"})
	case errors.Is(err, orchestrator.ErrAlreadyTerminal):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, map[string]string{"error": err.Error()})
	default:
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": "internal error"})
	}
}
