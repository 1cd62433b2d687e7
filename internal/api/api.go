// Package api serves the organizer over HTTP for the watch daemon.
//
// Routes, all JSON:
//   - GET    /api/health
//   - GET    /api/categories, POST /api/categories, DELETE /api/categories/{id}
//   - GET    /api/folders, POST /api/folders
//   - POST   /api/folders/{id}/pause, /resume, /process
//   - GET    /api/batches/{id}, POST /api/batches/{id}/cancel
//   - GET    /api/history, GET /api/history/stats, POST /api/history/{id}/undo
//   - POST   /api/search
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"sift-go/internal/index"
	"sift-go/internal/model"
	"sift-go/internal/sift"
)

// Organizer is everything the HTTP surface needs from the running organizer.
type Organizer interface {
	Stats() sift.StatsSnapshot

	ListCategories() ([]*model.Category, error)
	AddCategory(name, destination string) (*model.Category, error)
	RemoveCategory(id int64) error

	ListFolders() ([]*model.WatchedFolder, error)
	AddFolder(name, sourcePath string) (*model.WatchedFolder, error)
	SetFolderStatus(id int64, status model.FolderStatus) error
	// ProcessFolder starts a batch over the folder and returns its id.
	ProcessFolder(id int64) (string, error)

	BatchProgress(id string) (sift.BatchProgress, bool)
	CancelBatch(id string) bool

	History(limit int) ([]*model.MovementRecord, error)
	HistoryStats() (*sift.HistoryStats, error)
	Undo(id int64) (*model.MovementRecord, error)

	Search(query string, limit int) ([]index.Result, error)
}

type handler struct {
	org    Organizer
	logger sift.Logger
}

// NewRouter returns the API handler.
func NewRouter(org Organizer, logger sift.Logger) http.Handler {
	h := &handler{org: org, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.listCategories)
			r.Post("/", h.addCategory)
			r.Delete("/{id}", h.removeCategory)
		})

		r.Route("/folders", func(r chi.Router) {
			r.Get("/", h.listFolders)
			r.Post("/", h.addFolder)
			r.Post("/{id}/pause", h.setFolderStatus(model.FolderPaused))
			r.Post("/{id}/resume", h.setFolderStatus(model.FolderActive))
			r.Post("/{id}/process", h.processFolder)
		})

		r.Get("/batches/{id}", h.batch)
		r.Post("/batches/{id}/cancel", h.cancelBatch)

		r.Route("/history", func(r chi.Router) {
			r.Get("/", h.history)
			r.Get("/stats", h.historyStats)
			r.Post("/{id}/undo", h.undo)
		})

		r.Post("/search", h.search)
	})
	return r
}

func requestLogger(logger sift.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request", "method", r.Method, "path", r.URL.Path,
				"status", ww.Status(), "duration", time.Since(start))
		})
	}
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "stats": h.org.Stats()})
}

func (h *handler) listCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := h.org.ListCategories()
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]categoryView, len(cats))
	for i, c := range cats {
		out[i] = newCategoryView(c)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) addCategory(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name            string `json:"name"`
		DestinationPath string `json:"destination_path"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.DestinationPath) == "" {
		writeError(w, http.StatusBadRequest, "name and destination_path are required")
		return
	}
	c, err := h.org.AddCategory(in.Name, in.DestinationPath)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newCategoryView(c))
}

func (h *handler) removeCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.org.RemoveCategory(id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) listFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.org.ListFolders()
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]folderView, len(folders))
	for i, f := range folders {
		out[i] = newFolderView(f)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) addFolder(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name       string `json:"name"`
		SourcePath string `json:"source_path"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.SourcePath) == "" {
		writeError(w, http.StatusBadRequest, "source_path is required")
		return
	}
	f, err := h.org.AddFolder(in.Name, in.SourcePath)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newFolderView(f))
}

func (h *handler) setFolderStatus(status model.FolderStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := idParam(w, r)
		if !ok {
			return
		}
		if err := h.org.SetFolderStatus(id, status); err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": id, "status": status})
	}
}

func (h *handler) processFolder(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	batchID, err := h.org.ProcessFolder(id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"batch_id": batchID})
}

func (h *handler) batch(w http.ResponseWriter, r *http.Request) {
	prog, ok := h.org.BatchProgress(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	writeJSON(w, http.StatusOK, prog)
}

func (h *handler) cancelBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := h.org.BatchProgress(id); !ok {
		writeError(w, http.StatusNotFound, "batch not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": h.org.CancelBatch(id)})
}

func (h *handler) history(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	recs, err := h.org.History(limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	out := make([]movementView, len(recs))
	for i, rec := range recs {
		out[i] = newMovementView(rec)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *handler) historyStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.org.HistoryStats()
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *handler) undo(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	rec, err := h.org.Undo(id)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMovementView(rec))
}

func (h *handler) search(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if err := decode(r, &in); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(in.Query) == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	results, err := h.org.Search(in.Query, in.Limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	if results == nil {
		results = []index.Result{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"query": in.Query, "results": results})
}

// fail maps domain errors onto status codes.
func (h *handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, sift.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, sift.ErrDuplicateCategory), errors.Is(err, sift.ErrDuplicateFolder),
		errors.Is(err, sift.ErrAlreadyUndone), errors.Is(err, sift.ErrFileMissing):
		writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error("api request failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.New("invalid JSON body: " + err.Error())
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
