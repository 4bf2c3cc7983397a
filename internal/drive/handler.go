package drive

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/andresuchdata/pantrywise/backend-go/internal/ingest"
	"github.com/andresuchdata/pantrywise/backend-go/internal/repository"
	"github.com/andresuchdata/pantrywise/backend-go/internal/service"
	"github.com/gorilla/mux"
)

type Handler struct {
	source        Source
	ingestService *IngestService
	syncer        *Syncer
}

func NewHandler(source Source, ingestService *IngestService) *Handler {
	return &Handler{
		source:        source,
		ingestService: ingestService,
		syncer:        NewSyncer(ingestService),
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods("GET")
	router.HandleFunc("/api/drive/files/download", h.DownloadFile).Methods("GET")
	router.HandleFunc("/api/drive/ingest", h.IngestFile).Methods("POST")
	router.HandleFunc("/api/drive/sync", h.SyncFolder).Methods("POST")
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")
	folderPath := query.Get("path")

	var err error
	if folderPath != "" {
		// Find folder by path
		folderID, err = h.source.FindFolderByPath(r.Context(), folderPath)
		if err != nil {
			writeError(w, statusFor(err), "folder lookup failed", err)
			return
		}
	}

	files, err := h.source.ListFiles(r.Context(), folderID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "list files failed", err)
		return
	}
	if files == nil {
		files = make([]*File, 0)
	}

	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		writeError(w, http.StatusBadRequest, "fileId parameter is required", nil)
		return
	}

	f, err := h.source.GetFile(r.Context(), fileID)
	if err != nil {
		writeError(w, statusFor(err), "file lookup failed", err)
		return
	}

	format, err := f.Format()
	if err != nil {
		writeError(w, http.StatusUnsupportedMediaType, "file is not importable", err)
		return
	}
	contentType := "text/csv"
	if format == ingest.FormatXLSX {
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", f.LocalName()))

	// Headers are already sent once the copy starts.
	_ = h.source.DownloadFile(r.Context(), f, w)
}

func (h *Handler) IngestFile(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	fileID := query.Get("fileId")
	if fileID == "" {
		writeError(w, http.StatusBadRequest, "fileId parameter is required", nil)
		return
	}
	tenant := query.Get("tenant")
	if tenant == "" {
		writeError(w, http.StatusBadRequest, "tenant parameter is required", nil)
		return
	}

	var kind ingest.Kind
	if raw := query.Get("kind"); raw != "" {
		k, err := ingest.ParseKind(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid kind", err)
			return
		}
		kind = k
	}

	res, err := h.ingestService.IngestFile(r.Context(), fileID, tenant, kind)
	if err != nil {
		writeError(w, statusFor(err), "ingestion failed", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"status": "success", "result": res})
}

func (h *Handler) SyncFolder(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	opts := SyncOptions{FolderID: query.Get("folderId"), Tenant: query.Get("tenant")}
	if opts.Tenant == "" {
		writeError(w, http.StatusBadRequest, "tenant parameter is required", nil)
		return
	}
	if raw := query.Get("kind"); raw != "" {
		k, err := ingest.ParseKind(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid kind", err)
			return
		}
		opts.Kind = k
	}

	results, err := h.syncer.SyncFolder(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sync failed", err)
		return
	}
	if results == nil {
		results = make([]FileResult, 0)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"files": results})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ErrNotFound), errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ingest.ErrUnsupportedFormat), errors.Is(err, service.ErrTenantRequired):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string, err error) {
	body := map[string]string{"error": msg}
	if err != nil {
		body["details"] = err.Error()
	}
	writeJSON(w, status, body)
}
