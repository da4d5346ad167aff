package drive

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/andresuchdata/autopo-replenish/internal/replenishment"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service       *Service
	ingestService *IngestService
}

func NewHandler(service *Service, ingestService *IngestService) *Handler {
	return &Handler{
		service:       service,
		ingestService: ingestService,
	}
}

func (h *Handler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/drive/files", h.ListFiles).Methods("GET")
	router.HandleFunc("/api/drive/files/download", h.DownloadFile).Methods("GET")
	router.HandleFunc("/api/drive/ingest", h.Ingest).Methods("POST")
}

func (h *Handler) ListFiles(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	folderID := query.Get("folderId")

	if folderPath := query.Get("path"); folderPath != "" {
		id, err := h.service.FindFolderByPath(r.Context(), folderPath)
		if err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		folderID = id
	}

	files, err := h.service.ListFiles(r.Context(), folderID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, files)
}

func (h *Handler) DownloadFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.URL.Query().Get("fileId")
	if fileID == "" {
		http.Error(w, "fileId parameter is required", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=export")

	if err := h.service.DownloadFile(r.Context(), fileID, w); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

// Ingest stores either one export (fileId) or the newest exports of a folder (folderId).
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	fileID, folderID := query.Get("fileId"), query.Get("folderId")

	var err error
	var report any
	switch {
	case fileID != "":
		report, err = h.ingestService.IngestFile(r.Context(), fileID)
	case folderID != "":
		report, err = h.ingestService.IngestFolder(r.Context(), folderID)
	default:
		http.Error(w, "fileId or folderId parameter is required", http.StatusBadRequest)
		return
	}

	if err != nil {
		log.Error().Err(err).Str("file_id", fileID).Str("folder_id", folderID).Msg("Drive ingest failed")
		status := http.StatusInternalServerError
		if errors.Is(err, replenishment.ErrEmptySnapshot) {
			status = http.StatusUnprocessableEntity
		}
		http.Error(w, fmt.Sprintf("ingestion failed: %v", err), status)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "success", "report": report})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
