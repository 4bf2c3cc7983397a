package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/andresuchdata/pantrywise/backend-go/internal/ingest"
	"github.com/andresuchdata/pantrywise/backend-go/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

type IngestHandler struct {
	service   *service.IngestService
	uploadDir string
}

// NewIngestHandler keeps a copy of every accepted upload under uploadDir
// when it is not empty.
func NewIngestHandler(svc *service.IngestService, uploadDir string) *IngestHandler {
	return &IngestHandler{service: svc, uploadDir: uploadDir}
}

type uploadResult struct {
	File   string                `json:"file"`
	Result *service.IngestResult `json:"result,omitempty"`
	Error  string                `json:"error,omitempty"`
}

// Upload imports the CSV/XLSX files of a multipart form into the tenant's history.
func (h *IngestHandler) Upload(c *gin.Context) {
	kind, err := ingest.ParseKind(c.Query("kind"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid kind", "details": err.Error()})
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid form data"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no files provided"})
		return
	}

	results := make([]uploadResult, 0, len(files))
	imported := 0
	for _, file := range files {
		res := uploadResult{File: file.Filename}

		format, err := ingest.DetectFormat(file.Filename)
		if err != nil {
			res.Error = err.Error()
			results = append(results, res)
			continue
		}

		f, err := file.Open()
		if err != nil {
			log.Error().Err(err).Str("filename", file.Filename).Msg("failed to open uploaded file")
			res.Error = err.Error()
			results = append(results, res)
			continue
		}
		res.Result, err = h.service.Import(c.Request.Context(), c.Param("tenant"), kind, format, file.Filename, f)
		f.Close()
		if err != nil {
			if errors.Is(err, service.ErrTenantRequired) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "tenant is required"})
				return
			}
			res.Error = err.Error()
		} else {
			imported++
			if h.uploadDir != "" {
				dst := filepath.Join(h.uploadDir, filepath.Base(c.Param("tenant")),
					fmt.Sprintf("%s_%s", time.Now().UTC().Format("20060102T150405"), filepath.Base(file.Filename)))
				if err := c.SaveUploadedFile(file, dst); err != nil {
					log.Warn().Err(err).Str("filename", file.Filename).Msg("failed to archive upload")
				}
			}
		}
		results = append(results, res)
	}

	status := http.StatusOK
	if imported == 0 {
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{
		"imported": imported,
		"files":    results,
	})
}
