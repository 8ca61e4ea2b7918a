package handler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	"github.com/kart-io/docqa/internal/docqa/biz"
	"github.com/kart-io/docqa/internal/model"
	"github.com/kart-io/docqa/internal/pkg/httputils"
	"github.com/kart-io/docqa/pkg/utils/errors"
)

// IngestionHandler handles document upload and ingestion requests.
type IngestionHandler struct {
	service biz.Service
	dataDir string
}

// NewIngestionHandler creates a new IngestionHandler.
func NewIngestionHandler(service biz.Service, dataDir string) *IngestionHandler {
	return &IngestionHandler{
		service: service,
		dataDir: dataDir,
	}
}

// Upload accepts multipart document uploads, saves them to the raw data
// directory, and runs one ingestion pass over everything pending.
//
// POST /api/ingestion
func (h *IngestionHandler) Upload(c *gin.Context) {
	form, err := c.MultipartForm()
	if err != nil {
		httputils.WriteResponse(c, errors.ErrUploadFailed.WithCause(err), nil)
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		httputils.WriteResponse(c, errors.ErrInvalidParam.WithMessage("no files provided"), nil)
		return
	}

	// 先校验全部文件类型，再落盘，避免部分写入
	for _, fh := range files {
		ext := strings.ToLower(filepath.Ext(fh.Filename))
		if _, ok := model.FileTypeFromExt(ext); !ok {
			httputils.WriteResponse(c, errors.ErrInvalidParam.WithMessage(
				fmt.Sprintf("unsupported file type %q, allowed: .pdf, .docx, .txt", ext)), nil)
			return
		}
	}

	if err := os.MkdirAll(h.dataDir, 0o755); err != nil {
		httputils.WriteResponse(c, errors.ErrUploadFailed.WithCause(err), nil)
		return
	}

	for _, fh := range files {
		dst := filepath.Join(h.dataDir, filepath.Base(fh.Filename))
		if err := c.SaveUploadedFile(fh, dst); err != nil {
			httputils.WriteResponse(c, errors.ErrUploadFailed.WithCause(err), nil)
			return
		}
		logger.Infof("saved uploaded file %s (%d bytes)", dst, fh.Size)
	}

	outcome, err := h.service.Ingest(c.Request.Context())
	if err != nil {
		httputils.WriteResponse(c, errors.ErrIngestionFailed.WithCause(err), nil)
		return
	}
	httputils.WriteResponse(c, nil, outcome)
}

// Ingest runs one ingestion pass over files already in the data directory.
//
// POST /api/ingestion/run
func (h *IngestionHandler) Ingest(c *gin.Context) {
	outcome, err := h.service.Ingest(c.Request.Context())
	if err != nil {
		httputils.WriteResponse(c, errors.ErrIngestionFailed.WithCause(err), nil)
		return
	}
	httputils.WriteResponse(c, nil, outcome)
}

// Stats reports index and data directory statistics.
//
// GET /api/stats
func (h *IngestionHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		httputils.WriteResponse(c, errors.ErrVectorStore.WithCause(err), nil)
		return
	}
	httputils.WriteResponse(c, nil, stats)
}
