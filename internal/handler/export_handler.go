package handler

import (
	"net/http"
	"os"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-space-scheduler/pkg/response"
	"github.com/noah-isme/sma-space-scheduler/pkg/storage"
)

type exportOpener interface {
	Open(token string) (*os.File, storage.Ref, error)
}

// ExportHandler streams rendered exports behind signed tokens.
type ExportHandler struct {
	exports exportOpener
}

// NewExportHandler constructs the handler.
func NewExportHandler(exports exportOpener) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Download godoc
// @Summary Download a rendered export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	file, ref, err := h.exports.Open(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	contentType := ref.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	info, err := file.Stat()
	if err != nil {
		response.Error(c, err)
		return
	}
	c.DataFromReader(http.StatusOK, info.Size(), contentType, file, map[string]string{
		"Content-Disposition": "attachment; filename=\"" + filepath.Base(ref.Path) + "\"",
		"Cache-Control":       "no-store",
	})
}
