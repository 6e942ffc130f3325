package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"

	"ragdesk/internal/console"
	"ragdesk/internal/model"
	"ragdesk/internal/transport/http/middleware"
	"ragdesk/internal/transport/http/response"
)

const uploadField = "files"

type IngestionLister interface {
	ListRecent(ctx context.Context, limit int) ([]model.IngestionRecord, error)
}

type UploadLimits struct {
	MaxFiles     int
	MaxFileBytes int64
}

type AdminHandler struct {
	consoles   *console.Registry
	ingestions IngestionLister
	limits     UploadLimits
}

func NewAdminHandler(consoles *console.Registry, ingestions IngestionLister, limits UploadLimits) *AdminHandler {
	return &AdminHandler{consoles: consoles, ingestions: ingestions, limits: limits}
}

// Show is the admin view entry; it refreshes the index status before
// rendering.
func (h *AdminHandler) Show(c *gin.Context) {
	decision, ok := middleware.DecisionFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "identity not resolved")
		return
	}
	con, ok := h.consoles.Enter(context.WithoutCancel(c.Request.Context()), decision, console.ViewAdmin)
	if !ok {
		response.Error(c, http.StatusForbidden, response.CodeForbidden, "access denied")
		return
	}
	response.OK(c, con.Ingest.Snapshot())
}

// SelectFiles replaces the pending selection with the multipart "files"
// parts of the request. A request without parts clears it.
func (h *AdminHandler) SelectFiles(c *gin.Context) {
	con, ok := middleware.ConsoleFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "console not resolved")
		return
	}

	var headers []*multipart.FileHeader
	if form, err := c.MultipartForm(); err == nil {
		headers = form.File[uploadField]
	} else if !errors.Is(err, http.ErrNotMultipart) {
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid multipart form")
		return
	}

	if len(headers) > h.limits.MaxFiles {
		response.Error(c, http.StatusBadRequest, response.CodeTooManyFiles,
			fmt.Sprintf("too many files (max %d)", h.limits.MaxFiles))
		return
	}

	files := make([]console.File, 0, len(headers))
	for _, fh := range headers {
		if fh.Size > h.limits.MaxFileBytes {
			response.Error(c, http.StatusBadRequest, response.CodeFileTooLarge,
				fmt.Sprintf("%s is too large (max %d bytes)", filepath.Base(fh.Filename), h.limits.MaxFileBytes))
			return
		}
		f, err := readFileHeader(fh)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "failed to read file")
			return
		}
		files = append(files, f)
	}

	con.Ingest.SelectFiles(files)
	response.OK(c, con.Ingest.Snapshot())
}

// Upload submits the current selection and blocks until the outcome is
// applied. A dropped submission answers with accepted=false.
func (h *AdminHandler) Upload(c *gin.Context) {
	con, ok := middleware.ConsoleFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "console not resolved")
		return
	}

	accepted := con.Ingest.SubmitBatch(context.WithoutCancel(c.Request.Context()))
	response.OK(c, gin.H{
		"accepted": accepted,
		"admin":    con.Ingest.Snapshot(),
	})
}

func (h *AdminHandler) RefreshStatus(c *gin.Context) {
	con, ok := middleware.ConsoleFrom(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, response.CodeUnauthorized, "console not resolved")
		return
	}

	con.Ingest.FetchStatus(context.WithoutCancel(c.Request.Context()))
	response.OK(c, con.Ingest.Snapshot())
}

func (h *AdminHandler) ListIngestions(c *gin.Context) {
	limit := 50
	if raw := c.Query("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}

	records, err := h.ingestions.ListRecent(c.Request.Context(), limit)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "list ingestions failed")
		return
	}
	response.OK(c, records)
}

func readFileHeader(fh *multipart.FileHeader) (console.File, error) {
	src, err := fh.Open()
	if err != nil {
		return console.File{}, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return console.File{}, err
	}
	return console.File{
		Name:        filepath.Base(fh.Filename),
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}
