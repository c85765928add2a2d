package handler

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ZAX3000/mailtrace/internal/api/middleware"
	"github.com/ZAX3000/mailtrace/internal/jobs"
	"github.com/ZAX3000/mailtrace/internal/service"
)

// maxCSVSize caps a single uploaded CSV at 50 MB.
const maxCSVSize = 50 << 20

// MatchHandler handles the asynchronous matching endpoints.
type MatchHandler struct {
	svc *service.MatchService
}

// NewMatchHandler creates a new match handler.
func NewMatchHandler(svc *service.MatchService) *MatchHandler {
	return &MatchHandler{svc: svc}
}

// Start accepts multipart `mail_csv` and `crm_csv` uploads and launches a
// matching job. Responds with the job id to poll.
func (h *MatchHandler) Start(c *gin.Context) {
	mailCSV, err := readUpload(c, "mail_csv")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	crmCSV, err := readUpload(c, "crm_csv")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	jobID, err := h.svc.StartMatch(c.Request.Context(), mailCSV, crmCSV)
	if err != nil {
		middleware.GetLogger(c).WithError(err).Warn("Failed to start matching job")
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "job_id": jobID})
}

// Progress returns the current progress snapshot for a job.
func (h *MatchHandler) Progress(c *gin.Context) {
	jobID := c.Query("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "job_id is required"})
		return
	}

	snap, err := h.svc.Progress(jobID)
	if err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, snap)
}

// Result returns the finished job's report, or 202 while the job is still
// running.
func (h *MatchHandler) Result(c *gin.Context) {
	jobID := c.Query("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "job_id is required"})
		return
	}

	report, err := h.svc.Result(jobID)
	if err != nil {
		switch {
		case errors.Is(err, jobs.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "job not found"})
		case errors.Is(err, service.ErrStillRunning):
			c.JSON(http.StatusAccepted, gin.H{"ok": false, "error": "job still running"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

// Cancel requests cooperative cancellation of a running job.
func (h *MatchHandler) Cancel(c *gin.Context) {
	jobID := c.Query("job_id")
	if jobID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "job_id is required"})
		return
	}

	if err := h.svc.Cancel(jobID); err != nil {
		if errors.Is(err, jobs.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "job not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func readUpload(c *gin.Context, field string) ([]byte, error) {
	fileHeader, err := c.FormFile(field)
	if err != nil {
		return nil, errors.New(field + " file is required")
	}
	if fileHeader.Size > maxCSVSize {
		return nil, errors.New(field + " exceeds the 50MB limit")
	}
	file, err := fileHeader.Open()
	if err != nil {
		return nil, errors.New("failed to open " + field)
	}
	defer func(f multipart.File) { _ = f.Close() }(file)

	data, err := io.ReadAll(io.LimitReader(file, maxCSVSize+1))
	if err != nil {
		return nil, errors.New("failed to read " + field)
	}
	if len(data) == 0 {
		return nil, errors.New(field + " is empty")
	}
	return data, nil
}
