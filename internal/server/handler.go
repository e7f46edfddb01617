package server

import (
	"bufio"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jmerrifield20/synthscan/internal/analysis"
	"github.com/jmerrifield20/synthscan/internal/health"
	"github.com/jmerrifield20/synthscan/internal/media"
	"github.com/jmerrifield20/synthscan/pkg/client"
)

const (
	// multipartOverhead bounds the non-file bytes of an upload request.
	multipartOverhead = 1 << 20
	// sniffLen is how much of an untyped upload is buffered for detection.
	sniffLen = 3072
)

var errMissingUpload = errors.New("missing upload part")

// StatusReporter reports backend reachability. *health.Checker implements it.
type StatusReporter interface {
	Status() health.Status
}

// AnalysisHandler exposes the orchestrator over HTTP.
type AnalysisHandler struct {
	orch   *analysis.Orchestrator
	logger *zap.Logger
}

// NewAnalysisHandler creates a new AnalysisHandler.
func NewAnalysisHandler(orch *analysis.Orchestrator, logger *zap.Logger) *AnalysisHandler {
	return &AnalysisHandler{orch: orch, logger: logger}
}

// Register registers all analysis routes on the given router group.
func (h *AnalysisHandler) Register(rg *gin.RouterGroup) {
	analyses := rg.Group("/analyses")
	{
		analyses.POST("", h.Submit)
		analyses.GET("/current", h.Current)
		analyses.DELETE("/current", h.Reset)
		analyses.GET("/current/events", h.Events)
	}
}

// Submit handles POST /api/v1/analyses. The upload part is streamed and its
// declared type is checked before any content is read.
func (h *AnalysisHandler) Submit(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, media.MaxFileSize+multipartOverhead)

	part, err := uploadPart(c.Request)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(c, media.ReasonTooLarge)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart field \"" + client.FormField + "\""})
		return
	}
	defer part.Close()

	br := bufio.NewReaderSize(part, sniffLen)
	declared := part.Header.Get("Content-Type")
	if needsSniff(declared) {
		// Peek reports short reads as errors; whatever was buffered is enough.
		head, _ := br.Peek(sniffLen)
		declared = media.DetectBytes(head)
	}
	if mt, _, err := mime.ParseMediaType(declared); err == nil {
		declared = mt
	}

	name := part.FileName()
	if verdict := media.Validate(declared, 0); !verdict.Accepted {
		h.logRejection(name, declared, -1, verdict.Reason)
		h.reject(c, verdict.Reason)
		return
	}

	data, err := io.ReadAll(io.LimitReader(br, media.MaxFileSize+1))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.reject(c, media.ReasonTooLarge)
			return
		}
		h.logger.Error("read upload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read upload"})
		return
	}

	f := media.FromBytes(name, declared, data)
	if verdict := media.ValidateFile(f); !verdict.Accepted {
		h.logRejection(f.Name, f.Type, f.Size, verdict.Reason)
		h.reject(c, verdict.Reason)
		return
	}

	id := h.orch.Submit(c.Request.Context(), f)
	c.JSON(http.StatusAccepted, gin.H{
		"submission": id,
		"state":      newStateView(h.orch.State()),
	})
}

// uploadPart returns the first multipart part named client.FormField.
func uploadPart(r *http.Request) (*multipart.Part, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, err
	}
	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, errMissingUpload
			}
			return nil, err
		}
		if part.FormName() == client.FormField {
			return part, nil
		}
		part.Close()
	}
}

func (h *AnalysisHandler) logRejection(name, declaredType string, size int64, reason media.Reason) {
	h.logger.Info("upload rejected",
		zap.String("file", name),
		zap.String("type", declaredType),
		zap.Int64("size", size),
		zap.String("reason", string(reason)),
	)
}

// Current handles GET /api/v1/analyses/current.
func (h *AnalysisHandler) Current(c *gin.Context) {
	c.JSON(http.StatusOK, newStateView(h.orch.State()))
}

// Reset handles DELETE /api/v1/analyses/current.
func (h *AnalysisHandler) Reset(c *gin.Context) {
	h.orch.Reset()
	c.Status(http.StatusNoContent)
}

// Events handles GET /api/v1/analyses/current/events. The current state is
// sent immediately, then one "state" event per transition until the client
// goes away.
func (h *AnalysisHandler) Events(c *gin.Context) {
	ch, cancel := h.orch.Subscribe()
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case s := <-ch:
			c.SSEvent("state", newStateView(s))
			return true
		}
	})
}

func (h *AnalysisHandler) reject(c *gin.Context, reason media.Reason) {
	RecordAdmissionRejection(reason)
	status := http.StatusUnsupportedMediaType
	if reason == media.ReasonTooLarge {
		status = http.StatusRequestEntityTooLarge
	}
	c.JSON(status, gin.H{
		"error":   string(reason),
		"message": reason.Message(),
	})
}

// needsSniff reports whether a part's Content-Type carries no usable type.
func needsSniff(contentType string) bool {
	if contentType == "" {
		return true
	}
	base, _, err := mime.ParseMediaType(contentType)
	return err != nil || base == "application/octet-stream"
}

// healthz reports liveness plus the latest backend probe.
func healthz(checker StatusReporter) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := gin.H{"status": "ok"}
		if checker != nil {
			st := checker.Status()
			body["backend"] = st
			if !st.Healthy {
				body["status"] = "degraded"
			}
		}
		c.JSON(http.StatusOK, body)
	}
}
