package export

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/abduss/mediavault/internal/access"
	"github.com/abduss/mediavault/internal/apperr"
	"github.com/abduss/mediavault/internal/metrics"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the archive export endpoint.
func RegisterRoutes(group *gin.RouterGroup, pipeline *Pipeline) {
	handler := &httpHandler{pipeline: pipeline}
	group.POST("/buckets/:bucketName/export", handler.export)
}

type httpHandler struct {
	pipeline *Pipeline
}

type exportRequest struct {
	IDs []string `json:"ids"`
}

func (h *httpHandler) export(c *gin.Context) {
	caller, ok := access.CurrentCaller(c)
	if !ok {
		apperr.AbortWithError(c, apperr.New(apperr.KindUnauthorized, "missing caller"))
		return
	}
	bucketName := c.Param("bucketName")

	var req exportRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.Header("Content-Type", "application/zip")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", bucketName+".zip"))

	started := time.Now()
	err := h.pipeline.Export(c.Request.Context(), caller, bucketName, req.IDs, c.Writer)
	metrics.ExportDuration.Observe(time.Since(started).Seconds())

	if err != nil {
		metrics.ExportsTotal.WithLabelValues("error").Inc()
		// selection and grant failures are caught before the first archive
		// byte is written, so a JSON error body is still possible here
		if !c.Writer.Written() {
			c.Header("Content-Type", "application/json")
			c.Header("Content-Disposition", "")
			apperr.AbortWithError(c, err)
			return
		}
		// mid-stream failure: archive bytes are already on the wire, so
		// sever the connection; a truncated archive must not terminate as
		// a clean 200 response
		_ = c.Error(err)
		panic(http.ErrAbortHandler)
	}

	metrics.ExportsTotal.WithLabelValues("ok").Inc()
}
