package resource

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/abduss/mediavault/internal/access"
	"github.com/abduss/mediavault/internal/apperr"
	"github.com/abduss/mediavault/internal/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterRoutes mounts resource operations under the provided router group.
func RegisterRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/buckets/:bucketName/resources", handler.upload)
	group.GET("/buckets/:bucketName/resources", handler.listMetadata)
	group.GET("/buckets/:bucketName/resources/ids", handler.listIDs)
	group.GET("/buckets/:bucketName/resources/:resourceID/exists", handler.exists)
	group.GET("/buckets/:bucketName/resources/:resourceID/download", handler.download)
	group.PUT("/buckets/:bucketName/resources/:resourceID", handler.rename)
	group.DELETE("/buckets/:bucketName/resources/:resourceID", handler.delete)
}

type httpHandler struct {
	service *Service
}

// upload accepts one or more multipart file parts and stores each as a new
// resource. Success and failure apply to the batch as a whole.
func (h *httpHandler) upload(c *gin.Context) {
	caller, ok := access.CurrentCaller(c)
	if !ok {
		apperr.AbortWithError(c, apperr.New(apperr.KindUnauthorized, "missing caller"))
		return
	}
	bucketName := c.Param("bucketName")

	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart form required"})
		return
	}

	files := form.File["files"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one file part named 'files' is required"})
		return
	}

	type uploaded struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	results := make([]uploaded, 0, len(files))

	for _, fileHeader := range files {
		content, err := fileHeader.Open()
		if err != nil {
			apperr.AbortWithError(c, apperr.Wrap(apperr.KindStore, "open upload part", err))
			return
		}

		resourceID := uuid.NewString()
		contentType := fileHeader.Header.Get("Content-Type")
		if contentType == "" {
			contentType = "application/octet-stream"
		}

		err = h.service.Upload(c.Request.Context(), caller, bucketName,
			resourceID, fileHeader.Filename, content, fileHeader.Size, contentType)
		content.Close()
		if err != nil {
			apperr.AbortWithError(c, err)
			return
		}

		metrics.UploadsTotal.Inc()
		results = append(results, uploaded{ID: resourceID, Name: fileHeader.Filename})
	}

	c.JSON(http.StatusCreated, gin.H{"uploaded": results})
}

func (h *httpHandler) listMetadata(c *gin.Context) {
	caller, ok := access.CurrentCaller(c)
	if !ok {
		apperr.AbortWithError(c, apperr.New(apperr.KindUnauthorized, "missing caller"))
		return
	}

	page, err := strconv.Atoi(c.DefaultQuery("page", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page"})
		return
	}
	pageSize, err := strconv.Atoi(c.DefaultQuery("page_size", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid page_size"})
		return
	}

	result, err := h.service.ListMetadata(c.Request.Context(), caller, c.Param("bucketName"), page, pageSize)
	if err != nil {
		apperr.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (h *httpHandler) listIDs(c *gin.Context) {
	caller, ok := access.CurrentCaller(c)
	if !ok {
		apperr.AbortWithError(c, apperr.New(apperr.KindUnauthorized, "missing caller"))
		return
	}

	ids, err := h.service.ListIDs(c.Request.Context(), caller, c.Param("bucketName"))
	if err != nil {
		apperr.AbortWithError(c, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}

	c.JSON(http.StatusOK, gin.H{"ids": ids})
}

func (h *httpHandler) exists(c *gin.Context) {
	caller, ok := access.CurrentCaller(c)
	if !ok {
		apperr.AbortWithError(c, apperr.New(apperr.KindUnauthorized, "missing caller"))
		return
	}

	exists, err := h.service.Exists(c.Request.Context(), caller, c.Param("bucketName"), c.Param("resourceID"))
	if err != nil {
		apperr.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

func (h *httpHandler) download(c *gin.Context) {
	caller, ok := access.CurrentCaller(c)
	if !ok {
		apperr.AbortWithError(c, apperr.New(apperr.KindUnauthorized, "missing caller"))
		return
	}

	res, err := h.service.Download(c.Request.Context(), caller, c.Param("bucketName"), c.Param("resourceID"))
	if err != nil {
		apperr.AbortWithError(c, err)
		return
	}
	defer res.Data.Close()

	metrics.DownloadsTotal.Inc()

	c.Header("Content-Type", res.ContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", res.Name))
	c.Header("Content-Length", strconv.FormatInt(res.ContentSize, 10))

	if _, err := io.Copy(c.Writer, res.Data); err != nil {
		c.Status(http.StatusInternalServerError)
		return
	}
}

type renameRequest struct {
	NewID   string `json:"new_id" binding:"required"`
	NewName string `json:"new_name" binding:"required"`
}

func (h *httpHandler) rename(c *gin.Context) {
	caller, ok := access.CurrentCaller(c)
	if !ok {
		apperr.AbortWithError(c, apperr.New(apperr.KindUnauthorized, "missing caller"))
		return
	}

	var req renameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.service.Rename(c.Request.Context(), caller, c.Param("bucketName"),
		c.Param("resourceID"), req.NewID, req.NewName)
	if err != nil {
		apperr.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"id": req.NewID, "name": req.NewName})
}

func (h *httpHandler) delete(c *gin.Context) {
	caller, ok := access.CurrentCaller(c)
	if !ok {
		apperr.AbortWithError(c, apperr.New(apperr.KindUnauthorized, "missing caller"))
		return
	}

	err := h.service.Delete(c.Request.Context(), caller, c.Param("bucketName"), c.Param("resourceID"))
	if err != nil {
		apperr.AbortWithError(c, err)
		return
	}

	metrics.DeletesTotal.Inc()
	c.Status(http.StatusNoContent)
}
