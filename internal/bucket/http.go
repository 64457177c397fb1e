package bucket

import (
	"context"
	"net/http"

	"github.com/abduss/mediavault/internal/access"
	"github.com/abduss/mediavault/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type grantLister interface {
	ListBucketsForUser(ctx context.Context, userID uuid.UUID) ([]string, error)
}

// RegisterRoutes mounts bucket listing for authenticated callers and
// lifecycle endpoints on the admin group.
func RegisterRoutes(group *gin.RouterGroup, adminGroup *gin.RouterGroup, manager *Manager, grants grantLister) {
	handler := &httpHandler{manager: manager, grants: grants}
	group.GET("/buckets", handler.listBuckets)
	adminGroup.POST("/buckets", handler.createBucket)
	adminGroup.DELETE("/buckets/:bucketName", handler.deleteBucket)
}

type httpHandler struct {
	manager *Manager
	grants  grantLister
}

type createBucketRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *httpHandler) createBucket(c *gin.Context) {
	var req createBucketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.manager.Create(c.Request.Context(), req.Name); err != nil {
		apperr.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"name":     req.Name,
		"previews": PreviewsName(req.Name),
	})
}

func (h *httpHandler) deleteBucket(c *gin.Context) {
	if err := h.manager.Delete(c.Request.Context(), c.Param("bucketName")); err != nil {
		apperr.AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// listBuckets returns the caller's granted buckets; admins see every main
// bucket in the store.
func (h *httpHandler) listBuckets(c *gin.Context) {
	caller, ok := access.CurrentCaller(c)
	if !ok {
		apperr.AbortWithError(c, apperr.New(apperr.KindUnauthorized, "missing caller"))
		return
	}

	if caller.IsAdmin() {
		names, err := h.manager.ListGrantable(c.Request.Context())
		if err != nil {
			apperr.AbortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"buckets": names})
		return
	}

	userID, err := uuid.Parse(caller.UserID)
	if err != nil {
		apperr.AbortWithError(c, apperr.New(apperr.KindUnauthorized, "invalid subject identifier"))
		return
	}

	names, err := h.grants.ListBucketsForUser(c.Request.Context(), userID)
	if err != nil {
		apperr.AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buckets": names})
}
