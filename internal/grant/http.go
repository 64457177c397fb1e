package grant

import (
	"net/http"

	"github.com/abduss/mediavault/internal/apperr"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// RegisterAdminRoutes mounts grant management endpoints. The group must
// already enforce the admin role.
func RegisterAdminRoutes(group *gin.RouterGroup, repo *Repository) {
	handler := &httpHandler{repo: repo}
	group.POST("/grants", handler.grant)
	group.DELETE("/grants", handler.revoke)
	group.GET("/buckets/:bucketName/grants", handler.listBucketGrants)
}

type httpHandler struct {
	repo *Repository
}

type grantRequest struct {
	UserID     string `json:"user_id" binding:"required,uuid"`
	BucketName string `json:"bucket_name" binding:"required"`
}

func (h *httpHandler) grant(c *gin.Context) {
	h.apply(c, CommandGrant, http.StatusCreated)
}

func (h *httpHandler) revoke(c *gin.Context) {
	h.apply(c, CommandRevoke, http.StatusNoContent)
}

func (h *httpHandler) apply(c *gin.Context, kind CommandKind, successStatus int) {
	var req grantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	err = h.repo.Apply(c.Request.Context(), []Command{
		{Kind: kind, UserID: userID, BucketName: req.BucketName},
	})
	if err != nil {
		apperr.AbortWithError(c, err)
		return
	}

	c.Status(successStatus)
}

func (h *httpHandler) listBucketGrants(c *gin.Context) {
	users, err := h.repo.ListUsersForBucket(c.Request.Context(), c.Param("bucketName"))
	if err != nil {
		apperr.AbortWithError(c, err)
		return
	}

	ids := make([]string, 0, len(users))
	for _, id := range users {
		ids = append(ids, id.String())
	}
	c.JSON(http.StatusOK, gin.H{"user_ids": ids})
}
