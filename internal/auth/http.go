package auth

import (
	"net/http"

	"github.com/abduss/mediavault/internal/apperr"
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts the login endpoint under /auth.
func RegisterRoutes(router *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	router.POST("/auth/login", handler.login)
}

// RegisterAdminRoutes mounts user-management endpoints. The group must
// already enforce the admin role.
func RegisterAdminRoutes(group *gin.RouterGroup, service *Service) {
	handler := &httpHandler{service: service}
	group.POST("/users", handler.createUser)
	group.GET("/users", handler.listUsers)
}

type httpHandler struct {
	service *Service
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
}

type userResponse struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

func (h *httpHandler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.service.Login(c.Request.Context(), LoginInput{
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		apperr.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user": userResponse{
			ID:    result.User.ID.String(),
			Email: result.User.Email,
			Role:  result.User.Role,
		},
		"token": gin.H{
			"access_token": result.Token.AccessToken,
			"expires_at":   result.Token.ExpiresAt.Unix(),
		},
	})
}

type createUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8,max=72"`
	Role     string `json:"role" binding:"omitempty,oneof=user admin"`
}

func (h *httpHandler) createUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.service.CreateUser(c.Request.Context(), CreateUserInput{
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		apperr.AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, userResponse{
		ID:    user.ID.String(),
		Email: user.Email,
		Role:  user.Role,
	})
}

func (h *httpHandler) listUsers(c *gin.Context) {
	users, err := h.service.ListUsers(c.Request.Context())
	if err != nil {
		apperr.AbortWithError(c, err)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, user := range users {
		out = append(out, userResponse{
			ID:    user.ID.String(),
			Email: user.Email,
			Role:  user.Role,
		})
	}
	c.JSON(http.StatusOK, gin.H{"users": out})
}
