package apperr

import "github.com/gin-gonic/gin"

// AbortWithError writes the structured error body and aborts the request.
func AbortWithError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(HTTPStatus(err), ToResponse(err))
}
