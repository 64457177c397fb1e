package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Recovery converts handler panics into 500 responses. http.ErrAbortHandler
// is re-raised instead, so net/http severs the connection without writing a
// terminal chunk: clients of an aborted streaming response see a transport
// error, not a clean body.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		if recovered == http.ErrAbortHandler {
			panic(recovered)
		}
		c.AbortWithStatus(http.StatusInternalServerError)
	})
}
