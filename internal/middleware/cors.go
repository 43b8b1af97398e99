package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// CORS responde los preflight y expone X-Request-ID al frontend del
// concesionario. El origen permitido se deja abierto porque la API vive
// detrás del mismo reverse proxy que sirve el frontend.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
		h.Set("Access-Control-Expose-Headers", "X-Request-ID")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
