package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	corsMethods = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	corsHeaders = "Content-Type, " + RequestIDHeader
	// Clients correlate failures by request id and back off on Retry-After.
	corsExpose = RequestIDHeader + ", Retry-After"
)

// CORS answers cross-origin requests from the POS front-ends. An empty
// origins list allows any origin; otherwise only listed origins get CORS
// headers and their preflights are accepted.
func CORS(origins []string) gin.HandlerFunc {
	permitidos := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		permitidos[o] = struct{}{}
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		permitido := true
		switch {
		case len(permitidos) == 0:
			c.Header("Access-Control-Allow-Origin", "*")
		case origin == "":
			// same-origin or non-browser client
		default:
			c.Header("Vary", "Origin")
			if _, permitido = permitidos[origin]; permitido {
				c.Header("Access-Control-Allow-Origin", origin)
			}
		}
		if permitido && origin != "" {
			c.Header("Access-Control-Allow-Methods", corsMethods)
			c.Header("Access-Control-Allow-Headers", corsHeaders)
			c.Header("Access-Control-Expose-Headers", corsExpose)
		}

		if c.Request.Method == http.MethodOptions {
			if !permitido {
				c.AbortWithStatus(http.StatusForbidden)
				return
			}
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
