package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/sma-booking-api/internal/models"
	"github.com/noah-isme/sma-booking-api/internal/service"
)

// RequestMeta stores the caller's address and user agent on the request context
// so audit entries written by the services can carry them.
func RequestMeta() gin.HandlerFunc {
	return func(c *gin.Context) {
		meta := models.RequestMeta{IP: c.ClientIP(), UserAgent: c.Request.UserAgent()}
		c.Request = c.Request.WithContext(service.WithRequestMeta(c.Request.Context(), meta))
		c.Next()
	}
}
