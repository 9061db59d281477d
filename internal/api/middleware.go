package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"farm-alert-service/internal/logging"
)

const (
	farmerHeader = "X-Farmer-ID"
	farmerKey    = "farmer_id"
)

func RequestLoggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		method := c.Request.Method
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		logger.Infof("Request: %s %s, Status: %d, Latency: %v", method, path, status, latency)
	}
}

// FarmerIdentity reads the caller's farmer id, set by the upstream auth layer, and
// rejects requests without one.
func FarmerIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseInt(c.GetHeader(farmerHeader), 10, 64)
		if err != nil || id <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Missing or invalid " + farmerHeader})
			return
		}
		c.Set(farmerKey, id)
		c.Next()
	}
}

func farmerID(c *gin.Context) int64 {
	return c.GetInt64(farmerKey)
}
