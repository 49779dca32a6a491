package internal

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RegisterRoutes registers the dashboard page and API endpoints.
func RegisterRoutes(r *gin.Engine, d *Dashboard, configPath string) {
	r.Use(requestLogger())

	r.GET("/", dashboardPageHandler(d))
	r.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/api/auth", authHandler(d))

	// Routes below require a live proxy session.
	authed := r.Group("/", requireSession(d))
	authed.GET("/api/collections/:entity", collectionHandler(d))
	authed.GET("/api/calendar/movies", movieCalendarHandler(d))
	authed.GET("/api/settings/proxy", GetProxySettingsHandler(d))
	authed.POST("/api/settings/proxy", SaveProxySettingsHandler(d, configPath))
	authed.GET("/ws/updates", func(c *gin.Context) {
		d.Hub.Serve(c.Writer, c.Request, d.Snapshot())
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// requireSession aborts with 401 unless the proxy accepts the visitor's session.
func requireSession(d *Dashboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !d.Gate.HasAuth(requestContext(c)) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": ErrUnauthorized.Error()})
			return
		}
		c.Next()
	}
}

// requestLogger tags each request with an id and logs API calls.
func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderRequestID, id)
		c.Set("requestID", id)
		c.Next()
		if !strings.HasPrefix(c.Request.URL.Path, "/metrics") {
			DashLog(INFO, "API", "%s %s %d [%s]", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), id)
		}
	}
}
