package internal

import (
	"bytes"
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

// requestContext carries the visitor's cookies into proxy calls.
func requestContext(c *gin.Context) context.Context {
	return WithSessionCookies(c.Request.Context(), c.Request.Cookies())
}

func dashboardPageHandler(d *Dashboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		act, data, _, err := d.BuildPage(requestContext(c))
		if err != nil {
			DashLog(ERROR, "Dashboard", "Unable to load page shell: %v", err)
			var buf bytes.Buffer
			_ = RenderFatal(&buf, "The page could not be loaded. See the server log for details.")
			c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", buf.Bytes())
			return
		}
		var buf bytes.Buffer
		if err := RenderPage(&buf, act.Template, data); err != nil {
			DashLog(ERROR, "Dashboard", "Unable to render page: %v", err)
			buf.Reset()
			_ = RenderFatal(&buf, "The page could not be rendered.")
			c.Data(http.StatusInternalServerError, "text/html; charset=utf-8", buf.Bytes())
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
	}
}

func authHandler(d *Dashboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		respondJSON(c, http.StatusOK, gin.H{"loggedIn": d.Gate.HasAuth(requestContext(c))})
	}
}

func collectionHandler(d *Dashboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		entity := EntityType(c.Param("entity"))
		res, err := d.Cache.GetCollection(requestContext(c), entity)
		if err != nil {
			respondError(c, statusForError(err), err.Error())
			return
		}
		respondJSON(c, http.StatusOK, gin.H{"items": res.Payload, "fetchedAt": res.FetchedAtEpochMillis()})
	}
}

func movieCalendarHandler(d *Dashboard) gin.HandlerFunc {
	return func(c *gin.Context) {
		items, err := d.MovieCalendar(requestContext(c), c.Query("start"), c.Query("end"))
		if err != nil {
			respondError(c, statusForError(err), err.Error())
			return
		}
		respondJSON(c, http.StatusOK, gin.H{"items": items})
	}
}

// statusForError maps the error taxonomy onto HTTP statuses.
func statusForError(err error) int {
	var remote *RemoteError
	switch {
	case errors.Is(err, ErrInvalidArguments):
		return http.StatusBadRequest
	case errors.Is(err, ErrUnknownCollection):
		return http.StatusNotFound
	case errors.Is(err, ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.As(err, &remote),
		errors.Is(err, ErrTransport),
		errors.Is(err, ErrParse),
		errors.Is(err, ErrInvalidEnvelope):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondError is a helper for Gin error responses
func respondError(c *gin.Context, code int, msg string) {
	c.JSON(code, gin.H{"error": msg})
}

// respondJSON is a helper for Gin JSON responses
func respondJSON(c *gin.Context, code int, obj interface{}) {
	c.JSON(code, obj)
}
