package handler

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/stemsi/enroll-web/internal/middleware"
)

// render executes an HTML page with the values every layout needs:
// the page title, the logged-in student and the pending flash messages.
func render(c *gin.Context, status int, page, title string, data gin.H) {
	if data == nil {
		data = gin.H{}
	}
	data["Title"] = title
	data["Student"] = middleware.CurrentStudent(c)
	data["Flashes"] = middleware.Flashes(c)
	c.HTML(status, page, data)
}

// renderError shows the generic error page.
func renderError(c *gin.Context, status int, message string) {
	render(c, status, "error.html", http.StatusText(status), gin.H{"Message": message})
}

// redirect issues a 303 so that POST handlers land on a GET.
func redirect(c *gin.Context, location string) {
	c.Redirect(http.StatusSeeOther, location)
}

// paramID parses a positive integer path parameter.
func paramID(c *gin.Context, name string) (int, bool) {
	id, err := strconv.Atoi(c.Param(name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// safeNext returns next when it is a local absolute path, otherwise fallback.
func safeNext(next, fallback string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return fallback
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return next
}
