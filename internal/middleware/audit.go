package middleware

import (
	"bytes"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/codecraft-ai/codecraft/backend/internal/services"
)

const maxAuditBody = 2000

var sensitiveValue = regexp.MustCompile(`(?i)("(?:password|api_key|apikey|secret|token|vercel_?token)"\s*:\s*)"[^"]*"`)

// AuditLog records write requests (POST/PUT/PATCH/DELETE) to system_logs.
// The project id is taken from the :id route parameter when present.
func AuditLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method == http.MethodGet || method == http.MethodHead || method == http.MethodOptions {
			c.Next()
			return
		}

		var bodySnippet string
		if c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			bodySnippet = string(bodyBytes)
			if len(bodySnippet) > maxAuditBody {
				bodySnippet = bodySnippet[:maxAuditBody] + "...[truncated]"
			}
			bodySnippet = maskSensitiveFields(bodySnippet)
		}

		c.Next()

		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		entry := services.AuditEntry{
			Module:    module,
			Action:    action,
			Message:   formatAuditMessage(GetEmail(c), method, c.Request.URL.Path, status),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Extra: map[string]interface{}{
				"method": method,
				"path":   c.Request.URL.Path,
				"status": status,
				"body":   bodySnippet,
			},
		}
		if id := GetUserID(c); id > 0 {
			entry.UserID = &id
		}
		if raw := c.Param("id"); raw != "" {
			if id, err := strconv.ParseUint(raw, 10, 64); err == nil {
				pid := uint(id)
				entry.ProjectID = &pid
			}
		}

		if status >= 400 {
			services.LogWarning(entry)
			return
		}
		services.LogInfo(entry)
	}
}

// parseRouteInfo maps a route pattern to a module and action,
// e.g. "/api/projects/:id/members" + "POST" gives ("projects", "create").
func parseRouteInfo(fullPath, method string) (module, action string) {
	path := strings.TrimPrefix(fullPath, "/api/")
	module = strings.SplitN(path, "/", 2)[0]
	if module == "" {
		module = "unknown"
	}

	switch method {
	case http.MethodPost:
		action = "create"
	case http.MethodPut, http.MethodPatch:
		action = "update"
	case http.MethodDelete:
		action = "delete"
	default:
		action = strings.ToLower(method)
	}
	return module, action
}

func formatAuditMessage(email, method, path string, status int) string {
	outcome := "OK"
	if status < 200 || status >= 300 {
		outcome = "Failed"
	}
	if email == "" {
		email = "anonymous"
	}
	return email + " " + method + " " + path + " -> " + outcome
}

// maskSensitiveFields blanks credential values in a JSON body.
func maskSensitiveFields(body string) string {
	return sensitiveValue.ReplaceAllString(body, `$1"***"`)
}
