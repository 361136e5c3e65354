package middleware

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/equipdesk/backend/internal/services"
	"github.com/gin-gonic/gin"
)

const maxAuditBody = 2000

// truncateBody caps s at maxAuditBody bytes without splitting a UTF-8 sequence.
func truncateBody(s string) string {
	if len(s) <= maxAuditBody {
		return s
	}
	n := maxAuditBody
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "...[truncated]"
}

var sensitiveKeys = map[string]bool{
	"password":      true,
	"secret":        true,
	"token":         true,
	"access_token":  true,
	"refresh_token": true,
	"accesstoken":   true,
	"refreshtoken":  true,
}

// AuditLog records write operations (POST/PUT/PATCH/DELETE) to system_logs
// once the handler has finished.
func AuditLog(syslog *services.SystemLogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		method := c.Request.Method
		if method != "POST" && method != "PUT" && method != "PATCH" && method != "DELETE" {
			c.Next()
			return
		}

		var body string
		if c.Request.Body != nil {
			bodyBytes, _ := io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))
			body = maskSensitiveFields(bodyBytes)
			body = truncateBody(body)
		}

		c.Next()

		userID := GetUserID(c)
		var uid *uint
		if userID > 0 {
			uid = &userID
		}
		status := c.Writer.Status()
		module, action := parseRouteInfo(c.FullPath(), method)

		syslog.Info(c.Request.Context(), services.LogEntry{
			Module:    module,
			Action:    action,
			Message:   formatAuditMessage(userID, method, c.Request.URL.Path, status),
			UserID:    uid,
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			RequestID: GetRequestID(c),
			Extra: map[string]interface{}{
				"method": method,
				"path":   c.Request.URL.Path,
				"status": status,
				"body":   body,
				"audit":  true,
			},
		})
	}
}

// parseRouteInfo extracts module and action from a Gin route pattern.
// e.g. "/hospitals/create" + "POST" -> module="hospitals", action="create"
func parseRouteInfo(fullPath, method string) (module, action string) {
	parts := strings.SplitN(strings.TrimPrefix(fullPath, "/"), "/", 2)
	module = parts[0]
	if module == "" {
		module = "unknown"
	}

	switch method {
	case "POST":
		action = "create"
	case "PUT", "PATCH":
		action = "update"
	case "DELETE":
		action = "delete"
	default:
		action = strings.ToLower(method)
	}
	return module, action
}

func formatAuditMessage(userID uint, method, path string, status int) string {
	outcome := "failed"
	if status >= 200 && status < 300 {
		outcome = "ok"
	}
	return fmt.Sprintf("[audit] user %d %s %s -> %d %s", userID, method, path, status, outcome)
}

// maskSensitiveFields replaces sensitive string values in a JSON object body.
// Bodies that are not JSON objects are dropped rather than logged verbatim.
func maskSensitiveFields(body []byte) string {
	if len(bytes.TrimSpace(body)) == 0 {
		return ""
	}
	var doc map[string]interface{}
	if err := json.Unmarshal(body, &doc); err != nil {
		return "[unparsed body omitted]"
	}
	maskMap(doc)
	out, err := json.Marshal(doc)
	if err != nil {
		return ""
	}
	return string(out)
}

func maskMap(m map[string]interface{}) {
	for k, v := range m {
		if sensitiveKeys[strings.ToLower(k)] {
			m[k] = "***"
			continue
		}
		switch val := v.(type) {
		case map[string]interface{}:
			maskMap(val)
		case []interface{}:
			for _, item := range val {
				if nested, ok := item.(map[string]interface{}); ok {
					maskMap(nested)
				}
			}
		}
	}
}
