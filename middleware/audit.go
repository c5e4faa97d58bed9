package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lonely-fr/perofish-server/audit"
)

// maxAuditBody caps how much of a request body is copied into the log.
const maxAuditBody = 4096

// Audit records every mutating request (anything but GET) to the audit
// service. The body is re-buffered so downstream binding still works.
func Audit(svc *audit.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}
		start := time.Now()

		c.Next()

		// Only the audit copy is capped; the handler saw the full body.
		snippet := body
		if len(snippet) > maxAuditBody {
			snippet = snippet[:maxAuditBody]
		}
		var req json.RawMessage
		if json.Valid(snippet) {
			req = snippet
		}
		errMsg := ""
		if len(c.Errors) > 0 {
			errMsg = c.Errors.String()
		} else if c.Writer.Status() >= http.StatusBadRequest {
			errMsg = http.StatusText(c.Writer.Status())
		}
		svc.Log(audit.Entry{
			TraceID:    GetTraceID(c),
			Username:   usernameFrom(c, body),
			Action:     c.Request.Method + " " + c.FullPath(),
			Request:    req,
			Response:   map[string]int{"status": c.Writer.Status()},
			Error:      errMsg,
			IP:         c.ClientIP(),
			DurationMs: int(time.Since(start).Milliseconds()),
		})
	}
}

// usernameFrom pulls the acting username out of the route or the JSON
// body; empty when neither carries one.
func usernameFrom(c *gin.Context, body json.RawMessage) string {
	if u := c.Param("username"); u != "" {
		return strings.ToLower(u)
	}
	var probe struct {
		Username string `json:"username"`
	}
	if len(body) > 0 && json.Unmarshal(body, &probe) == nil {
		return strings.ToLower(probe.Username)
	}
	return ""
}
