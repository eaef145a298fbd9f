// Package middleware contains Fiber middleware shared by the HTTP server.
package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"quill/internal/observability"

	"github.com/gofiber/fiber/v2"
)

// Fields replaced with a mask before a request body is logged.
var sensitiveFields = map[string]struct{}{
	"password":         {},
	"token":            {},
	"current_password": {},
	"new_password":     {},
}

const (
	redactedValue = "***"
	unparsedBody  = "<unparsed>"
)

// ContextMiddleware injects request ID and user ID from Fiber locals into the request context.
// Handlers and services log with the request context so these values ride along.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.SetUserContext(enrichContext(c))
		return c.Next()
	}
}

func enrichContext(c *fiber.Ctx) context.Context {
	ctx := c.UserContext()

	if rid, ok := c.Locals("requestid").(string); ok && rid != "" {
		ctx = context.WithValue(ctx, observability.RequestIDKey, rid)
	}
	if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
		ctx = context.WithValue(ctx, observability.UserIDKey, uid)
	}
	if tid, ok := c.Locals("traceID").(string); ok && tid != "" {
		ctx = context.WithValue(ctx, observability.TraceIDKey, tid)
	}
	return ctx
}

// RequestLogger logs one line per request. Bodies are truncated to
// bodyLimit bytes after sensitive fields have been masked. Multipart and
// unrecognized bodies are never logged verbatim.
func RequestLogger(bodyLimit int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		body := loggableBody(c, bodyLimit)

		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}

		user := "Guest"
		if uid, ok := c.Locals("userID").(uint); ok && uid != 0 {
			user = strconv.FormatUint(uint64(uid), 10)
		}

		fields := []any{
			slog.Int("status", status),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", ClientIP(c)),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Get(fiber.HeaderUserAgent)),
			slog.String("user", user),
		}
		if body != "" {
			fields = append(fields, slog.String("body", body))
		}

		// The identity middleware may have run after ContextMiddleware.
		ctx := enrichContext(c)
		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.Logger.ErrorContext(ctx, "request failed", fields...)
		} else {
			observability.Logger.InfoContext(ctx, "request processed", fields...)
		}

		return err
	}
}

// ClientIP prefers the first X-Forwarded-For entry over the socket address.
func ClientIP(c *fiber.Ctx) string {
	if fwd := c.Get(fiber.HeaderXForwardedFor); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	return c.IP()
}

func loggableBody(c *fiber.Ctx, limit int) string {
	if limit <= 0 {
		return ""
	}
	contentType := c.Get(fiber.HeaderContentType)
	if strings.HasPrefix(contentType, fiber.MIMEMultipartForm) {
		return "<multipart>"
	}
	raw := c.Body()
	if len(raw) == 0 {
		return ""
	}
	return truncate(RedactBody(contentType, raw), limit)
}

// RedactBody renders a request body for logging with sensitive fields
// masked. JSON values are masked at any depth and url-encoded forms by key.
// Anything else, including malformed JSON, is logged as unparsedBody.
func RedactBody(contentType string, raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		return redactJSON(trimmed)
	}
	if strings.HasPrefix(strings.ToLower(contentType), fiber.MIMEApplicationForm) {
		return redactForm(trimmed)
	}
	return unparsedBody
}

func redactJSON(raw []byte) string {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return unparsedBody
	}
	if !maskValue(value) {
		return string(raw)
	}
	out, err := json.Marshal(value)
	if err != nil {
		return unparsedBody
	}
	return string(out)
}

// maskValue masks sensitive keys in place and reports whether it did.
func maskValue(v any) bool {
	masked := false
	switch t := v.(type) {
	case map[string]any:
		for key, child := range t {
			if isSensitive(key) {
				t[key] = redactedValue
				masked = true
				continue
			}
			if maskValue(child) {
				masked = true
			}
		}
	case []any:
		for _, child := range t {
			if maskValue(child) {
				masked = true
			}
		}
	}
	return masked
}

func redactForm(raw []byte) string {
	values, err := url.ParseQuery(string(raw))
	if err != nil {
		return unparsedBody
	}
	for key, vals := range values {
		if isSensitive(key) {
			for i := range vals {
				vals[i] = redactedValue
			}
		}
	}
	return values.Encode()
}

func isSensitive(key string) bool {
	_, ok := sensitiveFields[strings.ToLower(key)]
	return ok
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "...(truncated)"
}
