package middleware

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/vkotelnikov/eduplatform/pkg/logger"
)

// redactedFields are request body keys whose values never reach the logs.
var redactedFields = []string{
	"password",
	"password_hash",
	"token",
	"access_token",
	"client_secret",
	"authorization",
	"secret",
}

type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if sr.status == 0 {
		sr.status = http.StatusOK
	}
	sr.bytes += len(b)
	return sr.ResponseWriter.Write(b)
}

// RequestLogger logs each request and its response status. Request bodies
// are logged with credential fields redacted; the payment callback body is
// a signed token and is skipped entirely.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		log := logger.From(r.Context())

		var body []byte
		if r.Body != nil && !strings.HasSuffix(r.URL.Path, "/payments/callback") {
			body, _ = io.ReadAll(r.Body)
			r.Body = io.NopCloser(bytes.NewReader(body))
		}

		log.Info("request started",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr,
			"body", redactBody(body),
		)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.status
		if status == 0 {
			status = http.StatusOK
		}

		attrs := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
			"response_bytes", rec.bytes,
		}
		switch {
		case status >= 500:
			log.Error("request finished", attrs...)
		case status >= 400:
			log.Warn("request finished", attrs...)
		default:
			log.Info("request finished", attrs...)
		}
	})
}

func redactBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		lower := strings.ToLower(string(body))
		for _, field := range redactedFields {
			if strings.Contains(lower, field) {
				return "[REDACTED]"
			}
		}
		return string(body)
	}

	out, err := json.Marshal(redactValue(payload))
	if err != nil {
		return "[REDACTED]"
	}
	return string(out)
}

func redactValue(v any) any {
	switch value := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(value))
		for key, inner := range value {
			lower := strings.ToLower(key)
			redacted := false
			for _, field := range redactedFields {
				if strings.Contains(lower, field) {
					redacted = true
					break
				}
			}
			if redacted {
				out[key] = "[REDACTED]"
			} else {
				out[key] = redactValue(inner)
			}
		}
		return out
	case []any:
		out := make([]any, len(value))
		for i, item := range value {
			out[i] = redactValue(item)
		}
		return out
	default:
		return v
	}
}
