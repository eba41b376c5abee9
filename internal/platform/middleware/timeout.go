package middleware

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ehr/recon/internal/platform/outcome"
)

// RequestTimeout puts a deadline on each request context. Handler output is
// buffered; when the deadline passes before the handler returns, a 504
// outcome is sent instead and the late output is discarded. The middleware
// does not return until the handler goroutine has finished, so the context
// is never released while it is still in use.
func RequestTimeout(timeout time.Duration) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if timeout <= 0 {
				return next(c)
			}

			ctx, cancel := context.WithTimeout(c.Request().Context(), timeout)
			defer cancel()
			c.SetRequest(c.Request().WithContext(ctx))

			res := c.Response()
			orig := res.Writer
			tw := newTimeoutWriter(orig.Header())
			res.Writer = tw

			done := make(chan error, 1)
			go func() {
				done <- next(c)
			}()

			select {
			case err := <-done:
				res.Writer = orig
				tw.flushTo(orig)
				return err
			case <-ctx.Done():
				select {
				case err := <-done:
					res.Writer = orig
					tw.flushTo(orig)
					return err
				default:
				}
				tw.expire()
				deadline := errors.Is(ctx.Err(), context.DeadlineExceeded)
				if deadline {
					writeGatewayTimeout(orig)
				}
				<-done
				res.Writer = orig
				if !deadline {
					return ctx.Err()
				}
				res.Status = http.StatusGatewayTimeout
				res.Committed = true
				return nil
			}
		}
	}
}

func writeGatewayTimeout(w http.ResponseWriter) {
	body, _ := json.Marshal(outcome.New(
		outcome.SeverityError, outcome.CodeTimeout,
		"request processing exceeded the allowed time limit",
	))
	w.Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w.WriteHeader(http.StatusGatewayTimeout)
	_, _ = w.Write(body)
	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

// timeoutWriter holds a handler's response until it either completes or
// the deadline passes.
type timeoutWriter struct {
	mu       sync.Mutex
	header   http.Header
	buf      bytes.Buffer
	code     int
	timedOut bool
}

func newTimeoutWriter(base http.Header) *timeoutWriter {
	return &timeoutWriter{header: base.Clone()}
}

func (w *timeoutWriter) Header() http.Header { return w.header }

func (w *timeoutWriter) WriteHeader(code int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut || w.code != 0 {
		return
	}
	w.code = code
}

func (w *timeoutWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timedOut {
		return 0, http.ErrHandlerTimeout
	}
	if w.code == 0 {
		w.code = http.StatusOK
	}
	return w.buf.Write(p)
}

// expire discards any further output from the handler.
func (w *timeoutWriter) expire() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.timedOut = true
}

// flushTo copies the buffered response to dst. Nothing is written when the
// handler produced no status, leaving the error path to echo.
func (w *timeoutWriter) flushTo(dst http.ResponseWriter) {
	w.mu.Lock()
	defer w.mu.Unlock()
	h := dst.Header()
	for k := range h {
		if _, ok := w.header[k]; !ok {
			delete(h, k)
		}
	}
	for k, v := range w.header {
		h[k] = v
	}
	if w.code == 0 {
		return
	}
	dst.WriteHeader(w.code)
	_, _ = dst.Write(w.buf.Bytes())
}
