package httpapi

import (
	"fmt"
	"net/http"
	"time"
)

// timingWriter stamps X-Process-Time onto the response at the moment the
// status line is committed, so the header reflects actual handler time
// rather than routing overhead alone.
type timingWriter struct {
	http.ResponseWriter
	start       time.Time
	wroteHeader bool
}

func newTimingWriter(w http.ResponseWriter) *timingWriter {
	return &timingWriter{ResponseWriter: w, start: time.Now()}
}

func (t *timingWriter) WriteHeader(status int) {
	if !t.wroteHeader {
		t.wroteHeader = true
		t.Header().Set("X-Process-Time", fmt.Sprintf("%.6f", time.Since(t.start).Seconds()))
	}
	t.ResponseWriter.WriteHeader(status)
}

func (t *timingWriter) Write(b []byte) (int, error) {
	if !t.wroteHeader {
		t.WriteHeader(http.StatusOK)
	}
	return t.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach the underlying writer, which
// the terminal WebSocket upgrade needs for connection hijacking.
func (t *timingWriter) Unwrap() http.ResponseWriter {
	return t.ResponseWriter
}
