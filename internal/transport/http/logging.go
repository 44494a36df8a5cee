package httptransport

import (
	"io"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
)

var (
	okColor     = color.New(color.FgGreen).SprintFunc()
	warnColor   = color.New(color.FgYellow).SprintFunc()
	errColor    = color.New(color.FgRed).SprintFunc()
	methodColor = color.New(color.FgCyan, color.Bold).SprintFunc()
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// RequestLogger prints one colored line per request to stdout.
func RequestLogger(next http.Handler) http.Handler {
	return RequestLoggerTo(color.Output, next)
}

// RequestLoggerTo prints one line per request to out.
func RequestLoggerTo(out io.Writer, next http.Handler) http.Handler {
	if out == nil {
		out = os.Stdout
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		_, _ = io.WriteString(out, formatLine(start, r, rec.status, time.Since(start))+"\n")
	})
}

func formatLine(start time.Time, r *http.Request, status int, took time.Duration) string {
	paint := okColor
	switch {
	case status >= 500:
		paint = errColor
	case status >= 400:
		paint = warnColor
	}
	return start.UTC().Format("2006-01-02 15:04:05") + " " +
		methodColor(r.Method) + " " + r.URL.Path + " " +
		paint(http.StatusText(status)) + " " + took.Round(time.Microsecond).String() +
		" from " + r.RemoteAddr
}
