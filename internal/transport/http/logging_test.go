package httptransport

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"
)

func TestRequestLoggerRecordsStatus(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	handler := RequestLoggerTo(&buf, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/v1/users/1/complete", nil))

	require.Equal(t, http.StatusNotFound, rr.Code)
	line := buf.String()
	require.Contains(t, line, "POST /v1/users/1/complete Not Found")
	require.Contains(t, line, "from 192.0.2.1:1234")
}
