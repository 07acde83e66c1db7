package gzippedhttp

import (
	"bytes"
	"compress/gzip"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gzipString(t *testing.T, input string) []byte {
	t.Helper()

	var buf bytes.Buffer
	gzipWriter := gzip.NewWriter(&buf)
	_, err := gzipWriter.Write([]byte(input))
	require.NoError(t, err)
	require.NoError(t, gzipWriter.Close())

	return buf.Bytes()
}

func echoBody() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Header().Set("X-Seen-Encoding", r.Header.Get("Content-Encoding"))
		_, _ = w.Write(body)
	})
}

func TestUngzipRequest(t *testing.T) {
	tests := []struct {
		name         string
		body         []byte
		encoding     string
		expectedCode int
		expectedBody string
	}{
		{name: "gzipped form", body: gzipString(t, "username=alice"), encoding: "gzip", expectedCode: http.StatusOK, expectedBody: "username=alice"},
		{name: "plain form", body: []byte("username=bob"), expectedCode: http.StatusOK, expectedBody: "username=bob"},
		{name: "broken gzip", body: []byte("not gzip"), encoding: "gzip", expectedCode: http.StatusBadRequest},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodPost, "/auth", bytes.NewReader(test.body))
			if test.encoding != "" {
				request.Header.Set("Content-Encoding", test.encoding)
			}
			recorder := httptest.NewRecorder()

			UngzipRequest(echoBody()).ServeHTTP(recorder, request)

			assert.Equal(t, test.expectedCode, recorder.Code)
			if test.expectedCode == http.StatusOK {
				assert.Equal(t, test.expectedBody, recorder.Body.String())
				assert.Empty(t, recorder.Header().Get("X-Seen-Encoding"))
			}
		})
	}
}

func TestCompressedReaderClose(t *testing.T) {
	reader, err := NewCompressedReader(io.NopCloser(strings.NewReader(string(gzipString(t, "x")))))
	require.NoError(t, err)

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
	assert.NoError(t, reader.Close())
}
