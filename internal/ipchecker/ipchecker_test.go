package ipchecker

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientIP(t *testing.T) {
	checker, err := New("")
	require.NoError(t, err)

	tests := []struct {
		name     string
		headers  map[string]string
		remote   string
		expected string
	}{
		{name: "real ip wins", headers: map[string]string{"X-Real-IP": "10.1.1.1", "X-Forwarded-For": "10.2.2.2"}, remote: "10.3.3.3:1234", expected: "10.1.1.1"},
		{name: "first forwarded", headers: map[string]string{"X-Forwarded-For": "10.2.2.2, 10.4.4.4"}, remote: "10.3.3.3:1234", expected: "10.2.2.2"},
		{name: "remote addr", remote: "10.3.3.3:1234", expected: "10.3.3.3"},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = test.remote
			for key, value := range test.headers {
				request.Header.Set(key, value)
			}

			ip, err := checker.GetClientIP(request)
			require.NoError(t, err)
			assert.Equal(t, test.expected, ip.String())
		})
	}
}

func TestNewRejectsBrokenCIDR(t *testing.T) {
	_, err := New("10.0.0.0/99")
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	tests := []struct {
		name     string
		subnet   string
		realIP   string
		expected int
	}{
		{name: "inside", subnet: "192.168.0.0/16", realIP: "192.168.10.7", expected: http.StatusOK},
		{name: "outside", subnet: "192.168.0.0/16", realIP: "10.0.0.1", expected: http.StatusForbidden},
		{name: "no subnet", subnet: "", realIP: "192.168.10.7", expected: http.StatusForbidden},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			checker, err := New(test.subnet)
			require.NoError(t, err)

			handler := checker.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			request := httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
			request.Header.Set("X-Real-IP", test.realIP)
			recorder := httptest.NewRecorder()
			handler.ServeHTTP(recorder, request)

			assert.Equal(t, test.expected, recorder.Code)
		})
	}
}
