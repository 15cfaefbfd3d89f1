package ipchecker

import (
	"net"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	checker, err := New("")
	require.NoError(t, err)
	assert.True(t, checker.IsTrustedSubnetEmpty())
	assert.False(t, checker.Check(net.ParseIP("127.0.0.1")))

	_, err = New("not-a-cidr")
	assert.Error(t, err)
}

func TestGetClientIP(t *testing.T) {
	checker, err := New("10.0.0.0/8")
	require.NoError(t, err)

	type tTestCase struct {
		name       string
		headers    map[string]string
		remoteAddr string
		want       string
	}
	testCases := []tTestCase{
		{name: "x-real-ip wins", headers: map[string]string{"X-Real-IP": "10.1.1.1", "X-Forwarded-For": "8.8.8.8"}, remoteAddr: "1.1.1.1:1234", want: "10.1.1.1"},
		{name: "first forwarded address", headers: map[string]string{"X-Forwarded-For": "10.2.2.2, 8.8.8.8"}, remoteAddr: "1.1.1.1:1234", want: "10.2.2.2"},
		{name: "remote address", remoteAddr: "10.3.3.3:5555", want: "10.3.3.3"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			request := httptest.NewRequest(http.MethodGet, "/", nil)
			request.RemoteAddr = tc.remoteAddr
			for name, value := range tc.headers {
				request.Header.Set(name, value)
			}
			ip, err := checker.GetClientIP(request)
			require.NoError(t, err)
			assert.Equal(t, tc.want, ip.String())
		})
	}
}

func TestTrustedSubnetOnly(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	type tTestCase struct {
		name       string
		subnet     string
		remoteAddr string
		wantStatus int
	}
	testCases := []tTestCase{
		{name: "inside the subnet", subnet: "192.168.1.0/24", remoteAddr: "192.168.1.10:4000", wantStatus: http.StatusOK},
		{name: "outside the subnet", subnet: "192.168.1.0/24", remoteAddr: "192.168.2.10:4000", wantStatus: http.StatusForbidden},
		{name: "no subnet configured", subnet: "", remoteAddr: "192.168.1.10:4000", wantStatus: http.StatusForbidden},
		{name: "unparsable remote address", subnet: "192.168.1.0/24", remoteAddr: "garbage", wantStatus: http.StatusForbidden},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			checker, err := New(tc.subnet)
			require.NoError(t, err)

			request := httptest.NewRequest(http.MethodGet, "/api/internal/stats", nil)
			request.RemoteAddr = tc.remoteAddr
			recorder := httptest.NewRecorder()
			checker.TrustedSubnetOnly(ok).ServeHTTP(recorder, request)

			assert.Equal(t, tc.wantStatus, recorder.Code)
		})
	}
}
