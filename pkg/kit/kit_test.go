package kit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
})

func TestIPRateLimiter(t *testing.T) {
	l := NewIPRateLimiter(2, time.Minute)
	h := l.Middleware(okHandler)

	codes := make([]int, 0, 4)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/session", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	other := httptest.NewRequest(http.MethodPost, "/session", nil)
	other.RemoteAddr = "10.0.0.2:5555"
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, other)
	codes = append(codes, rec.Code)

	want := []int{200, 200, 429, 200}
	for i := range want {
		if codes[i] != want[i] {
			t.Fatalf("codes=%v want=%v", codes, want)
		}
	}
}

func TestClientIP_ForwardedForOnlyWhenTrusted(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("X-Forwarded-For", " 203.0.113.7 , 10.0.0.1")

	if got := clientIP(req, false); got != "10.0.0.1" {
		t.Fatalf("untrusted ip=%q", got)
	}
	if got := clientIP(req, true); got != "203.0.113.7" {
		t.Fatalf("trusted ip=%q", got)
	}
}

func TestIPRateLimiter_IgnoresSpoofedForwardedFor(t *testing.T) {
	h := NewIPRateLimiter(1, time.Minute).Middleware(okHandler)

	codes := make([]int, 0, 2)
	for _, xff := range []string{"198.51.100.1", "198.51.100.2"} {
		req := httptest.NewRequest(http.MethodPost, "/session", nil)
		req.RemoteAddr = "10.0.0.9:5555"
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes=%v", codes)
	}
}

func TestMetricsAuth(t *testing.T) {
	cases := []struct {
		token, header string
		want          int
	}{
		{"secret", "Bearer secret", http.StatusOK},
		{"secret", "Bearer nope", http.StatusForbidden},
		{"secret", "", http.StatusForbidden},
		{"", "Bearer ", http.StatusForbidden},
	}

	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
		if tc.header != "" {
			req.Header.Set("Authorization", tc.header)
		}
		rec := httptest.NewRecorder()
		MetricsAuth(tc.token)(okHandler).ServeHTTP(rec, req)
		if rec.Code != tc.want {
			t.Fatalf("token=%q header=%q code=%d want=%d", tc.token, tc.header, rec.Code, tc.want)
		}
	}
}

func TestDecodeJSON(t *testing.T) {
	type body struct {
		Size string `json:"size"`
	}

	cases := map[string]bool{
		`{"size":"M"}`:            true,
		`{"size":"M"} {"size":1}`: false,
		`{"colour":"red"}`:        false,
		`not json`:                false,
	}

	for raw, ok := range cases {
		req := httptest.NewRequest(http.MethodPut, "/prefs/size", strings.NewReader(raw))
		var b body
		err := DecodeJSON(httptest.NewRecorder(), req, &b)
		if (err == nil) != ok {
			t.Fatalf("body=%q err=%v", raw, err)
		}
	}
}

func TestMetricsMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	h := m.Middleware("card", func(r *http.Request) string { return r.URL.Path })(okHandler)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/cart", nil))

	if got := testutil.ToFloat64(m.Requests.WithLabelValues("card", "GET", "/cart", "200")); got != 1 {
		t.Fatalf("requests=%v", got)
	}
}

func TestNewLogger_UnknownLevelFallsBack(t *testing.T) {
	l := NewLogger("card", "loud")
	if !l.Core().Enabled(0) {
		t.Fatalf("info should be enabled")
	}
	if l.Core().Enabled(-1) {
		t.Fatalf("debug should be disabled")
	}
}
