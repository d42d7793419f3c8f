package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func limitedHandler(rate float64, burst int) http.Handler {
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return RateLimit(rate, burst)(ok)
}

func doFrom(t *testing.T, handler http.Handler, remoteAddr string, headers map[string]string) int {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/leads", nil)
	req.RemoteAddr = remoteAddr
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w.Code
}

func TestRateLimit_BurstThenReject(t *testing.T) {
	handler := limitedHandler(1, 2)

	for i := 0; i < 2; i++ {
		if code := doFrom(t, handler, "10.0.0.1:1234", nil); code != http.StatusOK {
			t.Fatalf("request %d: status = %d, want 200", i+1, code)
		}
	}
	if code := doFrom(t, handler, "10.0.0.1:1234", nil); code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 after burst exhausted", code)
	}
}

func TestRateLimit_SeparateBucketsPerAddr(t *testing.T) {
	handler := limitedHandler(1, 1)

	if code := doFrom(t, handler, "10.0.0.1:1234", nil); code != http.StatusOK {
		t.Fatalf("first client: status = %d, want 200", code)
	}
	if code := doFrom(t, handler, "10.0.0.2:1234", nil); code != http.StatusOK {
		t.Errorf("second client: status = %d, want 200", code)
	}
}

// The bucket key comes from RemoteAddr alone. A client supplying its own
// X-Real-Ip header must not escape into a fresh bucket, and the same
// address on a new source port must stay in its bucket.
func TestRateLimit_KeyIgnoresSpoofableHeaderAndPort(t *testing.T) {
	handler := limitedHandler(1, 1)

	if code := doFrom(t, handler, "10.0.0.1:1234", nil); code != http.StatusOK {
		t.Fatalf("status = %d, want 200", code)
	}
	if code := doFrom(t, handler, "10.0.0.1:5678", map[string]string{"X-Real-Ip": "203.0.113.9"}); code != http.StatusTooManyRequests {
		t.Errorf("status = %d, want 429 for spoofed header on new port", code)
	}
}
