package fraud

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"postback-platform/internal/config"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newLookup(endpoint string, timeout time.Duration) *LookupClient {
	return NewLookupClient(config.IPIntel{Endpoint: endpoint, Timeout: timeout}, nil, zap.NewNop())
}

func TestLookup_ParsesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/json/8.8.8.8", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"success","proxy":true,"hosting":true,"isp":"Google LLC","as":"AS15169","country":"United States","regionName":"Virginia","city":"Ashburn"}`))
	}))
	defer srv.Close()

	info := newLookup(srv.URL+"/json/{ip}", time.Second).Lookup(context.Background(), "8.8.8.8")

	assert.True(t, info.Known)
	assert.True(t, info.Proxy)
	assert.True(t, info.Datacenter)
	assert.False(t, info.VPN)
	assert.Equal(t, "AS15169", info.ASN)
	assert.Equal(t, "Ashburn", info.City)
}

func TestLookup_FailuresDegradeToUnknown(t *testing.T) {
	handlers := map[string]http.HandlerFunc{
		"rate limited": func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusTooManyRequests) },
		"malformed":    func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("<html>")) },
		"fail status": func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
		},
		"timeout": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		},
	}

	for name, h := range handlers {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(h)
			defer srv.Close()

			info := newLookup(srv.URL+"/{ip}", 50*time.Millisecond).Lookup(context.Background(), "1.1.1.1")

			assert.Equal(t, IPInfo{}, info)
		})
	}
}

func TestLookup_SkipsPrivateAndInvalidAddresses(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	}))
	defer srv.Close()

	l := newLookup(srv.URL+"/{ip}", time.Second)
	for _, ip := range []string{"", "not-an-ip", "127.0.0.1", "10.1.2.3", "192.168.0.10", "::1"} {
		assert.Equal(t, IPInfo{}, l.Lookup(context.Background(), ip), ip)
	}
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestLookup_NoEndpointConfigured(t *testing.T) {
	assert.Equal(t, IPInfo{}, newLookup("", time.Second).Lookup(context.Background(), "8.8.8.8"))
}
