package observability

import (
	"context"
	"io"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func freeAddr(t *testing.T) string {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())
	return addr
}

func TestMetricsServer_ServesRegistry(t *testing.T) {
	reg := NewRegistry()
	hits := prometheus.NewCounter(prometheus.CounterOpts{Name: "vmf_test_hits_total", Help: "test counter"})
	reg.MustRegister(hits)
	hits.Add(3)

	addr := freeAddr(t)
	srv := NewMetricsServer(addr, reg, zaptest.NewLogger(t))
	done := make(chan error, 1)
	go func() { done <- srv.Start(context.Background()) }()

	var body string
	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return false
		}
		body = string(data)
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 20*time.Millisecond)

	assert.Contains(t, body, "vmf_test_hits_total 3")
	assert.Contains(t, body, "go_goroutines")

	srv.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
