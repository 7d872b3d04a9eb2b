package metrics

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer_CreatesServerWithAddress(t *testing.T) {
	server := NewServer(":9999")

	assert.NotNil(t, server)
	assert.NotNil(t, server.srv)
	assert.Equal(t, ":9999", server.srv.Addr)
}

func TestServer_StartAndShutdown(t *testing.T) {
	server := NewServer("localhost:9998")

	// The listener is bound before Start returns, so the endpoint is
	// reachable immediately.
	require.NoError(t, server.Start())
	assert.NoError(t, server.Err())

	resp, err := http.Get("http://localhost:9998/metrics")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, server.Shutdown(ctx))

	_, err = http.Get("http://localhost:9998/metrics")
	assert.Error(t, err)
}

func TestServer_StartFailsOnBadAddress(t *testing.T) {
	server := NewServer("notanaddress:::")

	assert.Error(t, server.Start())
}

func TestServer_StartFailsOnBusyAddress(t *testing.T) {
	first := NewServer("localhost:9997")
	require.NoError(t, first.Start())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = first.Shutdown(ctx)
	}()

	second := NewServer("localhost:9997")
	assert.Error(t, second.Start())
}
