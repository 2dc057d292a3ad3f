package transport

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			b, err := conn.ReadFrame()
			if err != nil {
				return
			}
			if err := conn.WriteFrame(b); err != nil {
				return
			}
		}
	}))
}

func TestWebSocketConnRoundTripsBinaryFrame(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := DialWebSocket(url, nil)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.WriteFrame([]byte("frame payload")))
	got, err := client.ReadFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte("frame payload"), got)
}

func TestWebSocketConnCloseIsIdempotent(t *testing.T) {
	srv := echoServer(t)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := DialWebSocket(url, nil)
	require.NoError(t, err)

	require.NoError(t, client.Close())
	require.NoError(t, client.Close())
}

func TestWebSocketConnDialFailsAgainstUnreachableAddr(t *testing.T) {
	_, err := DialWebSocket("ws://127.0.0.1:1", nil)
	assert.Error(t, err)
}

func TestWebSocketConnReadFrameAfterServerCloses(t *testing.T) {
	// httptest.Server.Close does not close hijacked (upgraded) connections,
	// so the server side closes its WebSocket itself.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := Upgrade(w, r)
		if err != nil {
			return
		}
		conn.Close()
	}))
	defer srv.Close()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, err := DialWebSocket(url, nil)
	require.NoError(t, err)
	defer client.Close()

	time.Sleep(20 * time.Millisecond)
	_, err = client.ReadFrame()
	assert.Error(t, err)
}
