package rsocket

import (
	"bytes"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rsocketcore/rsocket/transport"
)

// connection_test.go exercises the full client/server pair end to end over
// transport.LocalConn, grounded on the teacher's wspipe_test.go in-memory
// pipe-wiring style (spec.md §8's scenario list).

func dialPair(t *testing.T, acceptor Acceptor, opts ConnectionOptions) (*Connection, *Connection) {
	t.Helper()
	ca, cb := transport.NewLocalPair(16)
	server := NewServerConnection(cb, acceptor, opts)
	client, err := NewClientConnection(ca, SetupPayload{}, nil, opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		client.Close()
		server.Close()
	})
	return client, server
}

func TestConnectionRequestResponseRoundTrip(t *testing.T) {
	defer leaktest.Check(t)()

	acceptor := func(setup SetupPayload, peer RSocket) (RSocket, error) {
		return HandlerConfig{
			OnRequestResponse: func(p Payload, sink ResponseSink) {
				sink.Success(NewPayloadData(bytes.ToUpper(p.Data)))
			},
		}.Build(), nil
	}
	client, server := dialPair(t, acceptor, ConnectionOptions{})
	defer server.Close()
	defer client.Close()

	resp, err := client.RequestResponse(NewPayloadData([]byte("hello")))
	require.NoError(t, err)
	assert.Equal(t, []byte("HELLO"), resp.Data)
}

func TestConnectionRequestResponseApplicationError(t *testing.T) {
	defer leaktest.Check(t)()

	acceptor := func(setup SetupPayload, peer RSocket) (RSocket, error) {
		return HandlerConfig{
			OnRequestResponse: func(p Payload, sink ResponseSink) {
				sink.Error(ErrorCodeApplicationError, []byte("nope"))
			},
		}.Build(), nil
	}
	client, server := dialPair(t, acceptor, ConnectionOptions{})
	defer server.Close()
	defer client.Close()

	_, err := client.RequestResponse(NewPayloadData([]byte("x")))
	require.Error(t, err)
	ae, ok := err.(ApplicationError)
	require.True(t, ok)
	assert.Equal(t, ErrorCodeApplicationError, ae.Code)
	assert.Equal(t, []byte("nope"), ae.Data)
}

func TestConnectionFireAndForgetReachesServer(t *testing.T) {
	defer leaktest.Check(t)()

	received := make(chan []byte, 1)
	acceptor := func(setup SetupPayload, peer RSocket) (RSocket, error) {
		return HandlerConfig{
			OnFireAndForget: func(p Payload) { received <- p.Data },
		}.Build(), nil
	}
	client, server := dialPair(t, acceptor, ConnectionOptions{})
	defer server.Close()
	defer client.Close()

	require.NoError(t, client.FireAndForget(NewPayloadData([]byte("ping"))))
	select {
	case b := <-received:
		assert.Equal(t, []byte("ping"), b)
	case <-time.After(time.Second):
		t.Fatal("server never received the fire-and-forget payload")
	}
}

func TestConnectionRequestStreamDeliversAllItems(t *testing.T) {
	defer leaktest.Check(t)()

	acceptor := func(setup SetupPayload, peer RSocket) (RSocket, error) {
		return HandlerConfig{
			OnRequestStream: func(p Payload, initialRequestN uint32, sink StreamSink) {
				for i := 0; i < 3; i++ {
					sink.Next(NewPayloadData([]byte{byte('a' + i)}))
				}
				sink.Complete()
			},
		}.Build(), nil
	}
	client, server := dialPair(t, acceptor, ConnectionOptions{})
	defer server.Close()
	defer client.Close()

	sub, err := client.RequestStream(NewPayloadData([]byte("go")), 10)
	require.NoError(t, err)

	var got [][]byte
	for p := range sub.Items {
		got = append(got, p.Data)
	}
	require.Len(t, got, 3)
	assert.Equal(t, []byte("a"), got[0])
	assert.Equal(t, []byte("c"), got[2])
}

func TestConnectionRequestStreamCancelStopsDelivery(t *testing.T) {
	defer leaktest.Check(t)()

	started := make(chan struct{})
	acceptor := func(setup SetupPayload, peer RSocket) (RSocket, error) {
		return HandlerConfig{
			OnRequestStream: func(p Payload, initialRequestN uint32, sink StreamSink) {
				close(started)
			},
		}.Build(), nil
	}
	client, server := dialPair(t, acceptor, ConnectionOptions{})
	defer server.Close()
	defer client.Close()

	sub, err := client.RequestStream(NewPayloadData([]byte("go")), 10)
	require.NoError(t, err)
	<-started
	require.NoError(t, sub.Cancel())

	select {
	case _, ok := <-sub.Items:
		assert.False(t, ok, "items channel should not yield after cancel")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestConnectionRequestChannelEchoesEachItemUppercased(t *testing.T) {
	defer leaktest.Check(t)()

	acceptor := func(setup SetupPayload, peer RSocket) (RSocket, error) {
		return HandlerConfig{
			OnRequestChannel: func(initial Payload, initialRequestN uint32, in <-chan Payload, sink StreamSink) {
				sink.Next(NewPayloadData(bytes.ToUpper(initial.Data)))
				for p := range in {
					sink.Next(NewPayloadData(bytes.ToUpper(p.Data)))
				}
				sink.Complete()
			},
		}.Build(), nil
	}
	client, server := dialPair(t, acceptor, ConnectionOptions{})
	defer server.Close()
	defer client.Close()

	out := make(chan Payload, 2)
	out <- NewPayloadData([]byte("b"))
	close(out)

	sub, err := client.RequestChannel(NewPayloadData([]byte("a")), 10, out)
	require.NoError(t, err)

	var got [][]byte
	for p := range sub.Items {
		got = append(got, p.Data)
	}
	require.Len(t, got, 2)
	assert.Equal(t, []byte("A"), got[0])
	assert.Equal(t, []byte("B"), got[1])
}

func TestConnectionSetupNegotiatesMimeTypes(t *testing.T) {
	defer leaktest.Check(t)()

	gotMime := make(chan string, 1)
	acceptor := func(setup SetupPayload, peer RSocket) (RSocket, error) {
		gotMime <- setup.DataMimeType
		return HandlerConfig{}.Build(), nil
	}
	ca, cb := transport.NewLocalPair(16)
	server := NewServerConnection(cb, acceptor, ConnectionOptions{})
	defer server.Close()
	client, err := NewClientConnection(ca, SetupPayload{DataMimeType: "application/json"}, nil, ConnectionOptions{})
	require.NoError(t, err)
	defer client.Close()

	select {
	case m := <-gotMime:
		assert.Equal(t, "application/json", m)
	case <-time.After(time.Second):
		t.Fatal("acceptor was never invoked")
	}
}

func TestConnectionRejectsWhenNoAcceptorHandlerConfigured(t *testing.T) {
	defer leaktest.Check(t)()

	client, server := dialPair(t, nil, ConnectionOptions{})
	defer server.Close()
	defer client.Close()

	_, err := client.RequestResponse(NewPayloadData([]byte("x")))
	require.Error(t, err)
	ae, ok := err.(ApplicationError)
	require.True(t, ok)
	assert.Equal(t, ErrorCodeRejected, ae.Code)
}

func TestConnectionCloseTerminatesInFlightStream(t *testing.T) {
	defer leaktest.Check(t)()

	acceptor := func(setup SetupPayload, peer RSocket) (RSocket, error) {
		return HandlerConfig{
			OnRequestStream: func(p Payload, initialRequestN uint32, sink StreamSink) {
				// never replies, so the requester hangs until close
			},
		}.Build(), nil
	}
	client, server := dialPair(t, acceptor, ConnectionOptions{})
	defer server.Close()
	defer client.Close()

	sub, err := client.RequestStream(NewPayloadData([]byte("x")), 1)
	require.NoError(t, err)
	require.NoError(t, client.Close())

	select {
	case <-sub.s.done():
	case <-time.After(time.Second):
		t.Fatal("stream was not terminated by connection close")
	}

	// The public consumer API must also unblock: a caller ranging over
	// sub.Items must not hang forever just because the private FSM state
	// moved to Terminated.
	select {
	case _, ok := <-sub.Items:
		assert.False(t, ok, "sub.Items must close, not hang, when the connection tears down")
	case <-time.After(time.Second):
		t.Fatal("sub.Items never unblocked after connection close")
	}

	select {
	case err := <-sub.Errors:
		assert.Error(t, err)
	case <-time.After(time.Second):
		t.Fatal("sub.Errors never unblocked after connection close")
	}
}

func TestConnectionPhaseReflectsLifecycle(t *testing.T) {
	defer leaktest.Check(t)()

	client, server := dialPair(t, func(SetupPayload, RSocket) (RSocket, error) {
		return HandlerConfig{}.Build(), nil
	}, ConnectionOptions{})
	defer server.Close()

	require.Eventually(t, func() bool { return server.Phase() == ConnectionEstablished }, time.Second, 5*time.Millisecond)
	assert.Equal(t, ConnectionEstablished, client.Phase())

	require.NoError(t, client.Close())
	assert.Equal(t, ConnectionClosed, client.Phase())
}
