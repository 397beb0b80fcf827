package drtp

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kulaginds/drtp-go/internal/transport/udp"
)

func TestHandshakeEstablishesBothSides(t *testing.T) {
	server, err := udp.Bind("127.0.0.1", 0)
	require.NoError(t, err)
	defer server.Close()

	addr := serverLocalAddr(t, server)

	client, err := udp.Connect(addr.IP.String(), addr.Port)
	require.NoError(t, err)
	defer client.Close()

	errCh := make(chan error, 1)
	var ack uint16
	var clientState State
	go func() {
		ack, clientState, err = ClientHandshake(client, time.Second)
		errCh <- err
	}()

	peer, serverState, err := ServerHandshake(server, time.Second)
	require.NoError(t, err)
	require.NoError(t, <-errCh)

	assert.Equal(t, StateEstablished, serverState)
	assert.Equal(t, StateEstablished, clientState)
	assert.Equal(t, uint16(2), ack)
	assert.NotNil(t, peer)
}

func TestServerHandshakeRejectsNonSYN(t *testing.T) {
	server, err := udp.Bind("127.0.0.1", 0)
	require.NoError(t, err)
	defer server.Close()

	addr := serverLocalAddr(t, server)
	client, err := udp.Connect(addr.IP.String(), addr.Port)
	require.NoError(t, err)
	defer client.Close()

	require.NoError(t, client.Send(NewData(1, 0, nil).Marshal()))

	_, _, err = ServerHandshake(server, 200*time.Millisecond)
	assert.ErrorIs(t, err, ErrHandshakeMismatch)
}

func TestClientHandshakeTimesOutWithNoResponder(t *testing.T) {
	server, err := udp.Bind("127.0.0.1", 0)
	require.NoError(t, err)
	addr := serverLocalAddr(t, server)
	require.NoError(t, server.Close())

	client, err := udp.Connect(addr.IP.String(), addr.Port)
	require.NoError(t, err)
	defer client.Close()

	_, _, err = ClientHandshake(client, 50*time.Millisecond)
	assert.Error(t, err)
}

func TestTeardown(t *testing.T) {
	server, err := udp.Bind("127.0.0.1", 0)
	require.NoError(t, err)
	defer server.Close()

	addr := serverLocalAddr(t, server)
	client, err := udp.Connect(addr.IP.String(), addr.Port)
	require.NoError(t, err)
	defer client.Close()

	errCh := make(chan error, 1)
	var clientState State
	go func() {
		clientState, err = ClientTeardown(client, time.Second)
		errCh <- err
	}()

	res, err := server.Recv(time.Second)
	require.NoError(t, err)
	fin, err := Unmarshal(res.Data)
	require.NoError(t, err)
	assert.True(t, fin.Header.Flags.FIN)

	serverState, err := ServerTeardown(server, res.From, fin.Header.Seq)
	require.NoError(t, err)
	require.NoError(t, <-errCh)

	assert.Equal(t, StateClosed, serverState)
	assert.Equal(t, StateClosed, clientState)
}

func serverLocalAddr(t *testing.T, ep *udp.Endpoint) *net.UDPAddr {
	t.Helper()
	return ep.LocalAddr()
}
