package main

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// freeAddr returns a loopback address that was free a moment ago.
func freeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestOpenListeners(t *testing.T) {
	httpLn, grpcLn, err := openListeners("127.0.0.1:0", "127.0.0.1:0")
	require.NoError(t, err)
	defer httpLn.Close()
	defer grpcLn.Close()
	assert.NotEqual(t, httpLn.Addr().String(), grpcLn.Addr().String())
}

func TestOpenListeners_GRPCDisabled(t *testing.T) {
	httpLn, grpcLn, err := openListeners("127.0.0.1:0", "")
	require.NoError(t, err)
	defer httpLn.Close()
	assert.Nil(t, grpcLn)
}

func TestOpenListeners_GRPCBusyReleasesHTTP(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	httpAddr := freeAddr(t)

	httpLn, grpcLn, err := openListeners(httpAddr, busy.Addr().String())
	require.Error(t, err)
	assert.Contains(t, err.Error(), busy.Addr().String())
	assert.Nil(t, httpLn)
	assert.Nil(t, grpcLn)

	again, err := net.Listen("tcp", httpAddr)
	require.NoError(t, err, "http address must be released when grpc cannot bind")
	require.NoError(t, again.Close())
}

func TestOpenListeners_HTTPBusy(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	_, _, err = openListeners(busy.Addr().String(), "")
	assert.Error(t, err)
}
