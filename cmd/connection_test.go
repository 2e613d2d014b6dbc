// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Thermoquad/metasim/pkg/metawatch"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// WebSocket transport
// ============================================================

// bridge is a WebSocket endpoint that checks Basic auth, sends a text
// message followed by a binary one, then echoes binary messages
func bridge(t *testing.T, greeting []byte) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "watch" || pass != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		conn.WriteMessage(websocket.TextMessage, []byte("hello"))
		conn.WriteMessage(websocket.BinaryMessage, greeting)
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			conn.WriteMessage(kind, data)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsAddr(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestWebSocketConnection_ReadsBinaryOnly(t *testing.T) {
	greeting := metawatch.NewGetDeviceType()
	srv := bridge(t, greeting)

	conn, err := OpenWebSocketConnection(wsAddr(srv), "watch", "secret", false)
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, len(greeting))
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, greeting, buf)
}

func TestWebSocketConnection_SmallReads(t *testing.T) {
	greeting := metawatch.NewSetLED(true)
	srv := bridge(t, greeting)

	conn, err := OpenWebSocketConnection(wsAddr(srv), "watch", "secret", false)
	require.NoError(t, err)
	defer conn.Close()

	// a message larger than the read buffer is handed out in pieces
	var got []byte
	one := make([]byte, 1)
	for len(got) < len(greeting) {
		n, err := conn.Read(one)
		require.NoError(t, err)
		got = append(got, one[:n]...)
	}
	assert.Equal(t, greeting, got)
}

func TestWebSocketConnection_WriteEcho(t *testing.T) {
	srv := bridge(t, metawatch.NewGetDeviceType())

	conn, err := OpenWebSocketConnection(wsAddr(srv), "watch", "secret", false)
	require.NoError(t, err)
	defer conn.Close()

	skip := make([]byte, 6)
	_, err = io.ReadFull(conn, skip)
	require.NoError(t, err)

	frame := metawatch.NewButtonEvent(0x42)
	n, err := conn.Write(frame)
	require.NoError(t, err)
	assert.Equal(t, len(frame), n)

	buf := make([]byte, len(frame))
	_, err = io.ReadFull(conn, buf)
	require.NoError(t, err)
	assert.Equal(t, frame, buf)
}

func TestWebSocketConnection_AuthFailure(t *testing.T) {
	srv := bridge(t, nil)

	_, err := OpenWebSocketConnection(wsAddr(srv), "watch", "wrong", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HTTP 401")
}

func TestWebSocketConnection_CloseIsEOF(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		conn.WriteMessage(websocket.BinaryMessage, []byte{0x01})
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
		conn.ReadMessage()
	}))
	defer srv.Close()

	conn, err := OpenWebSocketConnection(wsAddr(srv), "", "", false)
	require.NoError(t, err)
	defer conn.Close()

	buf := make([]byte, 16)
	n, err := conn.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01}, buf[:n])

	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, io.EOF)

	// the error sticks
	_, err = conn.Read(buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestOpenWebSocketConnection_BadScheme(t *testing.T) {
	_, err := OpenWebSocketConnection("http://localhost/", "", "", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported URL scheme")
}

func TestGetPassword_FromEnvironment(t *testing.T) {
	t.Setenv("METASIM_PASSWORD", "secret")
	pw, err := GetPassword()
	require.NoError(t, err)
	assert.Equal(t, "secret", pw)
}
