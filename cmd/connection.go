// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"
)

// Connection is the duplex byte stream the simulator talks over, backed by a
// serial port or a WebSocket bridge
type Connection interface {
	io.ReadWriteCloser
	fmt.Stringer
}

const (
	wsHandshakeTimeout = 10 * time.Second
	wsDialTimeout      = 15 * time.Second
)

//////////////////////////////////////////////////////////////
// Serial
//////////////////////////////////////////////////////////////

// SerialConnection is a watch cable on a local serial port
type SerialConnection struct {
	serial.Port
	name string
	baud int
}

func (s *SerialConnection) String() string {
	return fmt.Sprintf("Serial: %s @ %d baud", s.name, s.baud)
}

// OpenSerialConnection opens name at baud, 8N1
func OpenSerialConnection(name string, baud int) (*SerialConnection, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return &SerialConnection{Port: port, name: name, baud: baud}, nil
}

//////////////////////////////////////////////////////////////
// WebSocket
//////////////////////////////////////////////////////////////

// WebSocketConnection carries the byte stream in binary messages. Message
// boundaries mean nothing to the protocol; text messages are ignored.
type WebSocketConnection struct {
	conn    *websocket.Conn
	addr    string
	current io.Reader // unread part of the binary message in progress
	err     error     // sticky read error

	writeMu sync.Mutex
}

func (w *WebSocketConnection) String() string {
	return "WebSocket: " + w.addr
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	for w.err == nil {
		if w.current == nil {
			kind, r, err := w.conn.NextReader()
			if err != nil {
				w.err = readError(err)
				break
			}
			if kind != websocket.BinaryMessage {
				continue
			}
			w.current = r
		}

		n, err := w.current.Read(p)
		if errors.Is(err, io.EOF) {
			w.current = nil
			err = nil
		}
		if err != nil {
			w.err = readError(err)
		}
		if n > 0 {
			return n, nil
		}
	}
	return 0, w.err
}

// Write sends p as one binary message. The session writer and the TUI can
// both write, so writes are serialised.
func (w *WebSocketConnection) Write(p []byte) (int, error) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if err := w.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	return w.conn.Close()
}

// readError maps an orderly close to io.EOF, the way a serial port or TCP
// stream reports the end of the link
func readError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return io.EOF
	}
	return err
}

// OpenWebSocketConnection dials a ws:// or wss:// bridge. A non-empty
// username is sent with password as HTTP Basic auth.
func OpenWebSocketConnection(addr, username, password string, skipSSLVerify bool) (*WebSocketConnection, error) {
	u, err := url.Parse(addr)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	shown := u.Redacted()
	header := http.Header{}
	if username != "" {
		header.Set("Authorization", "Basic "+basicAuth(username, password))
	}

	dialer := websocket.Dialer{HandshakeTimeout: wsHandshakeTimeout}
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{InsecureSkipVerify: skipSSLVerify}
	}

	ctx, cancel := context.WithTimeout(context.Background(), wsDialTimeout)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, u.String(), header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket handshake with %s failed (HTTP %d): %w", shown, resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket dial %s: %w", shown, err)
	}
	return &WebSocketConnection{conn: conn, addr: shown}, nil
}

func basicAuth(username, password string) string {
	return base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
}

// GetPassword reads the bridge password from METASIM_PASSWORD, or prompts
// for it on the terminal
func GetPassword() (string, error) {
	if pw := os.Getenv("METASIM_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")
	defer fmt.Fprintln(os.Stderr)

	pw, err := term.ReadPassword(int(syscall.Stdin))
	if err == nil {
		return string(pw), nil
	}

	// stdin is not a terminal
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("read password: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// OpenConnection opens the transport selected by --url or --port. The serial
// port may also come from the config file.
func OpenConnection() (Connection, string, error) {
	switch {
	case wsURL != "":
		var password string
		if wsUsername != "" {
			var err error
			if password, err = GetPassword(); err != nil {
				return nil, "", err
			}
		}
		conn, err := OpenWebSocketConnection(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		return conn, conn.String(), nil

	case portName != "":
		conn, err := OpenSerialConnection(portName, baudRate)
		if err != nil {
			return nil, "", err
		}
		return conn, conn.String(), nil
	}

	return nil, "", errors.New("either --port or --url must be specified")
}
