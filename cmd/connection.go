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
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"go.uber.org/zap"
	"golang.org/x/term"
	"golang.org/x/time/rate"
)

// Connection is a byte stream carrying DNP3 link frames
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

// ErrConnectionClosed is returned when reading from a connection that has
// been closed by either side
var ErrConnectionClosed = errors.New("connection closed")

// WebSocketConnection wraps a WebSocket bridge for byte-level reading.
// Each binary message is an arbitrary slice of the serial stream; message
// boundaries carry no meaning.
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	if w.closed {
		return 0, ErrConnectionClosed
	}

	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.closed = true
			return 0, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
		}

		if messageType != websocket.BinaryMessage {
			continue
		}

		w.buf = data
		w.bufOffset = 0
		n := copy(p, w.buf)
		w.bufOffset = n
		return n, nil
	}
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	err := w.conn.WriteMessage(websocket.BinaryMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

func (w *WebSocketConnection) Close() error {
	w.closed = true
	return w.conn.Close()
}

// TCPConnection wraps a DNP3-over-TCP socket
type TCPConnection struct {
	conn net.Conn
}

func (t *TCPConnection) Read(p []byte) (int, error) {
	n, err := t.conn.Read(p)
	if err != nil && (errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed)) {
		return n, fmt.Errorf("%w: %v", ErrConnectionClosed, err)
	}
	return n, err
}

func (t *TCPConnection) Write(p []byte) (int, error) {
	return t.conn.Write(p)
}

func (t *TCPConnection) Close() error {
	return t.conn.Close()
}

// OpenSerialConnection opens a serial port connection
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// OpenTCPConnection dials a DNP3 endpoint (outstation or terminal server)
func OpenTCPConnection(ctx context.Context, addr string) (Connection, error) {
	d := net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("TCP connection to %s failed: %w", addr, err)
	}
	return &TCPConnection{conn: conn}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv(envPrefix + "_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal, read a plain line
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens a WebSocket, TCP or serial connection based on flags
func OpenConnection(ctx context.Context) (Connection, string, error) {
	if wsURL != "" {
		password := ""
		if wsUsername != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(wsURL, wsUsername, password, wsNoSSLVerify)
		if err != nil {
			return nil, "", err
		}
		logger.Debug("websocket connected", zap.String("url", wsURL))
		return conn, fmt.Sprintf("WebSocket: %s", wsURL), nil
	}

	if tcpAddr != "" {
		conn, err := OpenTCPConnection(ctx, tcpAddr)
		if err != nil {
			return nil, "", err
		}
		logger.Debug("tcp connected", zap.String("addr", tcpAddr))
		return conn, fmt.Sprintf("TCP: %s", tcpAddr), nil
	}

	if portName != "" {
		conn, err := OpenSerialConnection(portName, baudRate)
		if err != nil {
			return nil, "", err
		}
		logger.Debug("serial port open", zap.String("port", portName), zap.Int("baud", baudRate))
		return conn, fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil
	}

	return nil, "", fmt.Errorf("one of --port, --url or --tcp must be specified")
}

// readLoop delivers every chunk read from conn to fn until the connection
// closes or ctx is done. Transient read errors are retried at most ten times
// a second, and logged at most once a second after a burst of five.
// The chunk passed to fn is only valid for the duration of the call.
func readLoop(ctx context.Context, conn Connection, fn func([]byte)) error {
	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	retry := rate.NewLimiter(rate.Every(100*time.Millisecond), 1)
	warn := rate.NewLimiter(rate.Every(time.Second), 5)
	suppressed := 0

	buf := make([]byte, 512)
	for {
		n, err := conn.Read(buf)
		if n > 0 {
			fn(buf[:n])
		}
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
		if errors.Is(err, ErrConnectionClosed) {
			logger.Info("connection closed", zap.Error(err))
			return nil
		}

		if warn.Allow() {
			logger.Warn("read error", zap.Error(err), zap.Int("suppressed", suppressed))
			suppressed = 0
		} else {
			suppressed++
		}
		if err := retry.Wait(ctx); err != nil {
			return nil
		}
	}
}
