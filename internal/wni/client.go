// Package wni implements the proprietary WNI push-protocol client: server
// discovery, the HTTP/1.0-style TCP handshake, the keep-alive/data frame
// loop, delay detection and the STX/ETX payload extraction that hands
// bytes to the telegram parser.
package wni

import (
	"bufio"
	"context"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	"tina/internal/eew"
	"tina/internal/telegram"
)

// WireLogger receives every raw line read from the socket,
// already escaped for non-ASCII/backslash bytes, tagged with the
// originating server.
type WireLogger interface {
	LogLine(server, line string)
}

// NoopWireLogger discards wire lines.
type NoopWireLogger struct{}

func (NoopWireLogger) LogLine(string, string) {}

// Client holds the fixed configuration needed to discover a server and log
// in. A Client itself is stateless; each Connect call produces an
// independent Connection.
type Client struct {
	ID            string
	TerminalID    string
	Password      string
	ServerListURL string
	HTTPClient    *http.Client
	WireLog       WireLogger
}

// NewClient constructs a Client with sane defaults for HTTPClient/WireLog
// when left zero.
func NewClient(id, terminalID, password, serverListURL string) *Client {
	return &Client{
		ID:            id,
		TerminalID:    terminalID,
		Password:      password,
		ServerListURL: serverListURL,
		HTTPClient:    &http.Client{Timeout: 10 * time.Second},
		WireLog:       NoopWireLogger{},
	}
}

// RetrieveServer fetches the LF-separated server list and returns one
// entry chosen uniformly at random.
func (c *Client) RetrieveServer(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.ServerListURL, nil)
	if err != nil {
		return "", newError(ErrNetwork)
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", newError(ErrNetwork)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", newError(ErrNetwork)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", newError(ErrNetwork)
	}

	var servers []string
	for _, line := range strings.Split(string(body), "\n") {
		if line != "" {
			servers = append(servers, line)
		}
	}
	if len(servers) == 0 {
		return "", newError(ErrNetwork)
	}
	return servers[rand.Intn(len(servers))], nil
}

// Connect picks a server and opens an authenticated Connection.
func (c *Client) Connect(ctx context.Context) (*Connection, error) {
	server, err := c.RetrieveServer(ctx)
	if err != nil {
		return nil, err
	}
	return openConnection(server, c.ID, c.TerminalID, c.Password, c.WireLog)
}

// State is the connection lifecycle, per the Disconnected -> ServerPicked
// -> Authenticating -> Ready -> {TooSlow|Closed|NetworkError} machine.
type State int

const (
	StateDisconnected State = iota
	StateServerPicked
	StateAuthenticating
	StateReady
	StateTooSlow
	StateClosed
	StateNetworkError
)

// Connection is a single authenticated TCP session to one WNI server.
// Only one goroutine may drive a Connection at a time.
type Connection struct {
	server  string
	conn    net.Conn
	reader  *bufio.Reader
	wireLog WireLogger
	state   State
	tooSlow bool
}

func openConnection(server, id, terminalID, password string, wireLog WireLogger) (*Connection, error) {
	conn, err := net.DialTimeout("tcp", server, connectionTimeout)
	if err != nil {
		return nil, newError(ErrNetwork)
	}
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetNoDelay(true)
	}
	return newConnection(server, conn, id, terminalID, password, wireLog)
}

// newConnection drives the login handshake over an already-open conn. It is
// factored out of openConnection so tests can exercise the protocol logic
// over an in-process net.Pipe instead of a real TCP dial.
func newConnection(server string, conn net.Conn, id, terminalID, password string, wireLog WireLogger) (*Connection, error) {
	if wireLog == nil {
		wireLog = NoopWireLogger{}
	}
	_ = conn.SetDeadline(time.Now().Add(connectionTimeout))

	c := &Connection{
		server:  server,
		conn:    conn,
		reader:  bufio.NewReader(conn),
		wireLog: wireLog,
		state:   StateServerPicked,
	}

	c.state = StateAuthenticating
	if err := c.login(id, terminalID, password); err != nil {
		conn.Close()
		c.state = StateNetworkError
		return nil, err
	}
	c.state = StateReady
	return c, nil
}

func (c *Connection) log(line []byte) {
	c.wireLog.LogLine(c.server, escapeWireLine(line))
}

func (c *Connection) login(id, terminalID, password string) error {
	now := time.Now()
	req := loginRequest(id, terminalID, password, now)
	if err := c.write(req); err != nil {
		return err
	}

	headers, err := readHeaders(c.reader, c.log)
	if err != nil {
		return err
	}
	if !headerLineEquals(headers, "X-WNI-Result: OK") {
		return newError(ErrAuthentication)
	}
	return nil
}

func (c *Connection) write(s string) error {
	_ = c.conn.SetDeadline(time.Now().Add(connectionTimeout))
	if _, err := io.WriteString(c.conn, s); err != nil {
		return newError(ErrNetwork)
	}
	return nil
}

func (c *Connection) writeResponse() error {
	return c.write(keepAliveResponse(time.Now()))
}

// Server returns the host:port this connection is attached to.
func (c *Connection) Server() string { return c.server }

// Close releases the underlying TCP connection.
func (c *Connection) Close() error {
	c.state = StateClosed
	return c.conn.Close()
}

// WaitForTelegram blocks until either a data frame arrives (in which case
// it is parsed and returned) or an error terminates the connection. Keep-
// alive frames are answered transparently and do not return. A data frame
// whose telegram fails to parse is still answered and yields an ErrParse
// error; the connection stays usable after it. A connection
// that has been marked too slow always fails fast with ErrTooSlow.
func (c *Connection) WaitForTelegram(ctx context.Context, dicts *telegram.Dictionaries) (*eew.Event, error) {
	if c.tooSlow {
		return nil, newError(ErrTooSlow)
	}

	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(connectionTimeout))
		headers, err := readHeaders(c.reader, c.log)
		if err != nil {
			return nil, err
		}

		if headerLineEquals(headers, "X-WNI-ID: Data") {
			c.checkDelay(headers)
			break
		}
		if !headerLineEquals(headers, "X-WNI-ID: Keep-Alive") {
			return nil, newError(ErrInvalidData)
		}
		if err := c.writeResponse(); err != nil {
			return nil, err
		}
	}

	buf, err := readUntilByte(c.reader, etx, c.log)
	if err != nil {
		return nil, err
	}

	payload, err := extractPayload(buf)
	if err != nil {
		return nil, err
	}

	ev, perr := telegram.Parse(payload, dicts)
	if perr != nil {
		// The frame is malformed or un-dictionaried, but the connection
		// itself is still healthy: respond and let the caller decide what
		// to do with a parse failure (log and drop per policy).
		if werr := c.writeResponse(); werr != nil {
			return nil, werr
		}
		return nil, newParseWniError(perr)
	}

	if err := c.writeResponse(); err != nil {
		return nil, err
	}
	return ev, nil
}

func (c *Connection) checkDelay(headers [][]byte) {
	dateRaw, hasDate := findHeader(headers, "Date: ")
	timeRaw, hasTime := findHeader(headers, "X-WNI-Time: ")
	if !hasDate || !hasTime {
		return
	}
	date, ok1 := parseHeaderDate(string(dateRaw))
	wniTime, ok2 := parseWniTime(string(timeRaw))
	if !ok1 || !ok2 {
		return
	}
	delta := date.Sub(wniTime)
	if delta > delayThreshold {
		c.tooSlow = true
	}
}

func readUntilByte(r *bufio.Reader, marker byte, logLine func([]byte)) ([]byte, error) {
	buf, err := r.ReadBytes(marker)
	if err != nil {
		if len(buf) == 0 {
			return nil, newError(ErrConnectionClosed)
		}
		return nil, newError(ErrNetwork)
	}
	if logLine != nil {
		logLine(buf)
	}
	if buf[len(buf)-1] != marker {
		return nil, newError(ErrConnectionClosed)
	}
	return buf, nil
}
