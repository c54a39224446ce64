package wni

import (
	"bufio"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"
)

const (
	connectionTimeout = 3 * time.Minute
	delayThreshold    = 2000 * time.Millisecond

	stx = 0x02
	etx = 0x03
)

// headerDateFormat and wniTimeFormat mirror the two distinct timestamp
// encodings the WNI wire protocol uses: the HTTP-style Date header (RFC
// 1123 with microsecond precision, always rendered as UTC) and the
// provider-specific X-WNI-Time header.
const (
	headerDateFormat = "Mon, 02 Jan 2006 15:04:05.000000 UTC"
	wniTimeFormat    = "2006/01/02 15:04:05.000000"
)

func formatHeaderDate(t time.Time) string {
	return t.UTC().Format(headerDateFormat)
}

func parseHeaderDate(s string) (time.Time, bool) {
	t, err := time.Parse(headerDateFormat, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func formatWniTime(t time.Time) string {
	return t.UTC().Format(wniTimeFormat)
}

func parseWniTime(s string) (time.Time, bool) {
	t, err := time.Parse(wniTimeFormat, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

func hashPassword(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// loginRequest renders the HTTP/1.0-style login request block.
func loginRequest(id, terminalID, password string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "GET /login HTTP/1.0\n")
	fmt.Fprintf(&b, "Accept: */*\n")
	fmt.Fprintf(&b, "Accept-Language: ja\n")
	fmt.Fprintf(&b, "Cache-Control: no-cache\n")
	fmt.Fprintf(&b, "Date: %s\n", formatHeaderDate(now))
	fmt.Fprintf(&b, "User-Agent: FastCaster/1.0 powered by Weathernews.\n")
	fmt.Fprintf(&b, "X-WNI-Account: %s\n", id)
	fmt.Fprintf(&b, "X-WNI-Application-Version: 2.4.2\n")
	fmt.Fprintf(&b, "X-WNI-Authentication-Method: MDB_MWS\n")
	fmt.Fprintf(&b, "X-WNI-ID: Login\n")
	fmt.Fprintf(&b, "X-WNI-Password: %s\n", hashPassword(password))
	fmt.Fprintf(&b, "X-WNI-Protocol-Version: 2.1\n")
	fmt.Fprintf(&b, "X-WNI-Terminal-ID: %s\n", terminalID)
	fmt.Fprintf(&b, "X-WNI-Time: %s\n\n", formatWniTime(now))
	return b.String()
}

// keepAliveResponse renders the response block sent after every keep-alive
// or data block: a 200 status line plus the fixed set of response headers.
func keepAliveResponse(now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "HTTP/1.0 200 OK\n")
	fmt.Fprintf(&b, "Content-Type: application/fast-cast\n")
	fmt.Fprintf(&b, "Date: %s\n", formatHeaderDate(now))
	fmt.Fprintf(&b, "Server: FastCaster/1.0.0 (Unix)\n")
	fmt.Fprintf(&b, "X-WNI-ID: Response\n")
	fmt.Fprintf(&b, "X-WNI-Protocol-Version: 2.1\n")
	fmt.Fprintf(&b, "X-WNI-Result: OK\n")
	fmt.Fprintf(&b, "X-WNI-Time: %s\n\n", formatWniTime(now))
	return b.String()
}

func headerLineEquals(headers [][]byte, want string) bool {
	for _, h := range headers {
		if string(h) == want {
			return true
		}
	}
	return false
}

func findHeader(headers [][]byte, prefix string) ([]byte, bool) {
	for _, h := range headers {
		if strings.HasPrefix(string(h), prefix) {
			return h[len(prefix):], true
		}
	}
	return nil, false
}

// readHeaders reads LF-terminated header lines until an empty line,
// stripping the trailing LF from each.
func readHeaders(r *bufio.Reader, logLine func([]byte)) ([][]byte, error) {
	var headers [][]byte
	for {
		line, err := readLine(r, logLine)
		if err != nil {
			return nil, err
		}
		if len(line) == 0 {
			return headers, nil
		}
		headers = append(headers, line)
	}
}

// readLine reads a single LF-terminated line (LF stripped), logging the raw
// bytes (LF included) before returning.
func readLine(r *bufio.Reader, logLine func([]byte)) ([]byte, error) {
	buf, err := r.ReadBytes('\n')
	if err != nil {
		if len(buf) == 0 {
			return nil, newError(ErrConnectionClosed)
		}
		return nil, newError(ErrNetwork)
	}
	if logLine != nil {
		logLine(buf)
	}
	return buf[:len(buf)-1], nil
}

// escapeWireLine formats a raw wire line the way the dedicated wire log
// sink expects: non-ASCII and backslash bytes escaped as \xNN, with the
// trailing LF dropped.
func escapeWireLine(data []byte) string {
	end := len(data)
	if end > 0 && data[end-1] == '\n' {
		end--
	}
	var b strings.Builder
	for _, c := range data[:end] {
		if c < 0x80 && c != '\\' {
			b.WriteByte(c)
		} else {
			fmt.Fprintf(&b, "\\x%02x", c)
		}
	}
	return b.String()
}

// extractPayload finds the STX/ETX-framed payload in a buffer read up to
// and including a trailing ETX. The payload is everything strictly between
// the byte following the last STX and the byte preceding the final ETX.
func extractPayload(buf []byte) ([]byte, error) {
	if len(buf) < 2 || buf[len(buf)-1] != etx {
		return nil, newError(ErrInvalidData)
	}
	stxIndex := -1
	for i := len(buf) - 1; i >= 0; i-- {
		if buf[i] == stx {
			stxIndex = i
			break
		}
	}
	if stxIndex < 0 {
		return nil, newError(ErrInvalidData)
	}
	left := stxIndex + 2
	right := len(buf) - 2
	if left >= right {
		return nil, newError(ErrInvalidData)
	}
	return buf[left:right], nil
}
