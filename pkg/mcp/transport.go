package mcp

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
)

// maxLineBytes bounds a single incoming message
const maxLineBytes = 16 * 1024 * 1024

// ErrMalformed is returned (wrapped) by ReadMessage when a line is not a valid request
var ErrMalformed = errors.New("malformed message")

// Transport handles MCP communication over stdio
type Transport struct {
	reader  *bufio.Reader
	writer  io.Writer
	mu      sync.Mutex
	maxLine int
}

// NewTransport creates a new stdio transport
func NewTransport(r io.Reader, w io.Writer) *Transport {
	return &Transport{
		reader:  bufio.NewReaderSize(r, 64*1024),
		writer:  w,
		maxLine: maxLineBytes,
	}
}

// ReadMessage reads one line-delimited JSON-RPC message.
// Blank lines are skipped. A line that does not parse or is too long returns an error
// wrapping ErrMalformed; the stream stays positioned at the next line.
func (t *Transport) ReadMessage() (*Request, error) {
	for {
		line, err := t.readLine()
		if errors.Is(err, ErrMalformed) {
			return nil, err
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(bytes.TrimSpace(line)) > 0 {
				return parseRequest(line)
			}
			return nil, err
		}
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		return parseRequest(line)
	}
}

func (t *Transport) readLine() ([]byte, error) {
	var buf []byte
	oversized := false
	for {
		chunk, isPrefix, err := t.reader.ReadLine()
		if !oversized {
			buf = append(buf, chunk...)
			if len(buf) > t.maxLine {
				oversized, buf = true, nil
			}
		}
		if oversized && (err != nil || !isPrefix) {
			return nil, fmt.Errorf("%w: message exceeds %d bytes", ErrMalformed, t.maxLine)
		}
		if err != nil {
			return buf, err
		}
		if !isPrefix {
			return buf, nil
		}
	}
}

func parseRequest(line []byte) (*Request, error) {
	var req Request
	if err := json.Unmarshal(line, &req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return &req, nil
}

// WriteResponse writes a JSON-RPC response to stdout
func (t *Transport) WriteResponse(resp *Response) error {
	data, err := json.Marshal(resp)
	if err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	_, err = fmt.Fprintf(t.writer, "%s\n", data)
	return err
}
