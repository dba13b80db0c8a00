// Package wire implements the framed transport used by all talko servers
// and clients.
//
// A frame is a 10-byte header followed by the payload. The header is the
// ASCII decimal byte length of the payload, left-aligned and padded with
// spaces to exactly 10 bytes ("137       "). Payloads are UTF-8 JSON, but
// the framing layer treats them as opaque bytes.
package wire

import (
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	// HeaderLen is the fixed frame header size in bytes.
	HeaderLen = 10

	// chunkLen is the maximum number of payload bytes read per syscall.
	chunkLen = 4096

	// MaxPayloadLen is the largest payload length the 10-digit header can
	// describe.
	MaxPayloadLen = 9_999_999_999
)

var (
	// ErrInvalidHeader indicates a frame header that is not a decimal length.
	ErrInvalidHeader = errors.New("invalid frame header")

	// ErrFrameTooLarge indicates a frame whose advertised length exceeds the
	// reader's limit.
	ErrFrameTooLarge = errors.New("frame too large")

	// ErrPayloadTooLarge indicates a payload that cannot be described by the
	// 10-digit header.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// WriteFrame writes one frame to w. Empty payloads are legal and produce a
// header of "0" followed by nothing.
//
// Header and payload are written with a single Write call so that a frame
// is never split across an interrupted writer.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayloadLen {
		return fmt.Errorf("%w: %d bytes", ErrPayloadTooLarge, len(payload))
	}

	buf := make([]byte, 0, HeaderLen+len(payload))
	buf = fmt.Appendf(buf, "%-*d", HeaderLen, len(payload))
	buf = append(buf, payload...)

	if _, err := w.Write(buf); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r.
//
// A clean EOF before the first header byte is returned as io.EOF so that
// keep-alive readers can treat it as end of stream. EOF inside a header or
// payload is a transport error wrapping io.ErrUnexpectedEOF.
func ReadFrame(r io.Reader) ([]byte, error) {
	return ReadFrameLimit(r, 0)
}

// ReadFrameLimit reads one frame from r, rejecting frames whose advertised
// payload length exceeds limit. A limit of 0 means no limit. The payload of
// a rejected frame is not consumed; the connection is no longer in sync and
// should be closed.
func ReadFrameLimit(r io.Reader, limit int64) ([]byte, error) {
	header := make([]byte, HeaderLen)
	if _, err := io.ReadFull(r, header); err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("failed to read frame header: %w", err)
	}

	length, err := parseHeader(header)
	if err != nil {
		return nil, err
	}
	if limit > 0 && length > limit {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrFrameTooLarge, length, limit)
	}

	payload := make([]byte, length)
	if err := readChunked(r, payload); err != nil {
		return nil, fmt.Errorf("failed to read frame payload: %w", err)
	}
	return payload, nil
}

// parseHeader decodes the padded decimal length from a raw header.
func parseHeader(header []byte) (int64, error) {
	text := strings.TrimRight(string(header), " ")
	length, err := strconv.ParseInt(text, 10, 64)
	if err != nil || length < 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidHeader, string(header))
	}
	return length, nil
}

// readChunked fills buf from r in reads of at most chunkLen bytes.
func readChunked(r io.Reader, buf []byte) error {
	for off := 0; off < len(buf); {
		end := off + chunkLen
		if end > len(buf) {
			end = len(buf)
		}
		n, err := io.ReadFull(r, buf[off:end])
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return err
		}
		off += n
	}
	return nil
}

// ReadAvailable drains the frames currently buffered on conn without
// blocking for new data.
//
// The first byte of each frame is polled with an immediate read deadline;
// once a frame has started arriving, the remainder is read without a
// deadline. Returns the complete frames drained so far plus io.EOF if the
// peer closed the stream.
func ReadAvailable(conn net.Conn) ([][]byte, error) {
	var frames [][]byte

	for {
		if err := conn.SetReadDeadline(time.Now()); err != nil {
			return frames, fmt.Errorf("failed to arm read deadline: %w", err)
		}

		first := make([]byte, 1)
		_, err := io.ReadFull(conn, first)
		if err != nil {
			_ = conn.SetReadDeadline(time.Time{})
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				return frames, nil
			}
			if err == io.EOF {
				return frames, io.EOF
			}
			return frames, fmt.Errorf("failed to read frame header: %w", err)
		}

		if err := conn.SetReadDeadline(time.Time{}); err != nil {
			return frames, fmt.Errorf("failed to clear read deadline: %w", err)
		}

		header := make([]byte, HeaderLen)
		header[0] = first[0]
		if _, err := io.ReadFull(conn, header[1:]); err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return frames, fmt.Errorf("failed to read frame header: %w", err)
		}

		length, err := parseHeader(header)
		if err != nil {
			return frames, err
		}

		payload := make([]byte, length)
		if err := readChunked(conn, payload); err != nil {
			return frames, fmt.Errorf("failed to read frame payload: %w", err)
		}
		frames = append(frames, payload)
	}
}
