package client

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const dataPrefix = "data: "

type FrameKind int

const (
	FrameSkip FrameKind = iota
	FrameFragment
)

// SkipReason says why a line produced no text.
type SkipReason string

const (
	SkipBlank   SkipReason = "blank"
	SkipNotData SkipReason = "not-data"
	SkipDone    SkipReason = "done"
	SkipParse   SkipReason = "parse"
	SkipEmpty   SkipReason = "empty"
)

// Frame is the decoded form of one upstream line: either a text fragment to
// forward or a skip.
type Frame struct {
	Kind   FrameKind
	Text   string
	Reason SkipReason
	// Err is set for SkipParse and wraps ErrFrameParse.
	Err error
	// Line is the raw line, kept for diagnostics.
	Line string
}

func (f Frame) IsFragment() bool {
	return f.Kind == FrameFragment
}

type upstreamEvent struct {
	Content []json.RawMessage `json:"content"`
}

type contentBlock struct {
	Text string `json:"text"`
}

func skip(line string, reason SkipReason, err error) Frame {
	return Frame{Kind: FrameSkip, Reason: reason, Err: err, Line: line}
}

// DecodeFrame decodes a single line of the upstream event stream. Only the
// first content block's text is significant.
func DecodeFrame(line string) Frame {
	line = strings.TrimRight(line, "\r\n")
	if strings.TrimSpace(line) == "" {
		return skip(line, SkipBlank, nil)
	}
	if !strings.HasPrefix(line, dataPrefix) {
		return skip(line, SkipNotData, nil)
	}

	payload := line[len(dataPrefix):]
	if strings.TrimSpace(payload) == "[DONE]" {
		return skip(line, SkipDone, nil)
	}

	var event upstreamEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		return skip(line, SkipParse, fmt.Errorf("%w: %v", ErrFrameParse, err))
	}
	if len(event.Content) == 0 {
		return skip(line, SkipEmpty, nil)
	}

	var block contentBlock
	if err := json.Unmarshal(event.Content[0], &block); err != nil {
		return skip(line, SkipParse, fmt.Errorf("%w: %v", ErrFrameParse, err))
	}
	if block.Text == "" {
		return skip(line, SkipEmpty, nil)
	}

	return Frame{Kind: FrameFragment, Text: block.Text, Line: line}
}

// DecodeStream reads newline separated frames from r until EOF and passes each
// decoded frame to fn in arrival order. Bytes are decoded as UTF-8
// incrementally, so characters split across reads are reassembled. A read
// failure is returned as a *StreamError; an error from fn is returned as is.
func DecodeStream(r io.Reader, fn func(Frame) error) error {
	reader := bufio.NewReader(unicode.UTF8.NewDecoder().Reader(r))
	for {
		line, err := reader.ReadString('\n')
		if line != "" {
			if fnErr := fn(DecodeFrame(line)); fnErr != nil {
				return fnErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return &StreamError{Err: err}
		}
	}
}
