package client

import (
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFrame(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		kind   FrameKind
		text   string
		reason SkipReason
	}{
		{name: "fragment", line: `data: {"content":[{"text":"Hel"}]}`, kind: FrameFragment, text: "Hel"},
		{name: "only first block counts", line: `data: {"content":[{"text":"a"},{"text":"b"}]}`, kind: FrameFragment, text: "a"},
		{name: "carriage return", line: "data: {\"content\":[{\"text\":\"x\"}]}\r\n", kind: FrameFragment, text: "x"},
		{name: "text keeps whitespace", line: `data: {"content":[{"text":" \n"}]}`, kind: FrameFragment, text: " \n"},
		{name: "blank", line: "   ", kind: FrameSkip, reason: SkipBlank},
		{name: "not data", line: "not-data: ignore-me", kind: FrameSkip, reason: SkipNotData},
		{name: "prefix without space", line: `data:{"content":[{"text":"x"}]}`, kind: FrameSkip, reason: SkipNotData},
		{name: "event field", line: "event: message", kind: FrameSkip, reason: SkipNotData},
		{name: "done marker", line: "data: [DONE]", kind: FrameSkip, reason: SkipDone},
		{name: "not json", line: "data: not-json", kind: FrameSkip, reason: SkipParse},
		{name: "content not array", line: `data: {"content":"nope"}`, kind: FrameSkip, reason: SkipParse},
		{name: "text not string", line: `data: {"content":[{"text":5}]}`, kind: FrameSkip, reason: SkipParse},
		{name: "no content", line: `data: {"type":"ping"}`, kind: FrameSkip, reason: SkipEmpty},
		{name: "empty content", line: `data: {"content":[]}`, kind: FrameSkip, reason: SkipEmpty},
		{name: "missing text", line: `data: {"content":[{"type":"text"}]}`, kind: FrameSkip, reason: SkipEmpty},
		{name: "null payload", line: "data: null", kind: FrameSkip, reason: SkipEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame := DecodeFrame(tt.line)
			assert.Equal(t, tt.kind, frame.Kind)
			assert.Equal(t, tt.text, frame.Text)
			if tt.kind == FrameSkip {
				assert.Equal(t, tt.reason, frame.Reason)
			}
			if tt.reason == SkipParse {
				assert.ErrorIs(t, frame.Err, ErrFrameParse)
			} else {
				assert.NoError(t, frame.Err)
			}
		})
	}
}

func collect(t *testing.T, r io.Reader) string {
	t.Helper()
	var sb strings.Builder
	err := DecodeStream(r, func(f Frame) error {
		if f.IsFragment() {
			sb.WriteString(f.Text)
		}
		return nil
	})
	require.NoError(t, err)
	return sb.String()
}

const sampleStream = "data: {\"content\":[{\"text\":\"Hel\"}]}\n" +
	"data: {\"content\":[{\"text\":\"lo\"}]}\n" +
	"not-data: ignore-me\n" +
	"data: not-json\n"

func TestDecodeStreamHello(t *testing.T) {
	assert.Equal(t, "Hello", collect(t, strings.NewReader(sampleStream)))
}

func TestDecodeStreamIsRepeatable(t *testing.T) {
	first := collect(t, strings.NewReader(sampleStream))
	second := collect(t, strings.NewReader(sampleStream))
	assert.Equal(t, first, second)
}

func TestDecodeStreamOneByteReads(t *testing.T) {
	// lines and multi-byte characters split across every possible read boundary
	input := "data: {\"content\":[{\"text\":\"héllo \"}]}\n\n" +
		"data: {\"content\":[{\"text\":\"世界 🎉\"}]}\n"

	whole := collect(t, strings.NewReader(input))
	split := collect(t, iotest.OneByteReader(strings.NewReader(input)))

	assert.Equal(t, "héllo 世界 🎉", whole)
	assert.Equal(t, whole, split)
	assert.NotContains(t, split, "�")
}

func TestDecodeStreamLastLineWithoutNewline(t *testing.T) {
	input := "data: {\"content\":[{\"text\":\"a\"}]}\ndata: {\"content\":[{\"text\":\"b\"}]}"
	assert.Equal(t, "ab", collect(t, strings.NewReader(input)))
}

func TestDecodeStreamPreservesOrder(t *testing.T) {
	var frames []Frame
	input := "data: {\"content\":[{\"text\":\"1\"}]}\nx\ndata: {\"content\":[{\"text\":\"2\"}]}\n"
	require.NoError(t, DecodeStream(strings.NewReader(input), func(f Frame) error {
		frames = append(frames, f)
		return nil
	}))

	require.Len(t, frames, 3)
	assert.Equal(t, "1", frames[0].Text)
	assert.Equal(t, SkipNotData, frames[1].Reason)
	assert.Equal(t, "2", frames[2].Text)
}

func TestDecodeStreamTransportError(t *testing.T) {
	broken := io.MultiReader(
		strings.NewReader("data: {\"content\":[{\"text\":\"partial\"}]}\n"),
		iotest.ErrReader(errors.New("connection reset")),
	)

	var got string
	err := DecodeStream(broken, func(f Frame) error {
		got += f.Text
		return nil
	})

	var streamErr *StreamError
	require.ErrorAs(t, err, &streamErr)
	assert.EqualError(t, streamErr.Unwrap(), "connection reset")
	assert.Equal(t, "partial", got)
}

func TestDecodeStreamCallbackError(t *testing.T) {
	stop := errors.New("client went away")
	err := DecodeStream(strings.NewReader(sampleStream), func(f Frame) error {
		return stop
	})
	assert.ErrorIs(t, err, stop)
}
