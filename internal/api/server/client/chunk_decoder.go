package client

import (
	"errors"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ChunkDecoder decodes UTF-8 one chunk at a time. A character split across
// chunks is held back until the bytes completing it arrive; everything before
// it is returned right away.
type ChunkDecoder struct {
	decoder *encoding.Decoder
	pending []byte
}

func NewChunkDecoder() *ChunkDecoder {
	return &ChunkDecoder{decoder: unicode.UTF8.NewDecoder()}
}

// Decode returns the text completed by chunk. With final set, held bytes that
// never completed a character come out as U+FFFD.
func (d *ChunkDecoder) Decode(chunk []byte, final bool) (string, error) {
	src := make([]byte, 0, len(d.pending)+len(chunk))
	src = append(src, d.pending...)
	src = append(src, chunk...)
	d.pending = nil

	// ill-formed bytes grow to three bytes each
	dst := make([]byte, 3*len(src)+4)
	nDst, nSrc, err := d.decoder.Transform(dst, src, final)
	switch {
	case err == nil:
	case errors.Is(err, transform.ErrShortSrc):
		d.pending = append(d.pending, src[nSrc:]...)
	default:
		return string(dst[:nDst]), err
	}
	return string(dst[:nDst]), nil
}
