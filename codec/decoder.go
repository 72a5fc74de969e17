package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	stderrors "errors"
	"fmt"

	"github.com/kbukum/gears/errors"
)

// ErrIncomplete is returned by Decode when the buffered bytes do not yet hold
// a whole frame. Nothing is consumed; add more data and call Decode again.
var ErrIncomplete = stderrors.New("codec: incomplete frame")

// maxFrame bounds a single payload so a corrupt length cannot exhaust memory.
const maxFrame = 256 << 20

// Decoder reassembles frames from arbitrary chunks and decodes them in order.
type Decoder struct {
	pending []byte
	stream  bytes.Buffer
	dec     *gob.Decoder
}

// NewDecoder returns an empty Decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// AddData appends a chunk of bytes produced by an Encoder.
func (d *Decoder) AddData(chunk []byte) {
	d.pending = append(d.pending, chunk...)
}

// Buffered returns the number of bytes not yet consumed.
func (d *Decoder) Buffered() int {
	return len(d.pending)
}

// Decode returns the value of the next complete frame. The absent marker
// decodes to nil.
func (d *Decoder) Decode() (any, error) {
	if len(d.pending) == 0 {
		return nil, ErrIncomplete
	}
	flags := d.pending[0]
	if flags&^knownFlags != 0 {
		d.Reset()
		return nil, errors.Deserialization("frame", fmt.Errorf("unknown flags %#x", flags))
	}
	size, n := binary.Uvarint(d.pending[1:])
	switch {
	case n == 0:
		return nil, ErrIncomplete
	case n < 0 || size > maxFrame:
		d.Reset()
		return nil, errors.Deserialization("frame", fmt.Errorf("invalid frame length"))
	}
	end := 1 + n + int(size)
	if len(d.pending) < end {
		return nil, ErrIncomplete
	}
	payload := d.pending[1+n : end]
	d.pending = d.pending[end:]

	if flags&flagReset != 0 {
		d.stream.Reset()
		d.dec = gob.NewDecoder(&d.stream)
	}
	if flags&flagNil != 0 {
		return nil, nil
	}
	if d.dec == nil {
		return nil, errors.Deserialization("frame", fmt.Errorf("stream has not been started"))
	}

	d.stream.Write(payload)
	var iv any
	if err := d.dec.Decode(&iv); err != nil {
		d.dec = nil
		d.stream.Reset()
		return nil, errors.Deserialization("record", err)
	}
	return iv, nil
}

// Reset drops buffered bytes and stream state.
func (d *Decoder) Reset() {
	d.pending = nil
	d.stream.Reset()
	d.dec = nil
}
