package codec

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"

	"github.com/kbukum/gears/errors"
)

const (
	flagReset byte = 1 << iota
	flagNil

	knownFlags = flagReset | flagNil
)

// Encoder produces frames for one ordered stream.
type Encoder struct {
	buf bytes.Buffer
	enc *gob.Encoder
}

// NewEncoder returns an Encoder whose first frame starts a new stream.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Encode serializes v into one frame. With reset the encoder forgets the type
// definitions it already sent and the frame is flagged so the decoder
// restarts. A nil v encodes the absent marker. On failure the gob stream is
// dropped and the next frame starts a new one.
func (e *Encoder) Encode(v any, reset bool) ([]byte, error) {
	var flags byte
	if reset || e.enc == nil {
		e.enc = gob.NewEncoder(&e.buf)
		flags |= flagReset
	}
	e.buf.Reset()

	if v == nil {
		// the stream is untouched, so a pending reset must still reach the decoder
		return appendFrame(nil, flags|flagNil, nil), nil
	}

	iv := v
	if err := e.enc.Encode(&iv); err != nil {
		e.enc = nil
		e.buf.Reset()
		return nil, errors.Serialization(typeName(v), err)
	}
	frame := appendFrame(make([]byte, 0, e.buf.Len()+binary.MaxVarintLen64+1), flags, e.buf.Bytes())
	e.buf.Reset()
	return frame, nil
}

// Reset makes the next frame start a new stream.
func (e *Encoder) Reset() {
	e.enc = nil
	e.buf.Reset()
}

func appendFrame(dst []byte, flags byte, payload []byte) []byte {
	dst = append(dst, flags)
	dst = binary.AppendUvarint(dst, uint64(len(payload)))
	return append(dst, payload...)
}
