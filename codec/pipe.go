package codec

// Pipe is one ordered edge: values sent on it are encoded by a single
// Encoder and decoded by a single Decoder in production order.
type Pipe struct {
	enc *Encoder
	dec *Decoder
}

// NewPipe returns an empty edge.
func NewPipe() *Pipe {
	return &Pipe{enc: NewEncoder(), dec: NewDecoder()}
}

// Send encodes v and returns the frame that was queued for Receive.
func (p *Pipe) Send(v any, reset bool) ([]byte, error) {
	frame, err := p.enc.Encode(v, reset)
	if err != nil {
		return nil, err
	}
	p.dec.AddData(frame)
	return frame, nil
}

// Receive decodes the next queued value.
func (p *Pipe) Receive() (any, error) {
	return p.dec.Decode()
}

// RoundTrip sends v and immediately receives it.
func (p *Pipe) RoundTrip(v any, reset bool) (any, error) {
	if _, err := p.Send(v, reset); err != nil {
		return nil, err
	}
	return p.Receive()
}
