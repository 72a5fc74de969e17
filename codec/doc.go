// Package codec turns records, accumulators and step descriptors into bytes
// that can cross the engine boundary, and back.
//
// Values are gob-encoded as interfaces so their concrete type travels with
// them. Each Encode call yields one self-delimiting frame:
//
//	[flags byte][uvarint payload length][gob payload]
//
// An Encoder remembers which type definitions it already sent, so frames from
// one Encoder must be decoded in order by one Decoder. Passing reset=true
// starts a new gob stream and marks the frame so the Decoder restarts too.
// Concrete types carried inside interfaces must be registered with Register.
package codec
