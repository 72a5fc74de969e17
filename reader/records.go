package reader

import (
	"fmt"
	"time"

	"github.com/kbukum/gears/codec"
)

// KeyRecord is a Redis key and its value. Event is the keyspace event that
// triggered the record and is empty for scans.
type KeyRecord struct {
	Key   string
	Type  string
	Value any
	Event string
}

// StreamRecord is one Redis stream entry.
type StreamRecord struct {
	Stream string
	ID     string
	Values map[string]string
}

// KafkaMessage is one consumed Kafka message.
type KafkaMessage struct {
	Topic     string
	Partition int
	Offset    int64
	Key       string
	Value     []byte
	Headers   map[string]string
	Time      time.Time
}

func init() {
	for _, v := range []any{KeyRecord{}, StreamRecord{}, KafkaMessage{}, map[string]string{}} {
		if err := codec.Register(v); err != nil {
			panic(fmt.Sprintf("register %T: %v", v, err))
		}
	}
}
