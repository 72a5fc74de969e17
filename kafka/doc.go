// Package kafka configures kafka-go consumers for the gears Kafka reader.
//
// Config carries broker, group and security settings; NewReader builds a
// group reader with TLS and SASL applied. IsRetryableError classifies fetch
// failures so the reader can back off instead of ending a registration.
//
//	kafka:
//	  enabled: true
//	  brokers: ["localhost:9092"]
//	  group_id: "gears"
//	  topic: "events"
package kafka
