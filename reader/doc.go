// Package reader provides the record sources pipelines read from.
//
// Every reader has a name the engine uses to create the pipeline. Readers
// that implement engine.Source can be run once; readers that implement
// engine.Subscriber can be registered for continuous execution.
//
//	Reader     Run   Register   Record
//	Slice      yes   no         T
//	Channel    yes   yes        T
//	Keys       yes   yes        KeyRecord
//	Stream     yes   yes        StreamRecord
//	Kafka      no    yes        KafkaMessage
package reader
