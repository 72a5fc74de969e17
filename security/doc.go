// Package security builds client TLS settings for the Redis store and the
// Kafka reader from a single config shape.
//
//	tls:
//	  enabled: true
//	  ca_file: /etc/gears/ca.pem
//	  min_version: "1.3"
package security
