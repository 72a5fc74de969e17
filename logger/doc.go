// Package logger provides structured logging for gears using zerolog.
//
// Besides the usual Debug/Info/Warn/Error helpers it understands the four
// pipeline log levels (debug, verbose, notice, warning) that user code emits
// through the engine, mapping them onto zerolog levels.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "json"
//	  pipeline_level: "verbose"   # drop pipeline debug messages
//
// # Usage
//
//	log := logger.New(&cfg, "gears").WithComponent("engine")
//	log.Info("pipeline registered", logger.Fields("registration", id))
//	log.Log(logger.LevelNotice, "user message")
package logger
