// Package engine defines the call surface between pipeline builders and the
// execution engine that runs them.
//
// The engine owns scheduling and distribution. Builders only create a
// pipeline handle, append encoded step descriptors to it, and then either run
// it once against a reader or register it for continuous execution. Every
// primitive may fail; callers surface failures as ENGINE_CALL_ERROR.
package engine
