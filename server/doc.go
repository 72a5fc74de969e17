// Package server is the admin HTTP API of a gears process.
//
// Routes:
//
//	GET    /health                 component health
//	GET    /info                   build information
//	GET    /v1/registrations       active registrations
//	GET    /v1/registrations/:id   one registration
//	DELETE /v1/registrations/:id   unregister
//	POST   /v1/execute             run a command against the engine store
//
// Request logging, request ids and panic recovery wrap every route at the
// net/http level (server/middleware).
package server
