// Package component defines lifecycle-managed services for the gears
// daemon: the Redis client, the local engine and the admin server.
//
// Components are started in registration order and stopped in reverse.
package component
