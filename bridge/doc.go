// Package bridge is the callback layer an engine uses to run pipeline steps.
//
// Every callback follows the same bracket: enter the pipeline scope on the
// worker slot, decode the inputs, invoke the user function, encode the
// outputs, exit the scope. The exit is deferred so the slot is cleared on
// success, on error and on panic. Panics and user errors become
// TRANSFORM_ERROR values carrying the captured stack trace.
package bridge
