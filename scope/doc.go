// Package scope manages the execution context user functions run in.
//
// A Scope is a function table: user functions are bound into it and
// referenced by id in serialized step descriptors, so only code running
// inside the same Scope can resolve them. A Slot is the ambient context of
// one engine worker; every engine-triggered callback enters the pipeline's
// Scope on its Slot before decoding and exits afterwards, on every path.
package scope
