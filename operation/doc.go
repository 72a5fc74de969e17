// Package operation describes the steps of a pipeline chain.
//
// An Operation is the engine-facing descriptor of one step: its kind, the
// record types on either side and references to the user functions bound in
// the pipeline's scope. The erased function types are what those references
// resolve to; the typed builder adapts user functions into them.
package operation
