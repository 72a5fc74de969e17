// Package local is an in-process execution engine.
//
// A run reads every record of a Source and pushes it through the chain on
// one worker slot. A registration subscribes to a Subscriber and triggers an
// execution per batch of records, on the slot pool according to its mode.
// Each step sits between two codec edges: records reach a step as frames of
// the upstream stream and leave it as frames of its own. Fold steps hold
// their state per execution as standalone frames and emit it when the input
// is exhausted.
//
// Commands go to an optional Store, normally a *redis.Client.
package local
