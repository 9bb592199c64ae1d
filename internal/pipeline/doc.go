// Package pipeline implements the concurrent scan and parse stage.
//
// A single Scanner walks the tree with fastwalk and pushes admitted files onto
// a bounded Queue. A pool of parser workers drains that queue, runs the parser
// chain, and pushes ScannedFile records onto a second queue that one collector
// goroutine consumes. Queue capacity is the only backpressure knob: producers
// block when a queue is full. Shutdown is by queue close; each worker exits
// once its input is closed and drained, and the output queue is closed after
// every worker has returned.
//
// Statistics are kept in independent atomic counters so producers never
// contend on a shared lock.
package pipeline
