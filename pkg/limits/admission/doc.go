// Package admission provides the concurrency gate that bounds how many
// experiments may be running at once.
//
// Slots is a counting semaphore with a non-blocking TryAcquire. It never
// blocks and never queues: a denied caller is expected to surface a retryable
// error to its own caller. Release refuses to drive the counter below zero, so
// an accounting bug shows up as an error instead of a silently inflated
// ceiling.
package admission
