// Package recorder writes lifecycle evidence records asynchronously.
//
// Record never blocks on storage: records go onto a buffered channel and a
// single background worker writes them with a per-write timeout. Close stops
// accepting new records and drains what is already queued.
//
// Records without an ID get a UUID v4; records without a Timestamp get the
// time they were enqueued. RecordedAt is set when the worker writes them.
package recorder
