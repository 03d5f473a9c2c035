// Package export writes evidence records as JSON or CSV.
//
// Both exporters have a batch form (Export) and a streaming form
// (ExportStream) that consumes the channel produced by
// evidence.Storage.QueryStream, so large audit trails never need to fit in
// memory.
package export
