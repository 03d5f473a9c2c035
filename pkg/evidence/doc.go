// Package evidence records an append-only audit trail of experiment
// governance: every creation, admission decision, recorded result, budget
// alert, transition and promotion.
//
// # Architecture
//
//  1. Recorder (recorder) - enqueues records and writes them asynchronously
//  2. Storage (storage)   - persists records (SQLite, memory)
//  3. Query (query)       - validates and defaults query parameters
//  4. Export (export)     - JSON and CSV output
//  5. Retention           - age and count based pruning on a cron schedule
//
// # Recording Flow
//
// The experiment manager emits a Record after each committed transition. The
// recorder never blocks the manager beyond its write timeout; a record that
// cannot be enqueued is logged and dropped, and the transition itself is never
// rolled back because of an evidence failure.
//
// # Basic Usage
//
//	store, _ := storage.NewSQLiteStorage(storage.DefaultSQLiteConfig())
//	rec := recorder.NewRecorder(store, recorder.DefaultConfig())
//	defer rec.Close()
//
//	_ = rec.Record(ctx, &evidence.Record{
//	    ExperimentID: id,
//	    Type:         evidence.EventStarted,
//	    FromState:    "pending",
//	    ToState:      "running",
//	})
//
//	records, _ := store.Query(ctx, &evidence.Query{ExperimentID: id})
package evidence
