// Package promotion hands promoted experiment configurations to the
// production catalog.
//
// The engine does not write the production catalog itself. When an
// experiment is promoted the manager passes its PromotionPayload to a
// Publisher:
//
//   - NATSPublisher publishes the payload as JSON on
//     "{subject_prefix}.{experiment_id}" and flushes so a nil error means the
//     broker accepted it.
//   - LogPublisher writes the payload to the structured log. It is the
//     default when no broker is configured.
//
// A failed publish does not roll back the promotion; the caller records the
// failure as evidence and the payload can be republished.
package promotion
