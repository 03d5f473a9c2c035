// Package logging builds the service's *slog.Logger.
//
// New selects a JSON or text handler from configuration and wraps it in a
// ContextHandler, which appends request_id, experiment_id, actor and the
// active trace and span IDs found in the context:
//
//	logger, err := logging.New(logging.FromConfig(&cfg.Telemetry.Logging, os.Stderr))
//	ctx = logging.WithRequestID(ctx, id)
//	logger.InfoContext(ctx, "experiment started", "experiment_id", exp.ID)
//
// With RedactPII set, a Redactor masks values stored under sensitive keys
// (token, secret, password, ...) and scrubs bearer tokens, API keys and
// email addresses from string values.
package logging
