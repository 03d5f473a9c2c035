// Package retention prunes old evidence.
//
// A Pruner applies two independent limits: records older than RetentionDays
// are deleted, and if more than MaxRecords remain the oldest are deleted
// until the count fits. Either limit set to zero is disabled. Pruned
// records can be archived to a JSON file first.
//
// A Scheduler runs the pruner on a standard five-field cron expression.
package retention
