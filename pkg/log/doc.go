/*
Package log provides structured logging for MachaonWeb using zerolog.

The package wraps zerolog with a simple global logger plus helpers for the
fields that recur across the coordinator: component, node id, request id and
job id. Production deployments log JSON to a daily file; development runs
log to the console.

Usage:

	log.Init(log.Config{Level: log.InfoLevel})
	logger := log.WithComponent("scheduler")
	logger.Info().Int("node_id", 3).Msg("node synchronized")
*/
package log
