/*
Package log provides structured logging for the metastore coordinator using
zerolog.

# Architecture

A single global zerolog.Logger, initialized once via Init(Config), with
component-scoped children obtained via WithComponent. Components used
elsewhere in this module: "txcontroller", "committer", "writeintent".

# Usage

	log.Init(log.Config{Level: log.InfoLevel, JSONOutput: true})
	logger := log.WithComponent("committer")
	logger.Warn().Str("path", p).Err(err).Msg("cleanup failed, continuing")

Swallowed cleanup failures (Phase F, D-3, D-5, and recursive-delete listing
failures) are always logged at Warn before being discarded, never silently
dropped.
*/
package log
