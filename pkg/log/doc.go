/*
Package log provides structured logging for AegisFS using zerolog.

The log package wraps zerolog to give every process (MDS, DataNode, and
embedders of pkg/client) a single global logger with component-scoped
child loggers, configurable level and output format, and a handful of
package-level helpers for the common case.

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: true,
		Output:     os.Stdout,
	})

	mdsLog := log.WithComponent("mds")
	mdsLog.Info().Msg("listening on 127.0.0.1:9000")

	txLog := log.WithTxID(txid)
	txLog.Debug().Str("path", path).Msg("commit")

JSON output (production):

	{"level":"info","component":"mds","time":"...","message":"listening on 127.0.0.1:9000"}

Console output (development):

	2026-01-15T10:30:00Z INF listening on 127.0.0.1:9000 component=mds
*/
package log
