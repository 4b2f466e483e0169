// Package logging provides structured logging using uber/zap.
//
// Production mode writes JSON; development mode writes colored console lines
// with stack traces. Each component gets a named child so every line carries a
// "component" field:
//
//	logger, err := logging.New(logging.Config{Level: "info"})
//	storeLog := logger.Component("store")
//	storeLog.Info("SQLite store opened", zap.String("path", path))
//	defer logger.Flush()
package logging
