// Package logging provides structured logging using uber/zap.
//
// This package offers production-ready logging with two modes:
//   - Production: JSON output for machine parsing
//   - Development: Colored console output for human readability
//
// Log Levels:
//   - Debug: Verbose debugging information
//   - Info: General informational messages
//   - Warn: Warning messages
//   - Error: Error messages
//
// Tests use NewTest, which routes output through testing.TB so log lines
// only show up for failing or verbose runs.
//
// Example Usage:
//
//	logger := logging.NewDefault().Named("envcache")
//	logger.Info("environment built", zap.Stringer("version", v))
//	logger.Error("artifact fetch failed", zap.Error(err))
package logging
