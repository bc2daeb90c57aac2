// Package logger provides structured logging for ytfetch.
//
// Features:
//   - Levels TRACE, DEBUG, INFO, WARN, ERROR and FATAL (FATAL exits the process)
//   - Component-based filtering
//   - Text, JSON and color output
//   - Child loggers carrying fixed fields such as a run id
//
// Usage:
//
//	log := logger.WithComponent(logger.ComponentTransport)
//	log.Debug("redirect", map[string]interface{}{
//		"status":   302,
//		"location": "https://example.com/next",
//	})
//
//	cfg := logger.DefaultLogConfig()
//	cfg.ApplyEnvironment()
//	l, err := logger.CreateLoggerFromConfig(cfg)
//	if err == nil {
//		logger.SetGlobalLogger(l)
//	}
package logger
