package ports

// Logger defines the interface for logging.
//
//go:generate go run go.uber.org/mock/mockgen -source=logger.go -destination=mocks/mock_logger.go -package=mocks
type Logger interface {
	// Info logs an informational message.
	Info(msg string)
	// Warn logs a recoverable anomaly, such as a stale lockfile or a skipped dependency.
	Warn(msg string)
	// Error logs an error with its cause chain.
	Error(err error)
}
