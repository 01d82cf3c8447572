package errors

// Common error codes
const (
	// System errors
	ErrInternal        ErrorCode = "internal_error"
	ErrInvalidArgument ErrorCode = "invalid_argument"
	ErrAlreadyRunning  ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidProfile  ErrorCode = "invalid_profile"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Initialization errors
	ErrInitFailed     ErrorCode = "initialization_failed"
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Control file errors
	ErrIO    ErrorCode = "io_error"
	ErrParse ErrorCode = "parse_error"

	// Hardware control errors
	ErrOutOfRange        ErrorCode = "out_of_range"
	ErrUnknownGovernor   ErrorCode = "unknown_governor"
	ErrUnsupportedDriver ErrorCode = "unsupported_driver_operation"
	ErrPartialFailure    ErrorCode = "partial_failure"
	ErrProfileNotFound   ErrorCode = "profile_not_found"
	ErrApplyProfile      ErrorCode = "apply_profile_failed"

	// Resource errors
	ErrResourceNotFound ErrorCode = "resource_not_found"

	// Operation errors
	ErrTimeout ErrorCode = "operation_timeout"

	// Metrics errors
	ErrInitMetrics    ErrorCode = "init_metrics_failed"
	ErrCollectMetrics ErrorCode = "collect_metrics_failed"
	ErrCloseMetrics   ErrorCode = "close_metrics_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:          "Internal error occurred",
	ErrInvalidArgument:   "Invalid argument provided",
	ErrAlreadyRunning:    "Another instance is already running",
	ErrInvalidConfig:     "Invalid configuration",
	ErrReadConfig:        "Failed to read configuration",
	ErrInvalidInterval:   "Invalid interval value",
	ErrInvalidProfile:    "Invalid profile definition",
	ErrInvalidLogLevel:   "Invalid log level",
	ErrInitFailed:        "Initialization failed",
	ErrShutdownFailed:    "Shutdown failed",
	ErrIO:                "Failed to access control file",
	ErrParse:             "Malformed control file content",
	ErrOutOfRange:        "Frequency outside hardware bounds",
	ErrUnknownGovernor:   "Governor not available",
	ErrUnsupportedDriver: "Operation not supported by scaling driver",
	ErrPartialFailure:    "Operation failed on some cores",
	ErrProfileNotFound:   "Profile not found",
	ErrApplyProfile:      "Failed to apply profile",
	ErrResourceNotFound:  "Resource not found",
	ErrTimeout:           "Operation timed out",
	ErrInitMetrics:       "Failed to initialize metrics",
	ErrCollectMetrics:    "Failed to collect metrics data",
	ErrCloseMetrics:      "Failed to close metrics connection",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
