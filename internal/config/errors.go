package config

import "errors"

// Error variables for configuration loading.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrStoreEmpty         = errors.New("store cannot be empty")
	ErrUndoLevels         = errors.New("undo_levels must be positive")
	ErrLogLevel           = errors.New("unknown log_level")
	ErrDotEnv             = errors.New("cannot read .env file")
)
