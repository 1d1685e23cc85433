package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidAmount      = errors.New("payment amount must be positive")
	ErrInvalidCycle       = errors.New("unknown billing cycle")
	ErrInvalidStatus      = errors.New("unknown billing status")
	ErrConflict           = errors.New("record changed concurrently")
	ErrNotDeployed        = errors.New("website is not deployed")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
)
