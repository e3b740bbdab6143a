package domain

import "errors"

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrMaxUsesReached     = errors.New("activation code device limit reached")
	ErrSessionExpired     = errors.New("admin session has expired")
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrReadDatabaseRow    = errors.New("failed to read database row")
	ErrInvalidExecContext = errors.New("invalid executor context")
)
