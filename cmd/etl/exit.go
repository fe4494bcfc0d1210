package main

import (
	"errors"

	"github.com/couchcryptid/avalanche-forecast-etl/internal/adapter/avalanche"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/adapter/publisher"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/domain"
	"github.com/couchcryptid/avalanche-forecast-etl/internal/runlock"
)

// Process exit codes.
const (
	exitOK = iota
	exitUsage
	exitTransport
	exitNormalize
	exitPublish
	exitLocked
)

func exitCode(err error) int {
	if err == nil {
		return exitOK
	}

	var nerr *domain.NormalizeError
	var perr *publisher.PublishError
	switch {
	case errors.Is(err, runlock.ErrAlreadyRunning):
		return exitLocked
	case errors.Is(err, avalanche.ErrTransport):
		return exitTransport
	case errors.As(err, &nerr):
		return exitNormalize
	case errors.As(err, &perr):
		return exitPublish
	default:
		return exitUsage
	}
}
