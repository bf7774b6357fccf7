package service

import (
	"errors"

	"github.com/stemsi/analytics-middletier/internal/repository"
)

// Common service errors.
var (
	ErrNotFound           = repository.ErrNotFound
	ErrInvalidCredentials = errors.New("invalid client credentials")
	ErrUnknownPermission  = errors.New("unknown permission")
	ErrReportNotFound     = errors.New("verification report not found")
)
