package store

import (
	domainerrors "github.com/listenupapp/bookshelf-server/internal/errors"
)

// Sentinel errors. Compare with errors.Is; they match any error of the same code.
var (
	ErrNotFound      = domainerrors.NotFound("record not found")
	ErrInvalidRecord = domainerrors.Validation("record has no id")
)
