package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/Leganyst/legal-marketplace/internal/domainerr"
)

// storeErr translates a repository error into a domain error.
// Driver text stays in the wrapped cause and never reaches Error().
func storeErr(err error, entity string) error {
	if err == nil {
		return nil
	}

	var de *domainerr.Error
	if errors.As(err, &de) {
		return err
	}

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return domainerr.Wrap(err, domainerr.CodeNotFound, entity+" not found")
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return domainerr.Wrap(err, domainerr.CodeConflict, entity+" already exists")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled), pgconn.Timeout(err):
		return domainerr.Wrap(err, domainerr.CodeTimeout, "store did not respond in time")
	default:
		return domainerr.Wrap(err, domainerr.CodeInternal, "store failure")
	}
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func validation(msg string) error {
	return domainerr.New(domainerr.CodeValidation, msg)
}
