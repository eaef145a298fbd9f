// Package service holds the business rules behind every API operation.
package service

import (
	"errors"
	"strings"

	"quill/internal/models"
	"quill/internal/repository"
)

// internalError wraps unexpected errors as Internal and passes AppErrors
// through unchanged.
func internalError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return models.NewInternalError(err)
}

// translate maps repository errors: record-not-found becomes notFound,
// anything else Internal.
func translate(err error, notFound *models.AppError) error {
	if err == nil {
		return nil
	}
	if repository.IsNotFound(err) && notFound != nil {
		return notFound
	}
	return internalError(err)
}

func requireCaller(caller models.Identity) error {
	if caller.Anonymous() {
		return models.NewUnauthorizedError("Access denied. Token missing or malformed.")
	}
	return nil
}

// spanError is what a span records for err: only Internal failures mark a
// span as errored. Outcomes such as Conflict or NotFound are attributes.
func spanError(err error) error {
	if err != nil && models.KindOf(err) == models.KindInternal {
		return err
	}
	return nil
}

func outcome(err error, ok string) string {
	if err == nil {
		return ok
	}
	return strings.ToLower(string(models.KindOf(err)))
}
