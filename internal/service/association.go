package service

import (
	"context"

	"quill/internal/models"
	"quill/internal/observability"
	"quill/internal/repository"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// associationStore is a join table keyed by (subject, object).
type associationStore interface {
	Exists(ctx context.Context, subjectID, objectID uint) (bool, error)
	Create(ctx context.Context, subjectID, objectID uint) error
	Delete(ctx context.Context, subjectID, objectID uint) (int64, error)
}

// associationManager adds and removes at most one link per pair. The
// duplicate check, the reference check and the insert share a transaction;
// the unique index settles races between concurrent adds.
type associationManager struct {
	name      string
	tx        repository.Transactor
	store     associationStore
	verify    func(ctx context.Context, subjectID, objectID uint) error
	duplicate string
	missing   string
}

func (m *associationManager) add(ctx context.Context, subjectID, objectID uint) (err error) {
	ctx, end := m.span(ctx, "association.add", subjectID, objectID)
	defer func() { end(err, "linked") }()

	return m.tx.InTx(ctx, func(ctx context.Context) error {
		linked, err := m.store.Exists(ctx, subjectID, objectID)
		if err != nil {
			return internalError(err)
		}
		if linked {
			return models.NewConflictError(m.duplicate)
		}

		if m.verify != nil {
			if err := m.verify(ctx, subjectID, objectID); err != nil {
				return err
			}
		}

		if err := m.store.Create(ctx, subjectID, objectID); err != nil {
			if repository.IsUniqueViolation(err) {
				return models.NewConflictError(m.duplicate)
			}
			return internalError(err)
		}
		return nil
	})
}

func (m *associationManager) remove(ctx context.Context, subjectID, objectID uint) (err error) {
	ctx, end := m.span(ctx, "association.remove", subjectID, objectID)
	defer func() { end(err, "removed") }()

	rows, err := m.store.Delete(ctx, subjectID, objectID)
	if err != nil {
		return internalError(err)
	}
	if rows == 0 {
		return models.NewNotFoundMessage(m.missing)
	}
	return nil
}

func (m *associationManager) linked(ctx context.Context, subjectID, objectID uint) (bool, error) {
	ok, err := m.store.Exists(ctx, subjectID, objectID)
	if err != nil {
		return false, internalError(err)
	}
	return ok, nil
}

func (m *associationManager) span(ctx context.Context, name string, subjectID, objectID uint) (context.Context, func(err error, ok string)) {
	ctx, end := observability.StartSpan(ctx, name,
		attribute.String("association.name", m.name),
		attribute.Int64("association.subject_id", int64(subjectID)),
		attribute.Int64("association.object_id", int64(objectID)),
	)
	return ctx, func(err error, ok string) {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("association.outcome", outcome(err, ok)))
		end(spanError(err))
	}
}
