package service

import (
	"context"

	"quill/internal/models"
	"quill/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ownershipGate loads a resource and admits only its owner. A mismatch is
// reported through denied: Forbidden for posts, NotFound for comments.
type ownershipGate[T any] struct {
	resource string
	load     func(ctx context.Context, id uint) (*T, error)
	owner    func(*T) uint
	notFound func(id uint) *models.AppError
	denied   func(id uint) *models.AppError
}

// authorize returns the resource when caller owns it.
func (g ownershipGate[T]) authorize(ctx context.Context, id uint, caller models.Identity) (_ *T, err error) {
	if err := requireCaller(caller); err != nil {
		return nil, err
	}

	ctx, end := observability.StartSpan(ctx, "ownership.authorize",
		attribute.String("ownership.resource", g.resource),
		attribute.Int64("ownership.resource_id", int64(id)),
		attribute.Int64("ownership.caller_id", int64(caller.ID)),
	)
	defer func() {
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("ownership.outcome", outcome(err, "allowed")))
		end(spanError(err))
	}()

	res, err := g.load(ctx, id)
	if err != nil {
		return nil, translate(err, g.notFound(id))
	}
	if g.owner(res) != caller.ID {
		return nil, g.denied(id)
	}
	return res, nil
}
