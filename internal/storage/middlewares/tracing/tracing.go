package tracing

import (
	"context"
	"time"

	"github.com/jdillenkofer/filedrop/internal/lifecycle"
	"github.com/jdillenkofer/filedrop/internal/storage"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type tracingStoreMiddleware struct {
	*lifecycle.ValidatedLifecycle
	regionName string
	tracer     trace.Tracer
	innerStore storage.ObjectStore
}

// Compile-time check to ensure tracingStoreMiddleware implements storage.ObjectStore
var _ storage.ObjectStore = (*tracingStoreMiddleware)(nil)

func NewStoreMiddleware(regionName string, innerStore storage.ObjectStore) (storage.ObjectStore, error) {
	return &tracingStoreMiddleware{
		ValidatedLifecycle: lifecycle.NewValidatedLifecycle("TracingStoreMiddleware"),
		regionName:         regionName,
		tracer:             otel.Tracer("internal/storage/middlewares/tracing"),
		innerStore:         innerStore,
	}, nil
}

func (tsm *tracingStoreMiddleware) startSpan(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return tsm.tracer.Start(ctx, tsm.regionName+"."+op, trace.WithAttributes(attrs...))
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func (tsm *tracingStoreMiddleware) Start(ctx context.Context) error {
	if err := tsm.ValidatedLifecycle.Start(ctx); err != nil {
		return err
	}
	return tsm.innerStore.Start(ctx)
}

func (tsm *tracingStoreMiddleware) Stop(ctx context.Context) error {
	if err := tsm.ValidatedLifecycle.Stop(ctx); err != nil {
		return err
	}
	return tsm.innerStore.Stop(ctx)
}

func (tsm *tracingStoreMiddleware) ObjectExists(ctx context.Context, key string) (bool, error) {
	ctx, span := tsm.startSpan(ctx, "ObjectExists", attribute.String("storage.key", key))
	exists, err := tsm.innerStore.ObjectExists(ctx, key)
	span.SetAttributes(attribute.Bool("storage.exists", exists))
	endSpan(span, err)
	return exists, err
}

func (tsm *tracingStoreMiddleware) ListObjects(ctx context.Context, prefix string, continuationToken *string) (*storage.ListObjectsResult, error) {
	ctx, span := tsm.startSpan(ctx, "ListObjects",
		attribute.String("storage.prefix", prefix),
		attribute.Bool("storage.continued", continuationToken != nil),
	)
	result, err := tsm.innerStore.ListObjects(ctx, prefix, continuationToken)
	if err == nil {
		span.SetAttributes(attribute.Int("storage.object_count", len(result.Objects)))
	}
	endSpan(span, err)
	return result, err
}

func (tsm *tracingStoreMiddleware) DeleteObject(ctx context.Context, key string) error {
	ctx, span := tsm.startSpan(ctx, "DeleteObject", attribute.String("storage.key", key))
	err := tsm.innerStore.DeleteObject(ctx, key)
	endSpan(span, err)
	return err
}

func (tsm *tracingStoreMiddleware) PresignGetObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	ctx, span := tsm.startSpan(ctx, "PresignGetObject",
		attribute.String("storage.key", key),
		attribute.Int64("storage.ttl_seconds", int64(ttl/time.Second)),
	)
	url, err := tsm.innerStore.PresignGetObject(ctx, key, ttl)
	endSpan(span, err)
	return url, err
}

func (tsm *tracingStoreMiddleware) PresignPutObject(ctx context.Context, key string, ttl time.Duration) (string, error) {
	ctx, span := tsm.startSpan(ctx, "PresignPutObject",
		attribute.String("storage.key", key),
		attribute.Int64("storage.ttl_seconds", int64(ttl/time.Second)),
	)
	url, err := tsm.innerStore.PresignPutObject(ctx, key, ttl)
	endSpan(span, err)
	return url, err
}
