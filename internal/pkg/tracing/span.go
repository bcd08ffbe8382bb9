package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracerName — имя tracer-а для span-ов приложения.
const TracerName = "github.com/unentropy/unentropy-sub001"

// StartSpan начинает span этапа конвейера. Возвращаемая функция завершает span
// и при ненулевой ошибке помечает его статусом Error.
//
//	ctx, end := tracing.StartSpan(ctx, "collect", attribute.Int("metrics", n))
//	defer func() { end(err) }()
func StartSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	ctx, span := otel.Tracer(TracerName).Start(ctx, name, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}
