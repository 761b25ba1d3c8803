// Package handlerwrapper adapts typed handlers to watermill: it decodes the
// JSON payload, carries correlation and reply-to metadata on the context, and
// publishes whatever results the handler returns.
package handlerwrapper

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Black-And-White-Club/counting-bot/pkg/observability/attr"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

type ctxKey string

// CtxKeyReplyTo holds the reply topic requested by the sender, if any.
const CtxKeyReplyTo ctxKey = "reply_to"

// MetadataReplyTo is the message metadata key mirrored into CtxKeyReplyTo.
const MetadataReplyTo = "reply_to"

// Result is one outbound message produced by a handler.
type Result struct {
	Topic    string
	Payload  any
	Metadata map[string]string
}

// NewMessage encodes payload as JSON and stamps the context's correlation ID.
func NewMessage(ctx context.Context, payload any) (*message.Message, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), data)
	correlationID := attr.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = watermill.NewUUID()
	}
	middleware.SetCorrelationID(correlationID, msg)
	msg.SetContext(ctx)
	return msg, nil
}

// WrapTransformingTyped returns a watermill handler that decodes into T, runs
// handler and publishes its results on publisher. Undecodable payloads are
// logged and acknowledged; handler errors are returned so the router's retry
// middleware sees them.
func WrapTransformingTyped[T any](
	handlerName string,
	logger *slog.Logger,
	tracer trace.Tracer,
	publisher message.Publisher,
	handler func(context.Context, *T) ([]Result, error),
) message.NoPublishHandlerFunc {
	return func(msg *message.Message) error {
		ctx := msg.Context()
		if correlationID := middleware.MessageCorrelationID(msg); correlationID != "" {
			ctx = attr.WithCorrelationID(ctx, correlationID)
		}
		if replyTo := msg.Metadata.Get(MetadataReplyTo); replyTo != "" {
			ctx = context.WithValue(ctx, CtxKeyReplyTo, replyTo)
		}

		ctx, span := tracer.Start(ctx, handlerName, trace.WithAttributes(
			attribute.String("message.uuid", msg.UUID),
		))
		defer span.End()

		payload := new(T)
		if err := json.Unmarshal(msg.Payload, payload); err != nil {
			logger.ErrorContext(ctx, "Dropping undecodable message",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.String("message_id", msg.UUID),
				attr.Error(err),
			)
			span.SetStatus(codes.Error, "undecodable payload")
			return nil
		}

		results, err := handler(ctx, payload)
		if err != nil {
			logger.ErrorContext(ctx, "Handler failed",
				attr.ExtractCorrelationID(ctx),
				attr.String("handler", handlerName),
				attr.Error(err),
			)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return err
		}

		for _, result := range results {
			out, err := NewMessage(ctx, result.Payload)
			if err != nil {
				return fmt.Errorf("%s: %w", handlerName, err)
			}
			for k, v := range result.Metadata {
				out.Metadata.Set(k, v)
			}
			if err := publisher.Publish(result.Topic, out); err != nil {
				return fmt.Errorf("%s: failed to publish to %s: %w", handlerName, result.Topic, err)
			}
		}
		return nil
	}
}
