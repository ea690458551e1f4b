// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otlifo

import (
	"context"

	"github.com/petenewcomb/lifo-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingObserver returns an observer that records stack events as events on
// the span carried by ctx. Events are dropped if ctx carries no recording
// span.
func TracingObserver(ctx context.Context) lifo.Observer {
	span := trace.SpanFromContext(ctx)
	return lifo.ObserverFunc(func(e lifo.Event) {
		if !span.IsRecording() {
			return
		}
		var attrs []attribute.KeyValue
		switch e.Kind {
		case lifo.EventPush, lifo.EventPop:
			attrs = append(attrs, attribute.Int("lifo.attempts", e.Attempts))
		case lifo.EventReclaim, lifo.EventExhausted:
			attrs = append(attrs, attribute.Int("lifo.count", e.Count))
		}
		span.AddEvent("lifo."+e.Kind.String(), trace.WithAttributes(attrs...))
	})
}
