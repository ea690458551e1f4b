// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otlifo

import (
	"context"

	"github.com/petenewcomb/lifo-go"
)

// InstrumentedObserver combines logging through the global zap logger,
// metrics named after metricName, and span events on the span in ctx.
func InstrumentedObserver(ctx context.Context, metricName string) lifo.Observer {
	return lifo.MultiObserver(
		LoggingObserver(nil),
		MetricsObserver(metricName),
		TracingObserver(ctx),
	)
}
