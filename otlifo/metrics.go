// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otlifo

import (
	"context"

	"github.com/petenewcomb/lifo-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"
)

// MetricsObserver returns an observer that counts stack events with
// OpenTelemetry instruments named after metricName, created from the global
// meter provider:
//
//   - metricName.push, metricName.pop, metricName.empty: completed operations
//   - metricName.retries: CAS attempts beyond the first
//   - metricName.reclaimed: nodes returned to the store
//   - metricName.exhausted: failed pushes
func MetricsObserver(metricName string) lifo.Observer {
	meter := otel.GetMeterProvider().Meter(component)

	// Instrument creation only fails for invalid names, in which case the
	// returned no-op instrument is used.
	pushCounter, _ := meter.Int64Counter(metricName + ".push")
	popCounter, _ := meter.Int64Counter(metricName + ".pop")
	emptyCounter, _ := meter.Int64Counter(metricName + ".empty")
	retryCounter, _ := meter.Int64Counter(metricName + ".retries")
	reclaimCounter, _ := meter.Int64Counter(metricName + ".reclaimed")
	exhaustedCounter, _ := meter.Int64Counter(metricName + ".exhausted")

	return lifo.ObserverFunc(func(e lifo.Event) {
		ctx := context.Background()
		switch e.Kind {
		case lifo.EventPush:
			pushCounter.Add(ctx, 1)
			retryCounter.Add(ctx, int64(e.Attempts-1))
		case lifo.EventPop:
			popCounter.Add(ctx, 1)
			retryCounter.Add(ctx, int64(e.Attempts-1))
		case lifo.EventEmpty:
			emptyCounter.Add(ctx, 1)
		case lifo.EventReclaim:
			reclaimCounter.Add(ctx, int64(e.Count))
		case lifo.EventExhausted:
			exhaustedCounter.Add(ctx, 1)
		}
	})
}

// StatsSource is satisfied by every [lifo.Stack].
type StatsSource interface {
	Stats() lifo.Stats
}

// RegisterStatsGauges publishes s's resource usage as observable gauges named
// metricName.in_use, metricName.retained and metricName.participants, read
// whenever the global meter provider collects.
func RegisterStatsGauges(metricName string, s StatsSource) error {
	meter := otel.GetMeterProvider().Meter(component)
	gauges := []struct {
		suffix string
		value  func(lifo.Stats) int
	}{
		{".in_use", func(st lifo.Stats) int { return st.InUse }},
		{".retained", func(st lifo.Stats) int { return st.Retained }},
		{".participants", func(st lifo.Stats) int { return st.Participants }},
	}
	for _, g := range gauges {
		_, err := meter.Int64ObservableGauge(metricName+g.suffix,
			metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
				o.Observe(int64(g.value(s.Stats())))
				return nil
			}))
		if err != nil {
			return err
		}
	}
	return nil
}
