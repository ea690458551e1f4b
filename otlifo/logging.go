// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package otlifo

import (
	"github.com/petenewcomb/lifo-go"
	"go.uber.org/zap"
)

// LoggingObserver returns an observer that logs stack events through logger,
// or through the global logger returned by zap.L if logger is nil. Exhaustion
// is logged at warn level and everything else at debug level, so a logger
// enabled for info and above only reports trouble.
func LoggingObserver(logger *zap.Logger) lifo.Observer {
	return lifo.ObserverFunc(func(e lifo.Event) {
		// Resolved per event so that a later zap.ReplaceGlobals takes effect
		l := logger
		if l == nil {
			l = zap.L()
		}

		switch e.Kind {
		case lifo.EventPush, lifo.EventPop:
			l.Debug("Stack operation completed",
				zap.Stringer("kind", e.Kind),
				zap.String("component", component),
				zap.Int("attempts", e.Attempts))
		case lifo.EventEmpty:
			l.Debug("Pop found stack empty",
				zap.String("component", component))
		case lifo.EventReclaim:
			l.Debug("Reclaimed retired nodes",
				zap.String("component", component),
				zap.Int("count", e.Count))
		case lifo.EventExhausted:
			l.Warn("Node store exhausted",
				zap.String("component", component),
				zap.Int("capacity", e.Count),
				zap.Error(lifo.ErrExhausted))
		}
	})
}
