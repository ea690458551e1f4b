// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package otlifo connects lifo stacks to zap and OpenTelemetry. Each
// integration is a [lifo.Observer] to be set as [lifo.Config.Observer], alone
// or combined with others through [lifo.MultiObserver].
package otlifo

const component = "otlifo"
