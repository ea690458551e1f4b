// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package lifo provides a last-in-first-out stack that any number of
// goroutines can push to and pop from at the same time without taking locks.
//
// A [Stack] keeps its nodes in an arena of its own and never frees a node while
// another goroutine might still be looking at it. Popped nodes are instead
// retired to a reclamation domain, which hands them back to the arena once it
// can prove that no goroutine holds a reference to them. Two domains are
// available, selected by [Config.Reclamation]: hazard pointers, which bound the
// number of retained nodes even if a goroutine stalls in the middle of an
// operation, and epochs, which do less work per operation.
//
// Every goroutine that touches the stack does so as a participant of the
// domain. [Stack.Push] and [Stack.Pop] register a participant for the duration
// of a single call. A goroutine that performs many operations can instead
// [Stack.Attach] a [Handle] and keep it until it is done, which avoids the
// registration on every call.
//
// Push and Pop are lock-free: some goroutine always completes its operation in
// a bounded number of its own steps, no matter how the others are scheduled.
// Individual goroutines may retry, but only because another one succeeded.
//
// An [Observer] supplied through [Config] is told about every completed
// operation and every batch of reclaimed nodes. The otlifo module provides
// observers that log through zap and report to OpenTelemetry.
package lifo

//go:generate go run -C internal/cmd/chartgen . ../../../bench.txt
