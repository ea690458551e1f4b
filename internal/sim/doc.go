// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

// Package sim runs goroutines under an adversarial scheduler so that progress
// guarantees of lock-free code can be checked on arbitrary interleavings.
//
// Each simulated thread is an ordinary goroutine that calls [Gate.Wait] before
// every step that touches shared state. Only one thread runs at a time. After
// each step the scheduler picks the next thread to release according to a
// virtual clock perturbed by jitter drawn from rapid, so that rapid can shrink
// a failing interleaving down to a minimal one.
package sim
