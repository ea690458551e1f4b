// Copyright (c) Peter Newcomb. All rights reserved.
// Licensed under the MIT License.

package sim

var DefaultConfig = Config{
	MaxJitter: 4,
}

type Config struct {
	// Upper bound, in virtual time units, on the extra delay drawn for a
	// thread after each of its steps. Zero schedules threads round-robin.
	MaxJitter int

	Debug bool
}
