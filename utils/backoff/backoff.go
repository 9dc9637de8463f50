// Copyright (c) 2024-2025 BeeAI Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package backoff is a configuration wrapper around an existing 3rd-party
// backoff library.
package backoff

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff"
)

// Config defines backoff configuration.
type Config struct {
	Min      time.Duration `yaml:"min"`
	Max      time.Duration `yaml:"max"`
	Factor   float64       `yaml:"factor"`
	Attempts int           `yaml:"attempts"`
	NoJitter bool          `yaml:"no_jitter"`
}

func (c Config) applyDefaults() Config {
	if c.Min == 0 {
		c.Min = 4 * time.Second
	}
	if c.Max == 0 {
		c.Max = 10 * time.Second
	}
	if c.Factor == 0 {
		c.Factor = 2
	}
	if c.Attempts == 0 {
		c.Attempts = 3
	}
	return c
}

// Backoff provides backoff duration calculation bounded by a fixed number of
// attempts.
type Backoff struct {
	config Config
}

// New creates a new Backoff.
func New(config Config) *Backoff {
	return &Backoff{config.applyDefaults()}
}

func (b *Backoff) exponential() *backoff.ExponentialBackOff {
	e := backoff.NewExponentialBackOff()
	e.InitialInterval = b.config.Min
	e.MaxInterval = b.config.Max
	e.Multiplier = b.config.Factor
	e.MaxElapsedTime = 0 // Bounded by attempts, not time.
	if b.config.NoJitter {
		e.RandomizationFactor = 0
	}
	e.Reset()
	return e
}

// Attempts returns an Attempts iterator.
func (b *Backoff) Attempts() *Attempts {
	return &Attempts{
		exp:         b.exponential(),
		attempt:     -1,
		maxAttempts: b.config.Attempts,
	}
}

type exhaustedError struct {
	attempts int
}

func (e exhaustedError) Error() string {
	return fmt.Sprintf("gave up after %d attempts", e.attempts)
}

// IsExhaustedError returns true if err occurred because a ran out of attempts.
func IsExhaustedError(err error) bool {
	_, ok := err.(exhaustedError)
	return ok
}

// Attempts defines an iterator for retrying some action with exponential
// backoff until the attempt budget runs out.
type Attempts struct {
	exp         *backoff.ExponentialBackOff
	attempt     int
	maxAttempts int
	err         error
}

// WaitForNext sleeps until the next attempt is ready to perform. Returns false
// once all attempts have been spent. The first call always returns true
// immediately.
func (a *Attempts) WaitForNext() bool {
	if a.attempt < 0 {
		// -1 primes the first attempt, which should return immediately.
		a.attempt = 0
		return true
	}
	if a.attempt >= a.maxAttempts-1 {
		a.err = exhaustedError{a.maxAttempts}
		return false
	}
	time.Sleep(a.exp.NextBackOff())
	a.attempt++
	return true
}

// Err returns an error if a ran out of attempts.
func (a *Attempts) Err() error {
	return a.err
}
