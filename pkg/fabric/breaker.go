// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package fabric

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// CircuitState represents the current state of a connection breaker.
type CircuitState int

const (
	StateClosed   CircuitState = iota // Normal operation
	StateOpen                         // Database unreachable, reject immediately
	StateHalfOpen                     // Probing
)

func (s CircuitState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// BreakerConfig defines breaker behavior.
type BreakerConfig struct {
	FailureThreshold int           // Consecutive connection failures to open (default: 3)
	Timeout          time.Duration // Base wait before probing (default: 10s)
	MaxTimeout       time.Duration // Cap for the exponential wait (default: 60s)
}

// DefaultBreakerConfig returns the defaults used by SQL backends.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		FailureThreshold: 3,
		Timeout:          10 * time.Second,
		MaxTimeout:       60 * time.Second,
	}
}

// Breaker stops hammering a database that cannot be reached. Only errors of
// kind KindConnection count as failures; schema and SQL errors prove the
// server is alive and close the breaker like a success.
type Breaker struct {
	mu               sync.Mutex
	state            CircuitState
	failureCount     int
	consecutiveOpens int
	openedAt         time.Time
	config           BreakerConfig
	logger           *zap.Logger
	now              func() time.Time
}

// NewBreaker creates a closed breaker. A nil logger disables logging.
func NewBreaker(config BreakerConfig, logger *zap.Logger) *Breaker {
	if logger == nil {
		logger = zap.NewNop()
	}
	def := DefaultBreakerConfig()
	if config.FailureThreshold <= 0 {
		config.FailureThreshold = def.FailureThreshold
	}
	if config.Timeout <= 0 {
		config.Timeout = def.Timeout
	}
	if config.MaxTimeout <= 0 {
		config.MaxTimeout = def.MaxTimeout
	}
	return &Breaker{config: config, logger: logger, now: time.Now}
}

// Execute runs operation unless the breaker is open.
func (b *Breaker) Execute(operation func() error) error {
	if err := b.beforeRequest(); err != nil {
		return err
	}
	err := operation()
	b.afterRequest(err)
	return err
}

func (b *Breaker) beforeRequest() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state != StateOpen {
		return nil
	}

	timeout := b.timeoutLocked()
	elapsed := b.now().Sub(b.openedAt)
	if elapsed >= timeout {
		b.state = StateHalfOpen
		b.logger.Info("breaker half-open", zap.Duration("elapsed", elapsed))
		return nil
	}

	return &Error{
		Kind:    KindConnection,
		Message: fmt.Sprintf("database unavailable after %d connection failures, retry in %v", b.failureCount, (timeout - elapsed).Round(time.Second)),
	}
}

func (b *Breaker) afterRequest(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if KindOf(err) != KindConnection {
		if b.state != StateClosed {
			b.logger.Info("breaker closed")
		}
		b.state = StateClosed
		b.failureCount = 0
		b.consecutiveOpens = 0
		return
	}

	b.failureCount++
	switch b.state {
	case StateClosed:
		b.logger.Warn("connection failure",
			zap.Error(err),
			zap.Int("failure_count", b.failureCount),
			zap.Int("threshold", b.config.FailureThreshold))
		if b.failureCount >= b.config.FailureThreshold {
			b.openLocked()
		}
	case StateHalfOpen:
		b.openLocked()
	}
}

func (b *Breaker) openLocked() {
	b.consecutiveOpens++
	b.state = StateOpen
	b.openedAt = b.now()
	b.logger.Error("breaker opened",
		zap.Int("consecutive_opens", b.consecutiveOpens),
		zap.Duration("timeout", b.timeoutLocked()))
}

// State returns the current state.
func (b *Breaker) State() CircuitState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Reset closes the breaker.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = StateClosed
	b.failureCount = 0
	b.consecutiveOpens = 0
}

// timeoutLocked doubles the base timeout for every consecutive open, capped
// at MaxTimeout.
func (b *Breaker) timeoutLocked() time.Duration {
	if b.consecutiveOpens <= 1 {
		return b.config.Timeout
	}
	delay := b.config.Timeout * (1 << uint(b.consecutiveOpens-1))
	if delay > b.config.MaxTimeout || delay <= 0 {
		delay = b.config.MaxTimeout
	}
	return delay
}
