// Copyright 2019-2020 Intel Corporation. All Rights Reserved.
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

package log

import (
	"sync"
	"time"

	goxrate "golang.org/x/time/rate"
)

// Rate configures how fast a throttled log call site is allowed to repeat.
type Rate struct {
	// Limit is the steady-state rate at which a call site may re-emit.
	Limit goxrate.Limit
	// Burst is how many emits a call site gets before throttling kicks in.
	Burst int
	// Window bounds how many distinct call sites are tracked at once.
	Window int
}

const (
	// DefaultWindow is how many call sites RateLimit tracks by default.
	DefaultWindow = 256
	// MinimumWindow is the smallest window RateLimit accepts.
	MinimumWindow = 32
)

// Every turns an interval into the equivalent steady-state Limit.
func Every(interval time.Duration) goxrate.Limit {
	return goxrate.Every(interval)
}

// Interval is a Rate that allows one emit per interval, with one leading
// burst so the first occurrence of a call site always goes through.
func Interval(interval time.Duration) Rate {
	return Rate{Limit: Every(interval), Burst: 1}
}

// throttledLogger wraps a Logger so that a call site retried in a tight loop
// -- the agent's connect-to-orchestrator backoff, the orchestrator's
// per-tick RPC failure reporting -- only actually logs a handful of times
// instead of once per retry. Holpaca's retry loops pass a fresh error value
// (a different refused port, a different pool id) on every call, so the
// call site is identified by its format string rather than by the message
// it renders to: limiting on the rendered text would never engage, since
// the text is different every time even though the call site is the same.
type throttledLogger struct {
	Logger

	mu      sync.Mutex
	rate    Rate
	tracked []string
	limiter map[string]*goxrate.Limiter
}

// RateLimit returns a Logger that throttles each distinct (format string)
// call site to rate, passing everything else straight through. Fatalf is
// never throttled, since a fatal message by definition only logs once.
func RateLimit(log Logger, rate Rate) Logger {
	switch {
	case rate.Window == 0:
		rate.Window = DefaultWindow
	case rate.Window < MinimumWindow:
		rate.Window = MinimumWindow
	}
	if rate.Burst < 1 {
		rate.Burst = 1
	}
	return &throttledLogger{
		Logger:  log,
		rate:    rate,
		limiter: make(map[string]*goxrate.Limiter, rate.Window),
		tracked: make([]string, 0, rate.Window),
	}
}

func (t *throttledLogger) Debugf(format string, args ...interface{}) {
	if t.allow(format) {
		t.Logger.Debugf(format, args...)
	}
}

func (t *throttledLogger) Infof(format string, args ...interface{}) {
	if t.allow(format) {
		t.Logger.Infof(format, args...)
	}
}

func (t *throttledLogger) Warnf(format string, args ...interface{}) {
	if t.allow(format) {
		t.Logger.Warnf(format, args...)
	}
}

func (t *throttledLogger) Errorf(format string, args ...interface{}) {
	if t.allow(format) {
		t.Logger.Errorf(format, args...)
	}
}

// allow reports whether format's call site may emit right now, lazily
// creating a limiter for call sites seen for the first time and evicting
// the least recently created one once the tracked set reaches its window.
func (t *throttledLogger) allow(format string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	lim, ok := t.limiter[format]
	if !ok {
		if len(t.tracked) >= t.rate.Window {
			evict := t.tracked[0]
			t.tracked = t.tracked[1:]
			delete(t.limiter, evict)
		}
		t.tracked = append(t.tracked, format)
		lim = goxrate.NewLimiter(t.rate.Limit, t.rate.Burst)
		t.limiter[format] = lim
	}
	return lim.Allow()
}
