// Package regexpiso is the regular-expression isolation backend:
// user regex execution is routed through one of three modes so that
// catastrophic backtracking in a sandboxed program cannot hang the
// host indefinitely.
package regexpiso

import (
	"context"
	"fmt"
	"time"

	"github.com/dlclark/regexp2"
)

// Mode selects how user regular expressions are executed.
type Mode int

const (
	// ModeDisabled makes every regex-consuming operation throw.
	ModeDisabled Mode = 0
	// ModeNative executes directly on the host engine with no timeout;
	// catastrophic backtracking is the caller's problem.
	ModeNative Mode = 1
	// ModeSandboxed executes on a worker goroutine bounded by a
	// wall-clock timeout.
	ModeSandboxed Mode = 2
)

// Backend is the evaluator's abstraction over regex execution; the
// evaluator never observes which Mode is configured.
type Backend struct {
	Mode    Mode
	Timeout time.Duration // REGEXP_THREAD_TIMEOUT
}

// NewBackend constructs a Backend. A zero Timeout defaults to 1000ms.
func NewBackend(mode Mode, timeout time.Duration) *Backend {
	if timeout <= 0 {
		timeout = 1000 * time.Millisecond
	}
	return &Backend{Mode: mode, Timeout: timeout}
}

// ErrDisabled is returned by every operation when Mode is ModeDisabled.
var ErrDisabled = fmt.Errorf("Regular expressions not supported")

// ErrTimeout is returned when a sandboxed match exceeds the timeout;
// callers surface this as an interpreted `Error("RegExp Timeout")`.
var ErrTimeout = fmt.Errorf("RegExp Timeout")

// Compiled wraps a compiled regexp2 pattern plus the flags it was
// constructed with, stored in an interpreted RegExp object's Data slot.
type Compiled struct {
	Source     string
	Flags      string
	Global     bool
	IgnoreCase bool
	Multiline  bool
	re         *regexp2.Regexp
}

// Compile translates an ES5 pattern/flags pair into a regexp2 program.
// regexp2 is used rather than Go's stdlib regexp (RE2) because RE2
// cannot express backreferences or lookaround, both legal in ES5
// regex literals.
func Compile(pattern, flags string) (*Compiled, error) {
	opts := regexp2.None
	for _, f := range flags {
		switch f {
		case 'i':
			opts |= regexp2.IgnoreCase
		case 'm':
			opts |= regexp2.Multiline
		case 'g':
			// handled by caller (lastIndex looping), not a regexp2 option
		default:
			return nil, fmt.Errorf("invalid regular expression flags")
		}
	}
	re, err := regexp2.Compile(pattern, opts)
	if err != nil {
		return nil, err
	}
	re.MatchTimeout = 0 // the Backend owns timeout enforcement, not regexp2 itself
	c := &Compiled{Source: pattern, Flags: flags, re: re}
	for _, f := range flags {
		switch f {
		case 'g':
			c.Global = true
		case 'i':
			c.IgnoreCase = true
		case 'm':
			c.Multiline = true
		}
	}
	return c, nil
}

// Match is one successful match result: the matched substring, its
// start index, and any captured groups (empty string + found=false for
// unmatched optional groups, mirroring ES5 exec() array holes).
type Match struct {
	Index  int
	Text   string
	Groups []Group
}

type Group struct {
	Text  string
	Found bool
}

// AsyncResult is delivered via the evaluator's async-call protocol
// when the backend itself needs to suspend (ModeSandboxed always
// does, since it's routing through a worker goroutine).
type AsyncResult struct {
	Match    *Match
	TimedOut bool
	Err      error
}

// FindFrom runs c against s starting at offset from, returning
// asynchronously via resume exactly as an AsyncFunc does.
func (b *Backend) FindFrom(c *Compiled, s string, from int, resume func(AsyncResult)) {
	if b.Mode == ModeDisabled {
		resume(AsyncResult{Err: ErrDisabled})
		return
	}
	if b.Mode == ModeNative {
		resume(b.findSync(c, s, from))
		return
	}
	// ModeSandboxed: run the match on a worker goroutine, bounded by a
	// context timeout. The worker is abandoned (not forcibly killed --
	// Go has no goroutine.Kill) on timeout; regexp2 patterns that
	// backtrack catastrophically will eventually finish and the
	// abandoned goroutine's result is simply discarded.
	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	resultCh := make(chan AsyncResult, 1)
	go func() {
		resultCh <- b.findSync(c, s, from)
	}()
	go func() {
		defer cancel()
		select {
		case r := <-resultCh:
			resume(r)
		case <-ctx.Done():
			resume(AsyncResult{TimedOut: true, Err: ErrTimeout})
		}
	}()
}

// FindFromBlocking is the synchronous counterpart to FindFrom, used by
// the String/RegExp native methods (pkg/builtins) rather than the
// evaluator's async-call protocol: a regex timeout is an internal,
// bounded wait, not a host-observable suspension, so reporting it
// through the same pause/resume channel callAsync uses would let a
// regex call race the single-outstanding-event contract the
// suspension machinery relies on.
// The bound is still enforced (ModeSandboxed still runs on and abandons
// a worker goroutine past the timeout); only the reporting channel
// differs.
func (b *Backend) FindFromBlocking(c *Compiled, s string, from int) AsyncResult {
	if b.Mode == ModeDisabled {
		return AsyncResult{Err: ErrDisabled}
	}
	if b.Mode == ModeNative {
		return b.findSync(c, s, from)
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.Timeout)
	defer cancel()
	resultCh := make(chan AsyncResult, 1)
	go func() { resultCh <- b.findSync(c, s, from) }()
	select {
	case r := <-resultCh:
		return r
	case <-ctx.Done():
		return AsyncResult{TimedOut: true, Err: ErrTimeout}
	}
}

func (b *Backend) findSync(c *Compiled, s string, from int) AsyncResult {
	runes := []rune(s)
	if from > len(runes) {
		return AsyncResult{Match: nil}
	}
	m, err := c.re.FindStringMatchStartingAt(s, from)
	if err != nil {
		return AsyncResult{Err: err}
	}
	if m == nil {
		return AsyncResult{Match: nil}
	}
	groups := m.Groups()
	result := &Match{
		Index: m.Index,
		Text:  m.String(),
	}
	for i := 1; i < len(groups); i++ {
		g := groups[i]
		if len(g.Captures) == 0 {
			result.Groups = append(result.Groups, Group{Found: false})
			continue
		}
		result.Groups = append(result.Groups, Group{Text: g.String(), Found: true})
	}
	return AsyncResult{Match: result}
}
