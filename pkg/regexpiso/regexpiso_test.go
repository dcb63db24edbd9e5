package regexpiso

import (
	"testing"
	"time"
)

func TestCompileFlags(t *testing.T) {
	c, err := Compile("a.c", "im")
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if !c.IgnoreCase || !c.Multiline || c.Global {
		t.Errorf("Compile(\"a.c\", \"im\") flags = %+v", c)
	}
	if c.Source != "a.c" || c.Flags != "im" {
		t.Errorf("Compile did not preserve Source/Flags: %+v", c)
	}
}

func TestCompileGlobalFlag(t *testing.T) {
	c, err := Compile("x", "g")
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if !c.Global {
		t.Error("'g' flag should set Global")
	}
}

func TestCompileRejectsUnknownFlag(t *testing.T) {
	if _, err := Compile("x", "z"); err == nil {
		t.Error("an unrecognized flag should be rejected")
	}
}

func TestCompileRejectsInvalidPattern(t *testing.T) {
	if _, err := Compile("(unterminated", ""); err == nil {
		t.Error("an unbalanced group should fail to compile")
	}
}

func TestFindFromBlockingDisabledMode(t *testing.T) {
	b := NewBackend(ModeDisabled, 0)
	c, _ := Compile("a", "")
	r := b.FindFromBlocking(c, "abc", 0)
	if r.Err != ErrDisabled {
		t.Errorf("ModeDisabled should report ErrDisabled, got %v", r.Err)
	}
}

func TestFindFromBlockingNativeModeMatches(t *testing.T) {
	b := NewBackend(ModeNative, 0)
	c, err := Compile("b(c)", "")
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	r := b.FindFromBlocking(c, "abcd", 0)
	if r.Err != nil || r.Match == nil {
		t.Fatalf("expected a match, got %+v", r)
	}
	if r.Match.Text != "bc" || r.Match.Index != 1 {
		t.Errorf("Match = %+v, want Text=bc Index=1", r.Match)
	}
	if len(r.Match.Groups) != 1 || !r.Match.Groups[0].Found || r.Match.Groups[0].Text != "c" {
		t.Errorf("Groups = %+v, want one found group \"c\"", r.Match.Groups)
	}
}

func TestFindFromBlockingNoMatch(t *testing.T) {
	b := NewBackend(ModeNative, 0)
	c, _ := Compile("z+", "")
	r := b.FindFromBlocking(c, "abc", 0)
	if r.Err != nil || r.Match != nil {
		t.Errorf("expected no match, got %+v", r)
	}
}

func TestFindFromBlockingUnmatchedOptionalGroup(t *testing.T) {
	b := NewBackend(ModeNative, 0)
	c, err := Compile("a(x)?b", "")
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	r := b.FindFromBlocking(c, "ab", 0)
	if r.Err != nil || r.Match == nil {
		t.Fatalf("expected a match, got %+v", r)
	}
	if len(r.Match.Groups) != 1 || r.Match.Groups[0].Found {
		t.Errorf("unmatched optional group should report Found=false, got %+v", r.Match.Groups)
	}
}

func TestFindFromBlockingSandboxedModeMatches(t *testing.T) {
	b := NewBackend(ModeSandboxed, 50*time.Millisecond)
	c, _ := Compile("world", "")
	r := b.FindFromBlocking(c, "hello world", 0)
	if r.Err != nil || r.Match == nil || r.Match.Text != "world" {
		t.Fatalf("expected a match for 'world', got %+v", r)
	}
}

func TestFindFromBlockingSandboxedModeTimesOut(t *testing.T) {
	// A classic catastrophic-backtracking pattern against a string with
	// no terminating "c": (a+)+ forces exponential backtracking attempts.
	b := NewBackend(ModeSandboxed, 20*time.Millisecond)
	c, err := Compile("(a+)+c", "")
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	input := ""
	for i := 0; i < 30; i++ {
		input += "a"
	}
	r := b.FindFromBlocking(c, input, 0)
	if !r.TimedOut || r.Err != ErrTimeout {
		t.Errorf("expected a timeout, got %+v", r)
	}
}

func TestFindFromAsyncDeliversResult(t *testing.T) {
	b := NewBackend(ModeNative, 0)
	c, _ := Compile("foo", "")
	done := make(chan AsyncResult, 1)
	b.FindFrom(c, "xfooy", 0, func(r AsyncResult) { done <- r })
	r := <-done
	if r.Err != nil || r.Match == nil || r.Match.Text != "foo" {
		t.Errorf("FindFrom async result = %+v, want a match for foo", r)
	}
}

func TestFindFromPastEndOfStringNoMatch(t *testing.T) {
	b := NewBackend(ModeNative, 0)
	c, _ := Compile("a", "")
	r := b.FindFromBlocking(c, "abc", 10)
	if r.Err != nil || r.Match != nil {
		t.Errorf("searching past the end of the string should find nothing, got %+v", r)
	}
}

func TestNewBackendDefaultsTimeout(t *testing.T) {
	b := NewBackend(ModeSandboxed, 0)
	if b.Timeout != 1000*time.Millisecond {
		t.Errorf("NewBackend with a zero timeout should default to 1000ms, got %v", b.Timeout)
	}
}
