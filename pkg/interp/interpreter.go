// Package interp is the evaluator: the per-node evaluation logic,
// the host↔interpreted orchestration, and the step/run facade. It
// depends on pkg/value for the data model, pkg/bridge for host value
// conversion, and pkg/regexpiso for the regex backend, and is driven
// by pkg/builtins at construction time to populate the global object.
package interp

import (
	"fmt"
	"os"
	"time"

	"github.com/robertkrimen/otto/ast"
	"github.com/robertkrimen/otto/parser"

	"sandbox5/pkg/bridge"
	"sandbox5/pkg/builtins"
	serrors "sandbox5/pkg/errors"
	"sandbox5/pkg/regexpiso"
	"sandbox5/pkg/runtime"
	"sandbox5/pkg/source"
	"sandbox5/pkg/value"
)

// Options carries the interpreter's configuration knobs. A plain
// struct with a defaults constructor rather than functional options:
// there is nothing optional to compose here, every field always
// applies.
type Options struct {
	RegexpMode          regexpiso.Mode
	RegexpThreadTimeout time.Duration
	PolyfillTimeout     time.Duration
	Debug               bool
}

// DefaultOptions returns the stock configuration: sandboxed regex, a
// 1000ms regex timeout, a small polyfill coalescing budget.
func DefaultOptions() Options {
	return Options{
		RegexpMode:          regexpiso.ModeSandboxed,
		RegexpThreadTimeout: 1000 * time.Millisecond,
		PolyfillTimeout:     50 * time.Millisecond,
	}
}

// debugPrintf gates diagnostics on Options.Debug; never on by
// default, and no logging dependency behind it.
func debugPrintf(ip *Interpreter, format string, args ...interface{}) {
	if !ip.Options.Debug {
		return
	}
	fmt.Fprintf(os.Stderr, "[interp] "+format+"\n", args...)
}

// InitHook is invoked once built-ins are installed but before user
// code begins executing.
type InitHook func(ip *Interpreter, globalObject *value.Object)

// eventKind distinguishes the three observable events the evaluator
// goroutine can report back to the host-facing Step/Run methods.
type eventKind uint8

const (
	eventBoundary eventKind = iota // one top-level statement completed
	eventPaused                    // blocked on an async resume callback
	eventDone                      // program body exhausted, or an unhandled throw
)

type ipEvent struct {
	kind eventKind
}

// Interpreter is one sandbox: an independent interpreted-world heap,
// a dedicated goroutine whose own call stack carries the evaluator's
// continuation between statements, and the channel pair that lets
// Step/Run pace it.
type Interpreter struct {
	Heap    *value.Heap
	Bridge  *bridge.Bridge
	Regex   *regexpiso.Backend
	Options Options

	source  *source.SourceFile
	program *ast.Program

	suspension *runtime.Suspension

	proceedCh chan struct{}
	eventCh   chan ipEvent

	finished  bool
	lastValue value.Value
	unhandled serrors.SandboxError
}

// Construct builds a fresh interpreter over code (a source string; a
// pre-parsed *ast.Program is also accepted), installs built-ins,
// runs initHook, and starts the evaluator goroutine parked before the
// first top-level statement.
func Construct(code interface{}, initHook InitHook, opts Options) (*Interpreter, error) {
	var program *ast.Program
	var src *source.SourceFile

	switch c := code.(type) {
	case *ast.Program:
		program = c
		src = source.NewSourceFile("<ast>", "")
	case string:
		src = source.NewSourceFile("<sandbox>", c)
		p, err := parser.ParseFile(nil, src.Name, c, 0)
		if err != nil {
			return nil, &serrors.SyntaxError{Msg: err.Error()}
		}
		program = p
	default:
		return nil, serrors.NewInternal("Construct: code must be a string or *ast.Program")
	}

	heap := value.NewHeap()
	ip := &Interpreter{
		Heap:       heap,
		Regex:      regexpiso.NewBackend(opts.RegexpMode, opts.RegexpThreadTimeout),
		Options:    opts,
		source:     src,
		program:    program,
		suspension: runtime.NewSuspension(),
		proceedCh:  make(chan struct{}),
		eventCh:    make(chan ipEvent, 1),
	}
	ip.Bridge = bridge.New(heap)
	ip.Bridge.Call = ip.Call
	ip.Bridge.DateFactory = ip.dateObjectFrom
	ip.Bridge.RegExpFactory = ip.regExpObjectFrom

	builtins.Install(heap, ip, ip.runPolyfillSource)

	globalThis := value.FromObject(heap.Global)
	heap.GlobalScope.This = &globalThis

	if initHook != nil {
		initHook(ip, heap.Global)
	}

	// Program-level strictness applies to everything the program body
	// does, including implicit-global creation — set after the
	// polyfills have run so library bootstrap stays loose-mode.
	if stmtsBeginWithUseStrict(program.Body) {
		heap.GlobalScope.Strict = true
	}

	ip.hoist(heap.GlobalScope, program.Body)

	go ip.runLoop()
	return ip, nil
}

// runLoop is the evaluator's dedicated goroutine: its own Go call
// stack carries the continuation an explicit state-stack machine
// would otherwise have to reify frame by frame. It executes one
// top-level statement per proceed token, reporting a boundary event
// after each, which is what makes Step one user-visible statement
// per call. The final statement reports eventDone in place of its
// boundary, so every proceed token the host sends is answered by
// exactly one event and the goroutine never leaves a token unconsumed.
func (ip *Interpreter) runLoop() {
	body := ip.program.Body
	for i, stmt := range body {
		<-ip.proceedCh
		c := ip.execStatement(stmt, ip.Heap.GlobalScope)
		if c.Type == ThrowCompletion {
			ip.unhandled = ip.throwToHostError(c.Throw)
			debugPrintf(ip, "unhandled throw at statement %d: %v", i, ip.unhandled)
			ip.eventCh <- ipEvent{kind: eventDone}
			return
		}
		if c.Type == Normal {
			if _, ok := stmt.(*ast.ExpressionStatement); ok {
				ip.lastValue = c.Value
			}
		}
		if i == len(body)-1 {
			ip.eventCh <- ipEvent{kind: eventDone}
			return
		}
		ip.eventCh <- ipEvent{kind: eventBoundary}
	}
	ip.eventCh <- ipEvent{kind: eventDone}
}

// sendEvent is called from deep within call machinery (callAsync) to
// report a pause without consuming a proceed token — the goroutine
// doesn't return to runLoop's for-loop, it stays blocked inside
// callAsync's wait on the async result.
func (ip *Interpreter) sendEvent(ev ipEvent) {
	ip.eventCh <- ev
}

// Step advances the evaluator one user-visible statement. Polyfills
// run to completion at construction time, outside the step loop
// entirely, so there are no library micro-steps to coalesce here.
// Returns false iff the program has terminated.
func (ip *Interpreter) Step() bool {
	if ip.finished {
		return false
	}
	if ip.suspension.IsPaused() {
		// An async call is still outstanding; only its resume callback
		// may advance the evaluator.
		return true
	}
	return ip.handleEvent(ip.nextEvent())
}

// Run advances until termination or a pause on an outstanding async
// call. Returns true iff paused.
func (ip *Interpreter) Run() bool {
	for {
		if ip.finished {
			return false
		}
		if ip.suspension.IsPaused() {
			return true
		}
		ev := ip.nextEvent()
		if ev.kind == eventPaused {
			// A pause event still in the buffer after the async call
			// already resumed is stale; only report paused while the
			// suspension is actually outstanding.
			if ip.suspension.IsPaused() {
				return true
			}
			continue
		}
		ip.handleEvent(ev)
	}
}

// nextEvent drains an event the evaluator already emitted (the
// boundary for a statement whose async call resumed after the host
// last observed a pause) before paying a proceed token for a fresh
// statement. Without the drain, a resumed statement's boundary and the
// host's next proceed would drift out of step and the final proceed
// would have no receiver.
func (ip *Interpreter) nextEvent() ipEvent {
	select {
	case ev := <-ip.eventCh:
		return ev
	default:
	}
	ip.proceedCh <- struct{}{}
	return <-ip.eventCh
}

func (ip *Interpreter) handleEvent(ev ipEvent) bool {
	if ev.kind == eventDone {
		ip.finished = true
		return false
	}
	return true
}

// IsPaused reports whether the evaluator is currently blocked on an
// outstanding async call's resume callback.
func (ip *Interpreter) IsPaused() bool { return ip.suspension.IsPaused() }

// Value returns the value of the last completed top-level expression
// statement.
func (ip *Interpreter) Value() value.Value { return ip.lastValue }

// UnhandledError returns the host-side error an unhandled interpreted
// exception produced, or nil if the program terminated normally (or
// hasn't terminated yet).
func (ip *Interpreter) UnhandledError() serrors.SandboxError { return ip.unhandled }

func (ip *Interpreter) GlobalObject() *value.Object { return ip.Heap.Global }
func (ip *Interpreter) GlobalScope() *value.Scope   { return ip.Heap.GlobalScope }

// --- host-facing property/function wiring -----------------------------------

func (ip *Interpreter) SetProperty(recv value.Value, name string, v value.Value) *value.Throw {
	pending, thrown := ip.Heap.SetProperty(recv, name, v, false)
	if thrown != nil {
		return thrown
	}
	if pending != nil {
		_, thrown = ip.Call(value.FromObject(pending), recv, []value.Value{v})
		return thrown
	}
	return nil
}

func (ip *Interpreter) GetProperty(recv value.Value, name string) (value.Value, *value.Throw) {
	v, pending, thrown := ip.Heap.GetProperty(recv, name)
	if thrown != nil {
		return value.Undefined, thrown
	}
	if pending != nil {
		return ip.Call(value.FromObject(pending), recv, nil)
	}
	return v, nil
}

func (ip *Interpreter) CreateNativeFunction(name string, arity int, fn value.NativeFunc) *value.Object {
	return ip.Heap.NewNativeFunction(name, arity, fn)
}

func (ip *Interpreter) CreateAsyncFunction(name string, arity int, fn value.AsyncFunc) *value.Object {
	return ip.Heap.NewAsyncFunction(name, arity, fn)
}

func (ip *Interpreter) NativeToPseudo(v interface{}) (value.Value, error) {
	return ip.Bridge.NativeToPseudo(v)
}

func (ip *Interpreter) PseudoToNative(v value.Value) (interface{}, error) {
	return ip.Bridge.PseudoToNative(v)
}

// RegexBackend exposes the configured regex isolation backend to
// pkg/builtins' RegExp.prototype.exec/test implementations, via the
// builtins.Host interface rather than a direct import (which would
// cycle back through this package).
func (ip *Interpreter) RegexBackend() *regexpiso.Backend { return ip.Regex }

// runPolyfillSource executes src as a boundary-free statement
// sequence against the global scope: built-in polyfills (e.g.
// Array.prototype.sort's bubble sort) run once at construction time,
// before the evaluator goroutine starts reporting step boundaries, so
// library bootstrap never counts as a user-visible step.
func (ip *Interpreter) runPolyfillSource(src string) error {
	program, err := parser.ParseFile(nil, "<polyfill>", src, 0)
	if err != nil {
		return err
	}
	ip.hoist(ip.Heap.GlobalScope, program.Body)
	c := ip.execStatements(program.Body, ip.Heap.GlobalScope)
	if c.Type == ThrowCompletion {
		return fmt.Errorf("polyfill error: %s", value.ToStringPrimitive(c.Throw.Value))
	}
	return nil
}

// --- value.Realm implementation ---------------------------------------------
//
// Call and Construct live in eval_call.go; the remaining Realm methods
// are thin delegations to the heap, kept here so the Realm contract is
// visibly satisfied in one place.

func (ip *Interpreter) NewObject(class string, proto *value.Object) *value.Object {
	return ip.Heap.NewObject(class, proto)
}

func (ip *Interpreter) NewArray(elems []value.Value) *value.Object {
	return ip.Heap.NewArray(elems)
}

func (ip *Interpreter) NewError(kind, msg string) value.Value {
	return ip.Heap.NewError(kind, msg)
}

func (ip *Interpreter) ObjectPrototypeFor(class string) *value.Object {
	return ip.Heap.ObjectPrototypeFor(class)
}

func (ip *Interpreter) realm() value.Realm { return ip }

// throwToHostError converts an unhandled interpreted Throw into the
// host-facing RuntimeError taxonomy, carrying the interpreted error's
// name and message across.
func (ip *Interpreter) throwToHostError(t *value.Throw) serrors.SandboxError {
	v := t.Value
	if v.IsObject() && v.AsObject().Class == "Error" {
		name := "Error"
		if nv, _, _ := ip.Heap.GetProperty(v, "name"); nv.IsString() {
			name = nv.AsString()
		}
		msg := ""
		if mv, _, _ := ip.Heap.GetProperty(v, "message"); mv.IsString() {
			msg = mv.AsString()
		}
		return &serrors.RuntimeError{Name: name, Msg: msg}
	}
	return &serrors.RuntimeError{Msg: value.ToStringPrimitive(v)}
}

// makeRegExp implements the RegExpLiteral case of evalExpression,
// routing through the isolation backend rather than a direct
// regexp2.Compile call so ModeDisabled/ModeSandboxed are honored for
// literals exactly as they are for the RegExp constructor.
func (ip *Interpreter) makeRegExp(pattern, flags string) (value.Value, *value.Throw) {
	if ip.Options.RegexpMode == regexpiso.ModeDisabled {
		return value.Undefined, value.NewThrow(ip.Heap.NewError("Error", regexpiso.ErrDisabled.Error()))
	}
	compiled, err := regexpiso.Compile(pattern, flags)
	if err != nil {
		return value.Undefined, value.NewThrow(ip.Heap.NewError("SyntaxError", "Invalid regular expression: "+err.Error()))
	}
	return value.FromObject(ip.regExpObject(compiled)), nil
}

func (ip *Interpreter) regExpObject(c *regexpiso.Compiled) *value.Object {
	obj := ip.Heap.NewObject("RegExp", ip.Heap.RegExpProto)
	obj.Data = c
	obj.DefineOwn("source", &value.Property{Value: value.String(c.Source), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	obj.DefineOwn("global", &value.Property{Value: value.Bool(c.Global), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	obj.DefineOwn("ignoreCase", &value.Property{Value: value.Bool(c.IgnoreCase), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	obj.DefineOwn("multiline", &value.Property{Value: value.Bool(c.Multiline), Attrs: value.NonConfigurableReadonlyNonEnumerable})
	obj.DefineOwn("lastIndex", &value.Property{Value: value.Int(0), Attrs: value.NonEnumerable})
	return obj
}

// regExpObjectFrom/dateObjectFrom adapt the bridge's factory hooks
// (pkg/bridge) to the interpreter's own constructors, letting
// pseudo_to_native / native_to_pseudo allocate RegExp/Date objects
// without importing pkg/interp (which would cycle back through
// pkg/bridge).
func (ip *Interpreter) regExpObjectFrom(sourcePattern, flags string) *value.Object {
	c, err := regexpiso.Compile(sourcePattern, flags)
	if err != nil {
		c = &regexpiso.Compiled{Source: sourcePattern, Flags: flags}
	}
	return ip.regExpObject(c)
}

func (ip *Interpreter) dateObjectFrom(t time.Time) *value.Object {
	obj := ip.Heap.NewObject("Date", ip.Heap.DateProto)
	obj.Data = t
	return obj
}

// CompileFunction implements the Function constructor's interpreter-side
// half (pkg/builtins assembles the "(function(params){body})" source
// text; this method parses and evaluates it as a single expression
// against the global scope, per ES5 §15.3.2.1 — the new function always
// closes over the global scope, never the caller's).
func (ip *Interpreter) CompileFunction(src string) (value.Value, *value.Throw) {
	program, err := parser.ParseFile(nil, "<function>", src, 0)
	if err != nil {
		return value.Undefined, value.NewThrow(ip.Heap.NewError("SyntaxError", err.Error()))
	}
	if len(program.Body) != 1 {
		return value.Undefined, value.NewThrow(ip.Heap.NewError("SyntaxError", "invalid function body"))
	}
	exprStmt, ok := program.Body[0].(*ast.ExpressionStatement)
	if !ok {
		return value.Undefined, value.NewThrow(ip.Heap.NewError("SyntaxError", "invalid function body"))
	}
	return ip.evalExpression(exprStmt.Expression, ip.Heap.GlobalScope)
}

// evalEval implements the `eval` builtin's interpreter-side half (the
// callable wrapper itself lives in pkg/builtins): parse args[0] as a
// program in evalScope's strictness, execute it as a boundary-free
// statement sequence in evalScope, and return the value of its last
// expression statement (ES5 §15.1.2.1).
func (ip *Interpreter) evalEval(args []value.Value, evalScope *value.Scope) (value.Value, *value.Throw) {
	if len(args) == 0 || !args[0].IsString() {
		if len(args) == 0 {
			return value.Undefined, nil
		}
		return args[0], nil
	}
	src := args[0].AsString()
	program, err := parser.ParseFile(nil, "<eval>", src, 0)
	if err != nil {
		return value.Undefined, value.NewThrow(ip.Heap.NewError("SyntaxError", err.Error()))
	}
	// Strict eval code runs in its own environment rather than leaking
	// declarations into the caller's scope (ES5 §10.4.2 step 3).
	if evalScope.Strict || stmtsBeginWithUseStrict(program.Body) {
		evalScope = value.NewScope(evalScope, true)
	}
	ip.hoist(evalScope, program.Body)
	result := ip.execStatements(program.Body, evalScope)
	if result.Type == ThrowCompletion {
		return value.Undefined, result.Throw
	}
	return result.Value, nil
}
