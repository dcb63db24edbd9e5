package interp

import (
	"strings"
	"testing"
	"time"

	"sandbox5/pkg/value"
)

// runToCompletion drives an Interpreter with Run() until the program
// terminates.
func runToCompletion(t *testing.T, src string) *Interpreter {
	t.Helper()
	ip, err := Construct(src, nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Construct(%q) error: %v", src, err)
	}
	for ip.Run() {
		// Run() returning true means the evaluator paused on an
		// outstanding async call; none of these fixtures use one, so
		// resuming by stepping again would hang. Surface it instead.
		t.Fatalf("program unexpectedly paused mid-execution: %q", src)
	}
	return ip
}

// matrixTestCase: source in, final expression value (stringified) or
// error out.
type matrixTestCase struct {
	name      string
	src       string
	expect    string // value.ToStringPrimitive(ip.Value()), checked when !isError
	isError   bool
	errSubstr string // substring expected in UnhandledError().Error(), when isError
}

func runMatrix(t *testing.T, cases []matrixTestCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ip := runToCompletion(t, tc.src)
			if tc.isError {
				err := ip.UnhandledError()
				if err == nil {
					t.Fatalf("expected an unhandled error, program finished with value %v", ip.Value())
				}
				if tc.errSubstr != "" && !strings.Contains(err.Error(), tc.errSubstr) {
					t.Errorf("error = %q, want substring %q", err.Error(), tc.errSubstr)
				}
				return
			}
			if err := ip.UnhandledError(); err != nil {
				t.Fatalf("unexpected unhandled error: %v", err)
			}
			got := value.ToStringPrimitive(ip.Value())
			if got != tc.expect {
				t.Errorf("value = %q, want %q", got, tc.expect)
			}
		})
	}
}

// TestBasics covers the bread-and-butter scenarios: var binding,
// function calls, object property access, try/catch over a thrown
// TypeError, the polyfilled Array.prototype.sort, and general ES5
// operator and statement coverage.
func TestBasics(t *testing.T) {
	runMatrix(t, []matrixTestCase{
		{name: "varBinding", src: "var x = 1; x;", expect: "1"},
		{name: "arithmetic", src: "2 + 3 * 4;", expect: "14"},
		{name: "stringConcat", src: "'foo' + 'bar';", expect: "foobar"},
		{name: "functionCall", src: "function add(a, b) { return a + b; } add(2, 3);", expect: "5"},
		{name: "functionExpression", src: "var f = function(n) { return n * n; }; f(6);", expect: "36"},
		{name: "closure", src: `
			function makeCounter() {
				var n = 0;
				return function() { n = n + 1; return n; };
			}
			var c = makeCounter();
			c(); c(); c();
		`, expect: "3"},
		{name: "objectPropertyAccess", src: "var o = { a: 1, b: 2 }; o.a + o.b;", expect: "3"},
		{name: "objectBracketAccess", src: "var o = { x: 42 }; o['x'];", expect: "42"},
		{name: "arrayLiteralAndIndex", src: "var a = [10, 20, 30]; a[1];", expect: "20"},
		{name: "arrayLength", src: "var a = [1, 2, 3, 4]; a.length;", expect: "4"},
		{name: "ifElse", src: "var r; if (1 > 2) { r = 'a'; } else { r = 'b'; } r;", expect: "b"},
		{name: "whileLoop", src: "var i = 0, s = 0; while (i < 5) { s = s + i; i = i + 1; } s;", expect: "10"},
		{name: "forLoop", src: "var s = 0; for (var i = 0; i < 5; i = i + 1) { s = s + i; } s;", expect: "10"},
		{name: "ternary", src: "true ? 'yes' : 'no';", expect: "yes"},
		{name: "logicalAndShortCircuit", src: "false && (1/0 > 0);", expect: "false"},
		{name: "logicalOrShortCircuit", src: "true || (1/0 > 0);", expect: "true"},
		{name: "equalityCoercion", src: "1 == '1';", expect: "true"},
		{name: "strictInequality", src: "1 === '1';", expect: "false"},
		{name: "typeofUndeclared", src: "typeof undeclaredVar;", expect: "undefined"},
		{name: "tryCatchCatchesThrownTypeError", src: `
			var caught;
			try {
				null.foo;
			} catch (e) {
				caught = e.name;
			}
			caught;
		`, expect: "TypeError"},
		{name: "tryFinallyRuns", src: `
			var order = '';
			try {
				order = order + 'try';
			} finally {
				order = order + 'finally';
			}
			order;
		`, expect: "tryfinally"},
		{name: "throwUncaughtPropagates", src: "throw new Error('boom');", isError: true, errSubstr: "boom"},
		{name: "arraySortBubblePolyfillDefaultOrder", src: "[3, 1, 2].sort().join(',');", expect: "1,2,3"},
		{name: "arraySortBubblePolyfillCustomComparator", src: `
			[3, 1, 2].sort(function(a, b) { return b - a; }).join(',');
		`, expect: "3,2,1"},
		{name: "jsonStringifyRoundTrip", src: `JSON.stringify({a: 1, b: [2, 3]});`, expect: `{"a":1,"b":[2,3]}`},
		{name: "jsonParseRoundTrip", src: `JSON.parse('{"a":1}').a;`, expect: "1"},
		{name: "mathMax", src: "Math.max(3, 7, 2);", expect: "7"},
		{name: "numberMethodOnPrimitive", src: "(255).toString(16);", expect: "ff"},
		{name: "booleanMethodOnPrimitive", src: "true.toString();", expect: "true"},
		{name: "stringMethodOnPrimitive", src: "'abc'.toUpperCase();", expect: "ABC"},
		{name: "stringIndexAccess", src: "'abc'[1];", expect: "b"},
		{name: "stringSplitJoin", src: "'a,b,c'.split(',').join('-');", expect: "a-b-c"},
		{name: "regexTest", src: "/^a.c$/.test('abc');", expect: "true"},
		{name: "newConstructor", src: `
			function Point(x, y) { this.x = x; this.y = y; }
			var p = new Point(1, 2);
			p.x + p.y;
		`, expect: "3"},
		{name: "prototypeMethod", src: `
			function Point(x, y) { this.x = x; this.y = y; }
			Point.prototype.sum = function() { return this.x + this.y; };
			new Point(4, 5).sum();
		`, expect: "9"},
	})
}

func TestHostValueInjectionRoundTrip(t *testing.T) {
	type native struct {
		A int
		B string
	}
	ip, err := Construct("hostValue.A + '-' + hostValue.B;", func(ip *Interpreter, globalObject *value.Object) {
		v, convErr := ip.NativeToPseudo(native{A: 7, B: "x"})
		if convErr != nil {
			t.Fatalf("NativeToPseudo error: %v", convErr)
		}
		if thrown := ip.SetProperty(value.FromObject(globalObject), "hostValue", v); thrown != nil {
			t.Fatalf("SetProperty threw: %v", thrown)
		}
	}, DefaultOptions())
	if err != nil {
		t.Fatalf("Construct error: %v", err)
	}
	for ip.Run() {
	}
	if err := ip.UnhandledError(); err != nil {
		t.Fatalf("unexpected unhandled error: %v", err)
	}
	if got := value.ToStringPrimitive(ip.Value()); got != "7-x" {
		t.Errorf("value = %q, want \"7-x\"", got)
	}
}

func TestHostSeededObjectMutatedByProgram(t *testing.T) {
	ip, err := Construct("inputObject.b = 2; this.inputObject;", func(ip *Interpreter, globalObject *value.Object) {
		v, convErr := ip.NativeToPseudo(map[string]interface{}{"a": 1})
		if convErr != nil {
			t.Fatalf("NativeToPseudo error: %v", convErr)
		}
		if thrown := ip.SetProperty(value.FromObject(globalObject), "inputObject", v); thrown != nil {
			t.Fatalf("SetProperty threw: %v", thrown)
		}
	}, DefaultOptions())
	if err != nil {
		t.Fatalf("Construct error: %v", err)
	}
	for ip.Run() {
	}
	if err := ip.UnhandledError(); err != nil {
		t.Fatalf("unexpected unhandled error: %v", err)
	}
	native, convErr := ip.PseudoToNative(ip.Value())
	if convErr != nil {
		t.Fatalf("PseudoToNative error: %v", convErr)
	}
	m, ok := native.(map[string]interface{})
	if !ok {
		t.Fatalf("PseudoToNative(this.inputObject) = %v, want a map", native)
	}
	if m["a"] != float64(1) || m["b"] != float64(2) {
		t.Errorf("m = %v, want a=1 b=2", m)
	}
}

func TestHostValueReadBackViaPseudoToNative(t *testing.T) {
	ip, err := Construct("var result = { sum: 1 + 2, label: 'total' }; result;", nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Construct error: %v", err)
	}
	for ip.Run() {
	}
	if err := ip.UnhandledError(); err != nil {
		t.Fatalf("unexpected unhandled error: %v", err)
	}
	native, convErr := ip.PseudoToNative(ip.Value())
	if convErr != nil {
		t.Fatalf("PseudoToNative error: %v", convErr)
	}
	m, ok := native.(map[string]interface{})
	if !ok {
		t.Fatalf("PseudoToNative(result) = %v, want a map", native)
	}
	if m["sum"] != float64(3) || m["label"] != "total" {
		t.Errorf("m = %v, want sum=3 label=total", m)
	}
}

func TestStepAdvancesOneStatementAtATime(t *testing.T) {
	ip, err := Construct("var x = 1; x = x + 1; x = x + 1; x;", nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Construct error: %v", err)
	}
	steps := 0
	for ip.Step() {
		steps++
	}
	if steps != 3 {
		t.Errorf("Step() should report 3 boundary events for 4 top-level statements (the last finishes the program), got %d", steps)
	}
	if got := value.ToStringPrimitive(ip.Value()); got != "3" {
		t.Errorf("final value = %q, want \"3\"", got)
	}
}

func TestBoundaryCases(t *testing.T) {
	runMatrix(t, []matrixTestCase{
		{name: "implicitGlobalInLooseMode", src: "function f() { leak = 5; } f(); leak;", expect: "5"},
		{name: "implicitGlobalInStrictModeThrows", src: "'use strict'; undeclared = 1;", isError: true, errSubstr: "undeclared"},
		{name: "deleteNonConfigurableLoose", src: "delete Infinity;", expect: "false"},
		{name: "deleteConfigurable", src: "var o = { p: 1 }; delete o.p;", expect: "true"},
		{name: "catchBindingScopedToCatch", src: `
			try { throw 1; } catch (e) { }
			typeof e;
		`, expect: "undefined"},
		{name: "catchBindsThrownValue", src: "var got; try { throw 1; } catch (e) { got = e; } got;", expect: "1"},
		{name: "argumentsLength", src: "(function () { return arguments.length; })(1, 2, 3);", expect: "3"},
		{name: "forInIteratesIndicesAsStrings", src: `
			var a = [10, 20, 30], keys = '';
			for (var k in a) { keys = keys + k; }
			keys;
		`, expect: "012"},
		{name: "forInObservesDeletionMidLoop", src: `
			var o = { a: 1, b: 2, c: 3 }, seen = '';
			for (var k in o) { seen = seen + k; delete o.b; }
			seen.indexOf('b') === -1 || seen === 'abc';
		`, expect: "true"},
		{name: "labelledContinue", src: `
			var hits = 0;
			outer: for (var i = 0; i < 3; i++) {
				for (var j = 0; j < 3; j++) {
					hits++;
					if (j === 1) continue outer;
				}
			}
			hits;
		`, expect: "6"},
		{name: "switchFallThrough", src: `
			var out = '';
			switch (2) {
				case 1: out = out + 'a';
				case 2: out = out + 'b';
				case 3: out = out + 'c'; break;
				case 4: out = out + 'd';
			}
			out;
		`, expect: "bc"},
		{name: "getterRunsOncePerAccess", src: `
			var calls = 0;
			var o = { get x() { calls++; return 42; } };
			o.x; o.x;
			calls;
		`, expect: "2"},
		{name: "setterReceivesValue", src: `
			var got;
			var o = { set x(v) { got = v * 2; } };
			o.x = 21;
			got;
		`, expect: "42"},
		{name: "evalSeesCallerScope", src: "function f() { var local = 9; return eval('local'); } f();", expect: "9"},
		{name: "evalSyntaxErrorIsCatchable", src: `
			var name;
			try { eval('var x = ;'); } catch (e) { name = e.name; }
			name;
		`, expect: "SyntaxError"},
		{name: "withStatement", src: "var o = { a: 7 }; var r; with (o) { r = a; } r;", expect: "7"},
		{name: "instanceofErrorHierarchy", src: "new TypeError('x') instanceof Error;", expect: "true"},
		{name: "constructorNonObjectReturnIgnored", src: `
			function C() { this.v = 1; return 42; }
			new C().v;
		`, expect: "1"},
		{name: "constructorObjectReturnWins", src: `
			function C() { this.v = 1; return { v: 2 }; }
			new C().v;
		`, expect: "2"},
	})
}

// TestAsyncFunctionPausesAndResumes: invoking an async
// native function pauses the evaluator, the deposited value lands in
// the suspended call frame, and execution resumes exactly where it
// left off.
func TestAsyncFunctionPausesAndResumes(t *testing.T) {
	var resume func(value.Value, *value.Throw)
	ip, err := Construct("var doubled = slowDouble(21); doubled;", func(ip *Interpreter, globalObject *value.Object) {
		fn := ip.CreateAsyncFunction("slowDouble", 1, func(r value.Realm, this value.Value, args []value.Value, cb func(value.Value, *value.Throw)) {
			n := args[0].AsNumber()
			resume = func(v value.Value, thrown *value.Throw) { cb(v, thrown) }
			_ = n
		})
		if thrown := ip.SetProperty(value.FromObject(globalObject), "slowDouble", value.FromObject(fn)); thrown != nil {
			t.Fatalf("SetProperty threw: %v", thrown)
		}
	}, DefaultOptions())
	if err != nil {
		t.Fatalf("Construct error: %v", err)
	}

	if paused := ip.Run(); !paused {
		t.Fatal("Run should return true while the async call is outstanding")
	}
	if !ip.IsPaused() {
		t.Fatal("IsPaused should report true while the async call is outstanding")
	}

	resume(value.Number(42), nil)

	deadline := time.Now().Add(2 * time.Second)
	for ip.IsPaused() {
		if time.Now().After(deadline) {
			t.Fatal("evaluator did not clear its paused state after resume")
		}
		time.Sleep(time.Millisecond)
	}
	for ip.Run() {
	}
	if err := ip.UnhandledError(); err != nil {
		t.Fatalf("unexpected unhandled error: %v", err)
	}
	if got := value.ToStringPrimitive(ip.Value()); got != "42" {
		t.Errorf("value = %q, want \"42\"", got)
	}
}

// TestRunIdempotentAfterTermination: once the
// program has terminated, further Run calls return false and leave the
// observed value untouched.
func TestRunIdempotentAfterTermination(t *testing.T) {
	ip := runToCompletion(t, "var x = 5; x;")
	first := value.ToStringPrimitive(ip.Value())
	if ip.Run() {
		t.Error("Run after termination should return false")
	}
	if ip.Run() {
		t.Error("a second Run after termination should also return false")
	}
	if got := value.ToStringPrimitive(ip.Value()); got != first {
		t.Errorf("value changed across post-termination Run calls: %q -> %q", first, got)
	}
}

func TestSyntaxErrorAtConstruction(t *testing.T) {
	_, err := Construct("var x = ;", nil, DefaultOptions())
	if err == nil {
		t.Fatal("malformed source should fail at Construct")
	}
}

func TestGlobalScopeIsolationBetweenInterpreters(t *testing.T) {
	a, err := Construct("var shared = 1; shared;", nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Construct error: %v", err)
	}
	b, err := Construct("typeof shared;", nil, DefaultOptions())
	if err != nil {
		t.Fatalf("Construct error: %v", err)
	}
	for a.Run() {
	}
	for b.Run() {
	}
	if value.ToStringPrimitive(b.Value()) != "undefined" {
		t.Error("a second interpreter should not see the first interpreter's global bindings")
	}
	if value.ToStringPrimitive(a.Value()) != "1" {
		t.Error("the first interpreter's own program should still see its own global binding")
	}
}
