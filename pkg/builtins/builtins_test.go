// The builtins installers only make sense wired to a live evaluator
// (their natives re-enter through Realm.Call for comparators,
// replacers, and accessor dispatch), so these tests run in an external
// test package over a real interpreter rather than against a stub
// Realm that would have to fake half the call machinery.
package builtins_test

import (
	"testing"

	"sandbox5/pkg/interp"
	"sandbox5/pkg/value"
)

func evalProgram(t *testing.T, src string) *interp.Interpreter {
	t.Helper()
	ip, err := interp.Construct(src, nil, interp.DefaultOptions())
	if err != nil {
		t.Fatalf("Construct(%q) error: %v", src, err)
	}
	for ip.Run() {
		t.Fatalf("program unexpectedly paused: %q", src)
	}
	if err := ip.UnhandledError(); err != nil {
		t.Fatalf("unhandled error in %q: %v", src, err)
	}
	return ip
}

func evalToString(t *testing.T, src string) string {
	t.Helper()
	return value.ToStringPrimitive(evalProgram(t, src).Value())
}

type builtinCase struct {
	name   string
	src    string
	expect string
}

func runCases(t *testing.T, cases []builtinCase) {
	t.Helper()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := evalToString(t, tc.src); got != tc.expect {
				t.Errorf("value = %q, want %q", got, tc.expect)
			}
		})
	}
}

func TestObjectStatics(t *testing.T) {
	runCases(t, []builtinCase{
		{name: "definePropertyGetter", src: `
			var o = {};
			Object.defineProperty(o, 'x', { get: function () { return 7; } });
			o.x;
		`, expect: "7"},
		{name: "definePropertySetter", src: `
			var got;
			var o = {};
			Object.defineProperty(o, 'x', { set: function (v) { got = v * 2; } });
			o.x = 21;
			got;
		`, expect: "42"},
		{name: "definePropertyNonWritableSilentInLoose", src: `
			var o = {};
			Object.defineProperty(o, 'x', { value: 1 });
			o.x = 99;
			o.x;
		`, expect: "1"},
		{name: "redefineNonConfigurableThrows", src: `
			var name;
			var o = {};
			Object.defineProperty(o, 'x', { value: 1, configurable: false });
			try {
				Object.defineProperty(o, 'x', { value: 2, configurable: true });
			} catch (e) { name = e.name; }
			name;
		`, expect: "TypeError"},
		{name: "valueAndGetterMixThrows", src: `
			var name;
			try {
				Object.defineProperty({}, 'x', { value: 1, get: function () {} });
			} catch (e) { name = e.name; }
			name;
		`, expect: "TypeError"},
		{name: "getOwnPropertyDescriptor", src: `
			var d = Object.getOwnPropertyDescriptor({ a: 1 }, 'a');
			[d.value, d.writable, d.enumerable, d.configurable].join(',');
		`, expect: "1,true,true,true"},
		{name: "freezeStopsWritesAndAdds", src: `
			var o = { a: 1 };
			Object.freeze(o);
			o.a = 2;
			o.b = 3;
			[o.a, 'b' in o, Object.isFrozen(o)].join(',');
		`, expect: "1,false,true"},
		{name: "sealAllowsWritesForbidsDeletes", src: `
			var o = { a: 1 };
			Object.seal(o);
			delete o.a;
			o.a = 2;
			[o.a, Object.isSealed(o), Object.isFrozen(o)].join(',');
		`, expect: "2,true,false"},
		{name: "preventExtensions", src: `
			var o = { a: 1 };
			Object.preventExtensions(o);
			o.b = 2;
			['b' in o, Object.isExtensible(o)].join(',');
		`, expect: "false,false"},
		{name: "keysEnumerableOnly", src: `
			var o = { a: 1, b: 2 };
			Object.defineProperty(o, 'hidden', { value: 3, enumerable: false });
			Object.keys(o).join(',');
		`, expect: "a,b"},
		{name: "createInherits", src: `
			var p = { greet: function () { return 'hi'; } };
			Object.create(p).greet();
		`, expect: "hi"},
		{name: "getPrototypeOfCreated", src: `
			var p = {};
			Object.getPrototypeOf(Object.create(p)) === p;
		`, expect: "true"},
	})
}

func TestDateSetters(t *testing.T) {
	runCases(t, []builtinCase{
		{name: "setFullYearMonthDate", src: `
			var d = new Date(0);
			d.setFullYear(2020);
			d.setMonth(5);
			d.setDate(15);
			[d.getFullYear(), d.getMonth(), d.getDate()].join(',');
		`, expect: "2020,5,15"},
		{name: "setTimeRoundTrips", src: `
			var d = new Date(0);
			d.setTime(86400000);
			d.getTime();
		`, expect: "86400000"},
		{name: "setHoursMinutesSeconds", src: `
			var d = new Date(0);
			d.setHours(13);
			d.setMinutes(30);
			d.setSeconds(45);
			[d.getHours(), d.getMinutes(), d.getSeconds()].join(',');
		`, expect: "13,30,45"},
		{name: "epochISOString", src: "new Date(0).toISOString();", expect: "1970-01-01T00:00:00.000Z"},
		{name: "multiArgConstructor", src: `
			var d = new Date(2020, 0, 2);
			[d.getFullYear(), d.getMonth(), d.getDate()].join(',');
		`, expect: "2020,0,2"},
		{name: "setterOnNonDateThrows", src: `
			var name;
			try { Date.prototype.setTime.call({}, 0); } catch (e) { name = e.name; }
			name;
		`, expect: "TypeError"},
	})
}

func TestArrayMethods(t *testing.T) {
	runCases(t, []builtinCase{
		{name: "spliceRemovesAndInserts", src: `
			var a = [1, 2, 3, 4, 5];
			var removed = a.splice(1, 2, 'x');
			[a.join('-'), removed.join('-'), a.length].join('|');
		`, expect: "1-x-4-5|2-3|4"},
		{name: "spliceNegativeStart", src: `
			var a = [1, 2, 3];
			a.splice(-1, 1);
			a.join(',');
		`, expect: "1,2"},
		{name: "reduceWithInitial", src: `
			[1, 2, 3, 4].reduce(function (acc, v) { return acc + v; }, 10);
		`, expect: "20"},
		{name: "reduceWithoutInitial", src: `
			[1, 2, 3, 4].reduce(function (acc, v) { return acc + v; });
		`, expect: "10"},
		{name: "reduceRightOrder", src: `
			['a', 'b', 'c'].reduceRight(function (acc, v) { return acc + v; });
		`, expect: "cba"},
		{name: "reduceEmptyNoInitialThrows", src: `
			var name;
			try { [].reduce(function () {}); } catch (e) { name = e.name; }
			name;
		`, expect: "TypeError"},
		{name: "indexOfFromIndex", src: "[1, 2, 1].indexOf(1, 1);", expect: "2"},
		{name: "concatThenSlice", src: "[1, 2].concat([3, 4]).slice(1, 3).join(',');", expect: "2,3"},
		{name: "filterThenMap", src: `
			[1, 2, 3, 4]
				.filter(function (n) { return n % 2 === 0; })
				.map(function (n) { return n * 10; })
				.join(',');
		`, expect: "20,40"},
		{name: "unshiftShift", src: `
			var a = [2, 3];
			a.unshift(1);
			a.shift() + ',' + a.join('');
		`, expect: "1,23"},
	})
}

func TestStringMethods(t *testing.T) {
	runCases(t, []builtinCase{
		{name: "replaceGlobalRegex", src: "'a-b-c'.replace(/-/g, '+');", expect: "a+b+c"},
		{name: "replaceFunctionSeesMatchOffsetString", src: `
			'abc'.replace(/b/, function (m, off, s) { return m.toUpperCase() + off; });
		`, expect: "aB1c"},
		{name: "replaceDollarGroups", src: `
			'John Smith'.replace(/(\w+) (\w+)/, '$2 $1');
		`, expect: "Smith John"},
		{name: "matchGlobalCollectsAll", src: "'cat bat'.match(/[cb]at/g).join(',');", expect: "cat,bat"},
		{name: "matchCaptureGroup", src: "'cat'.match(/c(a)t/)[1];", expect: "a"},
		{name: "matchNoHitIsNull", src: "'cat'.match(/dog/) === null;", expect: "true"},
		{name: "searchReportsIndex", src: "'hello'.search(/l+/);", expect: "2"},
		{name: "splitByRegex", src: "'a1b22c'.split(/\\d+/).join('-');", expect: "a-b-c"},
		{name: "boxedStringCarriesExtraProperties", src: `
			var s = new String('hi');
			s.foo = 42;
			[s.foo, s.length, s[0]].join(',');
		`, expect: "42,2,h"},
		{name: "boxedStringIndicesAndLengthReadOnly", src: `
			var s = new String('hi');
			s.length = 99;
			s[0] = 'x';
			[s.length, s[0]].join(',');
		`, expect: "2,h"},
		{name: "boxedStringReadOnlyWriteThrowsInStrict", src: `
			'use strict';
			var name;
			var s = new String('hi');
			try { s.length = 99; } catch (e) { name = e.name; }
			name;
		`, expect: "TypeError"},
	})
}

func TestBoxedNumberAndBoolean(t *testing.T) {
	runCases(t, []builtinCase{
		{name: "newNumberValueOf", src: "new Number(5).valueOf() + 1;", expect: "6"},
		{name: "newBooleanToString", src: "new Boolean(false).toString();", expect: "false"},
		{name: "numberToStringRadix", src: "(255).toString(16);", expect: "ff"},
	})
}

func TestJSONStringifyEdgeCases(t *testing.T) {
	runCases(t, []builtinCase{
		{name: "controlCharacterZeroPadded", src: "JSON.stringify('\\u0001');", expect: `"\u0001"`},
		{name: "fullwidthCharacterPreserved", src: `JSON.stringify('Ａ') === '"Ａ"';`, expect: "true"},
		{name: "unicodeRoundTrip", src: `
			JSON.parse(JSON.stringify('Ａ')) === 'Ａ';
		`, expect: "true"},
		{name: "escapesQuoteAndBackslash", src: `JSON.stringify('a"b\\c');`, expect: `"a\"b\\c"`},
		{name: "circularThrows", src: `
			var name;
			var o = {};
			o.self = o;
			try { JSON.stringify(o); } catch (e) { name = e.name; }
			name;
		`, expect: "TypeError"},
		{name: "undefinedInArrayBecomesNull", src: "JSON.stringify([1, undefined, 2]);", expect: "[1,null,2]"},
		{name: "functionPropertySkipped", src: "JSON.stringify({ a: 1, f: function () {} });", expect: `{"a":1}`},
		{name: "allowListReplacer", src: "JSON.stringify({ a: 1, b: 2 }, ['a']);", expect: `{"a":1}`},
		{name: "indentedNesting", src: "JSON.stringify({ a: [1] }, null, 2);", expect: "{\n  \"a\": [\n    1\n  ]\n}"},
		{name: "dateUsesToJSON", src: "JSON.stringify(new Date(0));", expect: `"1970-01-01T00:00:00.000Z"`},
	})
}

func TestGlobalFunctions(t *testing.T) {
	runCases(t, []builtinCase{
		{name: "parseIntHexPrefix", src: "parseInt('0x1F');", expect: "31"},
		{name: "parseFloatTrailingGarbage", src: "parseFloat('3.5abc');", expect: "3.5"},
		{name: "encodeURIComponentZeroPads", src: "encodeURIComponent('\\u0005');", expect: "%05"},
		{name: "decodeURIComponentRoundTrip", src: `
			decodeURIComponent(encodeURIComponent('a b&c')) === 'a b&c';
		`, expect: "true"},
	})
}
