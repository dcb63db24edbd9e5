package builtins

// arrayPolyfillSource installs Array.prototype.sort as interpreted
// ES5 source rather than a Go native method, so comparator calls
// travel the same interpreted call path user code uses rather than a
// native sort.Slice reaching into the interpreted world through a
// one-off callback bridge.
const arrayPolyfillSource = `
Array.prototype.sort = function (comparator) {
  var compare = comparator;
  if (typeof compare !== "function") {
    compare = function (a, b) {
      a = String(a);
      b = String(b);
      if (a < b) return -1;
      if (a > b) return 1;
      return 0;
    };
  }
  var len = this.length;
  for (var i = 0; i < len - 1; i++) {
    for (var j = 0; j < len - i - 1; j++) {
      var a = this[j];
      var b = this[j + 1];
      var swap;
      if (a === undefined) {
        swap = b !== undefined;
      } else if (b === undefined) {
        swap = false;
      } else {
        swap = compare(a, b) > 0;
      }
      if (swap) {
        this[j] = b;
        this[j + 1] = a;
      }
    }
  }
  return this;
};
`

// stringPolyfillSource carries no additional polyfills: the whole
// String.prototype surface is implemented natively in string.go. It
// exists as a named constant (rather than being dropped from Install)
// so a later addition has an obvious home, matching the array
// polyfill's wiring shape.
const stringPolyfillSource = ``
