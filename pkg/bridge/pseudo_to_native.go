package bridge

import (
	"strconv"
	"time"

	"sandbox5/pkg/regexpiso"
	"sandbox5/pkg/value"
)

// pseudoSeen tracks cycles as a pair of parallel lists
// (pseudo[i] <-> native[i]); revisits reuse the prior translation.
type pseudoSeen struct {
	pseudo []*value.Object
	native []interface{}
}

func (s *pseudoSeen) find(o *value.Object) (interface{}, bool) {
	for i, p := range s.pseudo {
		if p == o {
			return s.native[i], true
		}
	}
	return nil, false
}

// PseudoToNative converts an interpreted Value into a plain host Go
// value: primitives pass through, a Date becomes the time.Time in its
// Data slot, a RegExp becomes the string "/source/flags" (no host
// regexp instance is produced and lastIndex is not carried), Array-classed
// objects become []interface{} up to length (sparse holes remain
// nil), and generic objects become map[string]interface{}.
func (b *Bridge) PseudoToNative(v value.Value) (interface{}, error) {
	return b.pseudoToNative(v, &pseudoSeen{})
}

func (b *Bridge) pseudoToNative(v value.Value, seen *pseudoSeen) (interface{}, error) {
	switch v.Kind() {
	case value.KindUndefined:
		return nil, nil
	case value.KindNull:
		return nil, nil
	case value.KindBoolean:
		return v.AsBoolean(), nil
	case value.KindNumber:
		return v.AsNumber(), nil
	case value.KindString:
		return v.AsString(), nil
	case value.KindObject:
		return b.pseudoObjectToNative(v.AsObject(), seen)
	}
	return nil, nil
}

func (b *Bridge) pseudoObjectToNative(o *value.Object, seen *pseudoSeen) (interface{}, error) {
	if native, ok := seen.find(o); ok {
		return native, nil
	}

	switch o.Class {
	case "Date":
		if t, ok := o.Data.(time.Time); ok {
			return t, nil
		}
		return time.Time{}, nil
	case "RegExp":
		if c, ok := o.Data.(*regexpiso.Compiled); ok {
			return "/" + c.Source + "/" + c.Flags, nil
		}
		return "", nil
	}

	if o.IsArray() {
		n := o.ArrayLength()
		out := make([]interface{}, n)
		seen.pseudo = append(seen.pseudo, o)
		seen.native = append(seen.native, out)
		for i := uint32(0); i < n; i++ {
			p := o.GetOwn(strconv.FormatUint(uint64(i), 10))
			if p == nil {
				continue // sparse hole stays nil
			}
			nv, err := b.pseudoToNative(p.Value, seen)
			if err != nil {
				return nil, err
			}
			out[i] = nv
		}
		return out, nil
	}

	if o.IsCallable() {
		fn := o
		wrapper := func(args ...interface{}) (interface{}, error) {
			pargs := make([]value.Value, len(args))
			for i, a := range args {
				pv, err := b.NativeToPseudo(a)
				if err != nil {
					return nil, err
				}
				pargs[i] = pv
			}
			result, thrown := b.Call(value.FromObject(fn), value.Undefined, pargs)
			if thrown != nil {
				return nil, thrown
			}
			return b.PseudoToNative(result)
		}
		return wrapper, nil
	}

	out := make(map[string]interface{})
	seen.pseudo = append(seen.pseudo, o)
	seen.native = append(seen.native, out)
	for _, k := range o.OwnKeys() {
		p := o.GetOwn(k)
		if p == nil || p.IsAccessor() {
			continue // descriptors are not preserved; skip accessors
		}
		nv, err := b.pseudoToNative(p.Value, seen)
		if err != nil {
			return nil, err
		}
		// write-safe assignment: a plain Go map has no prototype chain
		// to accidentally trigger, so __proto__ etc. are just keys.
		out[k] = nv
	}
	return out, nil
}
