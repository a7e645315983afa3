package metadata

import "github.com/govm-net/nativevm/iotype"

// Compact rewrites a contract, trait or single method metadata blob into its compact form.
//
// Argument and trait names become zero-length, and every embedded type shape is compacted.
// With forExternalArgs, Env and Tmp arguments are dropped, Slot arguments collapse to SlotRo
// and stateful method kinds collapse to UpdateStateless or ViewStateless. The result is never
// longer than the input. Malformed input or leftover bytes yield (nil, false).
func Compact(metadata []byte, forExternalArgs bool) ([]byte, bool) {
	out, rest, ok := appendItem(make([]byte, 0, len(metadata)), metadata, forExternalArgs)
	if !ok || len(rest) != 0 || len(out) > iotype.MaxMetadataCapacity {
		return nil, false
	}
	return out, true
}

func appendItem(dst, src []byte, external bool) ([]byte, []byte, bool) {
	if len(src) == 0 {
		return dst, src, false
	}
	kind, ok := KindFromByte(src[0])
	if !ok {
		return dst, src, false
	}

	switch {
	case kind == KindContract:
		dst, src = append(dst, src[0]), src[1:]
		for i := 0; i < 3; i++ {
			if dst, src, ok = iotype.AppendCompact(dst, src); !ok {
				return dst, src, false
			}
		}
		return appendMethods(dst, src, external)
	case kind == KindTrait:
		dst, src = append(dst, src[0]), src[1:]
		if dst, src, ok = stripName(dst, src); !ok {
			return dst, src, false
		}
		return appendMethods(dst, src, external)
	case kind.IsMethod():
		return appendMethod(dst, src, external)
	}
	// An item cannot start with an argument.
	return dst, src, false
}

func appendMethods(dst, src []byte, external bool) ([]byte, []byte, bool) {
	if len(src) == 0 {
		return dst, src, false
	}
	n := src[0]
	dst, src = append(dst, n), src[1:]
	var ok bool
	for ; n > 0; n-- {
		if dst, src, ok = appendMethod(dst, src, external); !ok {
			return dst, src, false
		}
	}
	return dst, src, true
}

func appendMethod(dst, src []byte, external bool) ([]byte, []byte, bool) {
	if len(src) == 0 {
		return dst, src, false
	}
	kind, ok := KindFromByte(src[0])
	if !ok || !kind.IsMethod() {
		return dst, src, false
	}
	tag := kind
	if external {
		switch kind {
		case KindUpdateStatefulRo, KindUpdateStatefulRw:
			tag = KindUpdateStateless
		case KindViewStateful:
			tag = KindViewStateless
		}
	}
	dst, src = append(dst, byte(tag)), src[1:]

	// Method names are kept.
	if len(src) == 0 || len(src) < 1+int(src[0]) {
		return dst, src, false
	}
	nameLen := 1 + int(src[0])
	dst, src = append(dst, src[:nameLen]...), src[nameLen:]

	if len(src) == 0 {
		return dst, src, false
	}
	// The argument count is rewritten once dropped arguments are known.
	countAt := len(dst)
	n := src[0]
	dst, src = append(dst, n), src[1:]

	kept := byte(0)
	for remaining := n; remaining > 0; remaining-- {
		var emitted bool
		if dst, src, emitted, ok = appendArgument(dst, src, kind, remaining == 1, external); !ok {
			return dst, src, false
		}
		if emitted {
			kept++
		}
	}
	dst[countAt] = kept
	return dst, src, true
}

func appendArgument(dst, src []byte, method Kind, last, external bool) ([]byte, []byte, bool, bool) {
	if len(src) == 0 {
		return dst, src, false, false
	}
	kind, ok := KindFromByte(src[0])
	if !ok || !kind.IsArgument() {
		return dst, src, false, false
	}
	src = src[1:]

	switch kind {
	case KindEnvRo, KindEnvRw, KindTmpRo, KindTmpRw:
		if external {
			src, ok = skipName(src)
			return dst, src, false, ok
		}
		dst = append(dst, byte(kind))
		dst, src, ok = stripName(dst, src)
		return dst, src, true, ok
	case KindSlotRo, KindSlotRw:
		if external {
			kind = KindSlotRo
		}
		dst = append(dst, byte(kind))
		dst, src, ok = stripName(dst, src)
		return dst, src, true, ok
	}

	dst = append(dst, byte(kind))
	if dst, src, ok = stripName(dst, src); !ok {
		return dst, src, false, false
	}
	if method == KindInit && last && kind != KindInput {
		return dst, src, true, true
	}
	dst, src, ok = iotype.AppendCompact(dst, src)
	return dst, src, true, ok
}

func stripName(dst, src []byte) ([]byte, []byte, bool) {
	rest, ok := skipName(src)
	if !ok {
		return dst, src, false
	}
	return append(dst, 0), rest, true
}

func skipName(src []byte) ([]byte, bool) {
	if len(src) == 0 || len(src) < 1+int(src[0]) {
		return src, false
	}
	return src[1+int(src[0]):], true
}
