package iotype

// Compact compacts a single complete type-shape metadata sequence.
// It fails on malformed input or leftover bytes.
func Compact(metadata []byte) ([]byte, bool) {
	out, rest, ok := AppendCompact(make([]byte, 0, len(metadata)), metadata)
	if !ok || len(rest) != 0 || len(out) > MaxMetadataCapacity {
		return nil, false
	}
	return out, true
}

// AppendCompact appends the compacted form of the type-shape metadata at the start of src to dst.
//
// Struct, enum, variant and field names are removed. Structs with named fields become tuple
// structs. It returns the extended dst and the unconsumed remainder of src.
func AppendCompact(dst, src []byte) ([]byte, []byte, bool) {
	if len(src) == 0 {
		return dst, src, false
	}
	kind, ok := KindFromByte(src[0])
	if !ok {
		return dst, src, false
	}

	switch {
	case kind.isScalar():
		return append(dst, src[0]), src[1:], true
	case kind.isStruct():
		n := kind.fieldCount()
		switch {
		case n < 0:
			dst = append(dst, byte(KindTupleStruct))
		case n == 0:
			dst = append(dst, byte(KindStruct0))
		default:
			dst = append(dst, byte(KindTupleStruct1)+byte(n-1))
		}
		return compactStruct(dst, src[1:], n, false)
	case kind.isTupleStruct():
		return compactStruct(append(dst, src[0]), src[1:], kind.fieldCount(), true)
	case kind.isEnum():
		return compactEnum(append(dst, src[0]), src[1:], kind.fieldCount(), true)
	case kind.isEnumNoFields():
		return compactEnum(append(dst, src[0]), src[1:], kind.fieldCount(), false)
	}

	header := kind.lengthHeader()
	if len(src) < 1+header {
		return dst, src, false
	}
	dst = append(dst, src[:1+header]...)
	src = src[1+header:]
	if kind.hasElementType() {
		return AppendCompact(dst, src)
	}
	return dst, src, true
}

// compactStruct handles the part after the tag. A negative count means it is encoded explicitly.
// Field names are dropped from the output for both named and tuple input.
func compactStruct(dst, src []byte, count int, tuple bool) ([]byte, []byte, bool) {
	var ok bool
	if dst, src, ok = stripName(dst, src); !ok {
		return dst, src, false
	}
	if count < 0 {
		if len(src) == 0 {
			return dst, src, false
		}
		count = int(src[0])
		dst = append(dst, src[0])
		src = src[1:]
	}
	for ; count > 0; count-- {
		if !tuple {
			if src, ok = skipName(src); !ok {
				return dst, src, false
			}
		}
		if dst, src, ok = AppendCompact(dst, src); !ok {
			return dst, src, false
		}
	}
	return dst, src, true
}

// compactEnum keeps variant structure; variant field names are written as empty names so the
// result still decodes as an enum.
func compactEnum(dst, src []byte, count int, hasFields bool) ([]byte, []byte, bool) {
	var ok bool
	if dst, src, ok = stripName(dst, src); !ok {
		return dst, src, false
	}
	if count < 0 {
		if len(src) == 0 {
			return dst, src, false
		}
		count = int(src[0])
		dst = append(dst, src[0])
		src = src[1:]
	}
	for ; count > 0; count-- {
		if dst, src, ok = stripName(dst, src); !ok {
			return dst, src, false
		}
		if !hasFields {
			continue
		}
		if len(src) == 0 {
			return dst, src, false
		}
		fields := int(src[0])
		dst = append(dst, src[0])
		src = src[1:]
		for ; fields > 0; fields-- {
			if dst, src, ok = stripName(dst, src); !ok {
				return dst, src, false
			}
			if dst, src, ok = AppendCompact(dst, src); !ok {
				return dst, src, false
			}
		}
	}
	return dst, src, true
}

// stripName replaces a length-prefixed name with a zero length.
func stripName(dst, src []byte) ([]byte, []byte, bool) {
	rest, ok := skipName(src)
	if !ok {
		return dst, src, false
	}
	return append(dst, 0), rest, true
}

func skipName(src []byte) ([]byte, bool) {
	if len(src) == 0 {
		return src, false
	}
	n := 1 + int(src[0])
	if len(src) < n {
		return src, false
	}
	return src[n:], true
}
