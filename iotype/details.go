package iotype

import "math"

// TypeDetails is the size and alignment recommendation decoded from type-shape metadata.
type TypeDetails struct {
	// RecommendedCapacity is the number of bytes a buffer for this type should reserve.
	RecommendedCapacity uint32
	// Alignment is never zero.
	Alignment uint8
}

func bytesDetails(n uint32) TypeDetails {
	return TypeDetails{RecommendedCapacity: n, Alignment: 1}
}

// DecodeTypeDetails decodes the type at the start of metadata and returns the remaining bytes.
func DecodeTypeDetails(metadata []byte) (TypeDetails, []byte, bool) {
	if len(metadata) == 0 {
		return TypeDetails{}, metadata, false
	}
	kind, ok := KindFromByte(metadata[0])
	if !ok {
		return TypeDetails{}, metadata, false
	}
	rest := metadata[1:]

	switch kind {
	case KindUnit:
		return TypeDetails{RecommendedCapacity: 0, Alignment: 1}, rest, true
	case KindBool, KindU8, KindI8:
		return TypeDetails{RecommendedCapacity: 1, Alignment: 1}, rest, true
	case KindU16, KindI16:
		return TypeDetails{RecommendedCapacity: 2, Alignment: 2}, rest, true
	case KindU32, KindI32:
		return TypeDetails{RecommendedCapacity: 4, Alignment: 4}, rest, true
	case KindU64, KindI64:
		return TypeDetails{RecommendedCapacity: 8, Alignment: 8}, rest, true
	case KindU128, KindI128:
		return TypeDetails{RecommendedCapacity: 16, Alignment: 16}, rest, true
	case KindAddress, KindBalance:
		return TypeDetails{RecommendedCapacity: 16, Alignment: 8}, rest, true
	}

	switch {
	case kind.isStruct():
		return structDetails(rest, kind.fieldCount(), false)
	case kind.isTupleStruct():
		return structDetails(rest, kind.fieldCount(), true)
	case kind.isEnum():
		return enumDetails(rest, kind.fieldCount(), true)
	case kind.isEnumNoFields():
		return enumDetails(rest, kind.fieldCount(), false)
	}
	if n, ok := byteArrayKinds[kind]; ok {
		return bytesDetails(n), rest, true
	}
	if n, ok := variableBytesKinds[kind]; ok {
		return bytesDetails(n), rest, true
	}

	header := kind.lengthHeader()
	count, ok := readLE(rest, header)
	if !ok {
		return TypeDetails{}, metadata, false
	}
	rest = rest[header:]

	switch kind {
	case KindVariableBytes8b, KindVariableBytes16b, KindVariableBytes32b:
		return bytesDetails(count), rest, true
	case KindFixedCapacityBytes8b, KindFixedCapacityString8b:
		return bytesDetails(count + 1), rest, true
	case KindFixedCapacityBytes16b, KindFixedCapacityString16b:
		return bytesDetails(count + 2), rest, true
	case KindVariableElements0:
		_, rest, ok := DecodeTypeDetails(rest)
		if !ok {
			return TypeDetails{}, metadata, false
		}
		return TypeDetails{RecommendedCapacity: 0, Alignment: 1}, rest, true
	case KindUnaligned:
		inner, rest, ok := DecodeTypeDetails(rest)
		if !ok {
			return TypeDetails{}, metadata, false
		}
		return bytesDetails(inner.RecommendedCapacity), rest, true
	}

	// Arrays and variable elements with an explicit count.
	element, rest, ok := DecodeTypeDetails(rest)
	if !ok {
		return TypeDetails{}, metadata, false
	}
	total := uint64(element.RecommendedCapacity) * uint64(count)
	if total > math.MaxUint32 {
		return TypeDetails{}, metadata, false
	}
	return TypeDetails{RecommendedCapacity: uint32(total), Alignment: element.Alignment}, rest, true
}

func structDetails(src []byte, count int, tuple bool) (TypeDetails, []byte, bool) {
	src, ok := skipName(src)
	if !ok {
		return TypeDetails{}, src, false
	}
	if count < 0 {
		if len(src) == 0 {
			return TypeDetails{}, src, false
		}
		count = int(src[0])
		src = src[1:]
	}

	details := TypeDetails{Alignment: 1}
	for ; count > 0; count-- {
		if !tuple {
			if src, ok = skipName(src); !ok {
				return TypeDetails{}, src, false
			}
		}
		var field TypeDetails
		if field, src, ok = DecodeTypeDetails(src); !ok {
			return TypeDetails{}, src, false
		}
		sum := uint64(details.RecommendedCapacity) + uint64(field.RecommendedCapacity)
		if sum > math.MaxUint32 {
			return TypeDetails{}, src, false
		}
		details.RecommendedCapacity = uint32(sum)
		details.Alignment = max(details.Alignment, field.Alignment)
	}
	return details, src, true
}

// enumDetails requires every variant to have the same size; one byte is added for the discriminant.
func enumDetails(src []byte, count int, hasFields bool) (TypeDetails, []byte, bool) {
	src, ok := skipName(src)
	if !ok {
		return TypeDetails{}, src, false
	}
	if count < 0 {
		if len(src) == 0 {
			return TypeDetails{}, src, false
		}
		count = int(src[0])
		src = src[1:]
	}

	details := TypeDetails{Alignment: 1}
	first := true
	for ; count > 0; count-- {
		fields := 0
		if hasFields {
			fields = -1
		}
		var variant TypeDetails
		if variant, src, ok = structDetails(src, fields, false); !ok {
			return TypeDetails{}, src, false
		}
		capacity := variant.RecommendedCapacity + 1
		if first {
			details.RecommendedCapacity = capacity
			first = false
		} else if capacity != details.RecommendedCapacity {
			return TypeDetails{}, src, false
		}
		details.Alignment = max(details.Alignment, variant.Alignment)
	}
	return details, src, true
}
