package iotype

import "fmt"

// TypeName returns the display name of the type at the start of metadata.
// Struct and enum kinds report their encoded name, which is empty after compaction.
func TypeName(metadata []byte) (string, bool) {
	if len(metadata) == 0 {
		return "", false
	}
	kind, ok := KindFromByte(metadata[0])
	if !ok {
		return "", false
	}
	rest := metadata[1:]

	switch kind {
	case KindUnit:
		return "()", true
	case KindBool:
		return "bool", true
	case KindU8, KindU16, KindU32, KindU64, KindU128:
		return "u" + kind.String()[1:], true
	case KindI8, KindI16, KindI32, KindI64, KindI128:
		return "i" + kind.String()[1:], true
	case KindArray8b, KindArray16b, KindArray32b:
		return "[T; N]", true
	case KindVariableElements8b, KindVariableElements16b, KindVariableElements32b, KindVariableElements0:
		return "VariableElements", true
	case KindFixedCapacityBytes8b, KindFixedCapacityBytes16b:
		return "FixedCapacityBytes", true
	case KindFixedCapacityString8b, KindFixedCapacityString16b:
		return "FixedCapacityString", true
	case KindVariableBytes8b, KindVariableBytes16b, KindVariableBytes32b:
		return "VariableBytes", true
	case KindUnaligned:
		return "Unaligned", true
	case KindAddress:
		return "Address", true
	case KindBalance:
		return "Balance", true
	}

	if kind.isStruct() || kind.isTupleStruct() || kind.isEnum() || kind.isEnumNoFields() {
		if len(rest) == 0 || len(rest) < 1+int(rest[0]) {
			return "", false
		}
		return string(rest[1 : 1+int(rest[0])]), true
	}
	if n, ok := byteArrayKinds[kind]; ok {
		return fmt.Sprintf("[u8; %d]", n), true
	}
	if _, ok := variableBytesKinds[kind]; ok {
		return "VariableBytes", true
	}
	return "", false
}
