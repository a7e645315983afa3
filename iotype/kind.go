// Package iotype describes the memory layout of values exchanged with native contracts.
//
// Every type that crosses the contract boundary carries a metadata byte sequence
// starting with one of the Kind tags below. The encoding is wire-stable.
package iotype

import "fmt"

// MaxMetadataCapacity is the upper bound for any single metadata byte sequence.
const MaxMetadataCapacity = 8192

// Kind is the first byte of a type-shape metadata sequence.
type Kind uint8

const (
	KindUnit Kind = iota
	KindBool
	KindU8
	KindU16
	KindU32
	KindU64
	KindU128
	KindI8
	KindI16
	KindI32
	KindI64
	KindI128
	// KindStruct is followed by a name, a field count and named fields.
	KindStruct
	KindStruct0
	KindStruct1
	KindStruct2
	KindStruct3
	KindStruct4
	KindStruct5
	KindStruct6
	KindStruct7
	KindStruct8
	KindStruct9
	KindStruct10
	// KindTupleStruct is followed by a name, a field count and unnamed fields.
	KindTupleStruct
	KindTupleStruct1
	KindTupleStruct2
	KindTupleStruct3
	KindTupleStruct4
	KindTupleStruct5
	KindTupleStruct6
	KindTupleStruct7
	KindTupleStruct8
	KindTupleStruct9
	KindTupleStruct10
	// KindEnum is followed by a name, a variant count and struct-like variants.
	KindEnum
	KindEnum1
	KindEnum2
	KindEnum3
	KindEnum4
	KindEnum5
	KindEnum6
	KindEnum7
	KindEnum8
	KindEnum9
	KindEnum10
	// KindEnumNoFields is followed by a name, a variant count and variant names.
	KindEnumNoFields
	KindEnumNoFields1
	KindEnumNoFields2
	KindEnumNoFields3
	KindEnumNoFields4
	KindEnumNoFields5
	KindEnumNoFields6
	KindEnumNoFields7
	KindEnumNoFields8
	KindEnumNoFields9
	KindEnumNoFields10
	// KindArray8b is followed by a u8 element count and the element type.
	KindArray8b
	KindArray16b
	KindArray32b
	KindArrayU8x8
	KindArrayU8x16
	KindArrayU8x32
	KindArrayU8x64
	KindArrayU8x128
	KindArrayU8x256
	KindArrayU8x512
	KindArrayU8x1024
	KindArrayU8x2028
	KindArrayU8x4096
	// KindVariableBytes8b is followed by a u8 recommended allocation.
	KindVariableBytes8b
	KindVariableBytes16b
	KindVariableBytes32b
	KindVariableBytes0
	KindVariableBytes512
	KindVariableBytes1024
	KindVariableBytes2028
	KindVariableBytes4096
	KindVariableBytes8192
	KindVariableBytes16384
	KindVariableBytes32768
	KindVariableBytes65536
	KindVariableBytes131072
	KindVariableBytes262144
	KindVariableBytes524288
	KindVariableBytes1048576
	// KindVariableElements8b is followed by a u8 recommended element count and the element type.
	KindVariableElements8b
	KindVariableElements16b
	KindVariableElements32b
	KindVariableElements0
	KindFixedCapacityBytes8b
	KindFixedCapacityBytes16b
	KindFixedCapacityString8b
	KindFixedCapacityString16b
	// KindUnaligned wraps another trivial type.
	KindUnaligned
)

const (
	KindAddress Kind = 128 + iota
	KindBalance
)

var kindNames = map[Kind]string{
	KindUnit: "Unit", KindBool: "Bool",
	KindU8: "U8", KindU16: "U16", KindU32: "U32", KindU64: "U64", KindU128: "U128",
	KindI8: "I8", KindI16: "I16", KindI32: "I32", KindI64: "I64", KindI128: "I128",
	KindStruct: "Struct", KindTupleStruct: "TupleStruct",
	KindEnum: "Enum", KindEnumNoFields: "EnumNoFields",
	KindArray8b: "Array8b", KindArray16b: "Array16b", KindArray32b: "Array32b",
	KindVariableBytes8b: "VariableBytes8b", KindVariableBytes16b: "VariableBytes16b",
	KindVariableBytes32b: "VariableBytes32b",
	KindVariableElements8b: "VariableElements8b", KindVariableElements16b: "VariableElements16b",
	KindVariableElements32b: "VariableElements32b", KindVariableElements0: "VariableElements0",
	KindFixedCapacityBytes8b: "FixedCapacityBytes8b", KindFixedCapacityBytes16b: "FixedCapacityBytes16b",
	KindFixedCapacityString8b: "FixedCapacityString8b", KindFixedCapacityString16b: "FixedCapacityString16b",
	KindUnaligned: "Unaligned", KindAddress: "Address", KindBalance: "Balance",
}

// byteArrayKinds maps specialized [u8; N] tags to N.
var byteArrayKinds = map[Kind]uint32{
	KindArrayU8x8: 8, KindArrayU8x16: 16, KindArrayU8x32: 32, KindArrayU8x64: 64,
	KindArrayU8x128: 128, KindArrayU8x256: 256, KindArrayU8x512: 512,
	KindArrayU8x1024: 1024, KindArrayU8x2028: 2028, KindArrayU8x4096: 4096,
}

// variableBytesKinds maps fixed-allocation VariableBytes tags to their recommended allocation.
var variableBytesKinds = map[Kind]uint32{
	KindVariableBytes0: 0, KindVariableBytes512: 512, KindVariableBytes1024: 1024,
	KindVariableBytes2028: 2028, KindVariableBytes4096: 4096, KindVariableBytes8192: 8192,
	KindVariableBytes16384: 16384, KindVariableBytes32768: 32768, KindVariableBytes65536: 65536,
	KindVariableBytes131072: 131072, KindVariableBytes262144: 262144,
	KindVariableBytes524288: 524288, KindVariableBytes1048576: 1048576,
}

// KindFromByte validates a tag byte.
func KindFromByte(b byte) (Kind, bool) {
	k := Kind(b)
	if k <= KindUnaligned || k == KindAddress || k == KindBalance {
		return k, true
	}
	return 0, false
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	switch {
	case k >= KindStruct0 && k <= KindStruct10:
		return fmt.Sprintf("Struct%d", k-KindStruct0)
	case k >= KindTupleStruct1 && k <= KindTupleStruct10:
		return fmt.Sprintf("TupleStruct%d", k-KindTupleStruct1+1)
	case k >= KindEnum1 && k <= KindEnum10:
		return fmt.Sprintf("Enum%d", k-KindEnum1+1)
	case k >= KindEnumNoFields1 && k <= KindEnumNoFields10:
		return fmt.Sprintf("EnumNoFields%d", k-KindEnumNoFields1+1)
	}
	if n, ok := byteArrayKinds[k]; ok {
		return fmt.Sprintf("ArrayU8x%d", n)
	}
	if n, ok := variableBytesKinds[k]; ok {
		return fmt.Sprintf("VariableBytes%d", n)
	}
	return fmt.Sprintf("Kind(%d)", uint8(k))
}

func (k Kind) isScalar() bool {
	return k <= KindI128
}

// fieldCount returns the implied field or variant count of sized struct and enum tags,
// or -1 when the count is encoded explicitly.
func (k Kind) fieldCount() int {
	switch {
	case k == KindStruct0:
		return 0
	case k >= KindStruct1 && k <= KindStruct10:
		return int(k - KindStruct0)
	case k >= KindTupleStruct1 && k <= KindTupleStruct10:
		return int(k-KindTupleStruct1) + 1
	case k >= KindEnum1 && k <= KindEnum10:
		return int(k-KindEnum1) + 1
	case k >= KindEnumNoFields1 && k <= KindEnumNoFields10:
		return int(k-KindEnumNoFields1) + 1
	}
	return -1
}

func (k Kind) isStruct() bool {
	return k >= KindStruct && k <= KindStruct10
}

func (k Kind) isTupleStruct() bool {
	return k >= KindTupleStruct && k <= KindTupleStruct10
}

func (k Kind) isEnum() bool {
	return k >= KindEnum && k <= KindEnum10
}

func (k Kind) isEnumNoFields() bool {
	return k >= KindEnumNoFields && k <= KindEnumNoFields10
}

// lengthHeader returns the size of the little-endian number that follows the tag.
func (k Kind) lengthHeader() int {
	switch k {
	case KindArray8b, KindVariableElements8b, KindVariableBytes8b,
		KindFixedCapacityBytes8b, KindFixedCapacityString8b:
		return 1
	case KindArray16b, KindVariableElements16b, KindVariableBytes16b,
		KindFixedCapacityBytes16b, KindFixedCapacityString16b:
		return 2
	case KindArray32b, KindVariableElements32b, KindVariableBytes32b:
		return 4
	}
	return 0
}

// hasElementType reports whether the tag (after its length header) is followed by a nested type.
func (k Kind) hasElementType() bool {
	switch k {
	case KindArray8b, KindArray16b, KindArray32b,
		KindVariableElements8b, KindVariableElements16b, KindVariableElements32b,
		KindVariableElements0, KindUnaligned:
		return true
	}
	return false
}

// readLE reads an n-byte little-endian number.
func readLE(b []byte, n int) (uint32, bool) {
	if len(b) < n {
		return 0, false
	}
	var v uint32
	for i := n - 1; i >= 0; i-- {
		v = v<<8 | uint32(b[i])
	}
	return v, true
}
