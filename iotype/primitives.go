package iotype

import "github.com/holiman/uint256"

var (
	metaUnit = []byte{byte(KindUnit)}
	metaBool = []byte{byte(KindBool)}
	metaU8   = []byte{byte(KindU8)}
	metaU16  = []byte{byte(KindU16)}
	metaU32  = []byte{byte(KindU32)}
	metaU64  = []byte{byte(KindU64)}
	metaU128 = []byte{byte(KindU128)}
	metaI8   = []byte{byte(KindI8)}
	metaI16  = []byte{byte(KindI16)}
	metaI32  = []byte{byte(KindI32)}
	metaI64  = []byte{byte(KindI64)}
	metaI128 = []byte{byte(KindI128)}
)

// Unit is the zero-sized type.
type Unit struct{}

func (Unit) IoTypeMetadata() []byte { return metaUnit }

// Bool is stored as one byte. Any non-zero byte reads as true.
type Bool uint8

func NewBool(v bool) Bool {
	if v {
		return 1
	}
	return 0
}

func (b Bool) Get() bool { return b != 0 }

func (Bool) IoTypeMetadata() []byte { return metaBool }

type (
	U8  uint8
	U16 uint16
	U32 uint32
	U64 uint64
	I8  int8
	I16 int16
	I32 int32
	I64 int64
)

func (U8) IoTypeMetadata() []byte  { return metaU8 }
func (U16) IoTypeMetadata() []byte { return metaU16 }
func (U32) IoTypeMetadata() []byte { return metaU32 }
func (U64) IoTypeMetadata() []byte { return metaU64 }
func (I8) IoTypeMetadata() []byte  { return metaI8 }
func (I16) IoTypeMetadata() []byte { return metaI16 }
func (I32) IoTypeMetadata() []byte { return metaI32 }
func (I64) IoTypeMetadata() []byte { return metaI64 }

// U128 is a little-endian 128-bit unsigned integer.
type U128 [2]uint64

func NewU128(hi, lo uint64) U128 { return U128{lo, hi} }

func (v U128) Lo() uint64 { return v[0] }
func (v U128) Hi() uint64 { return v[1] }

// Uint256 widens the value for arithmetic.
func (v U128) Uint256() *uint256.Int { return &uint256.Int{v[0], v[1], 0, 0} }

func (v U128) String() string { return v.Uint256().Dec() }

func (U128) IoTypeMetadata() []byte { return metaU128 }

// I128 is a little-endian two's complement 128-bit signed integer.
type I128 [2]uint64

func (I128) IoTypeMetadata() []byte { return metaI128 }

// Metadata returns the type-shape metadata of T.
func Metadata[T Trivial]() []byte {
	var zero T
	return zero.IoTypeMetadata()
}
