// Package core 定义了合约运行时共享的基础类型
// Addresses, shard indices and contract exit codes live here.
package core

import (
	"bytes"
	"fmt"

	"github.com/holiman/uint256"

	"github.com/govm-net/nativevm/iotype"
)

const (
	// MaxCodeSize is the largest code blob the code registry accepts.
	MaxCodeSize = 1024 * 1024
	// MaxTotalMethodArgs bounds the number of arguments of a single method.
	MaxTotalMethodArgs = 8
)

// Address is a 128-bit little-endian contract or account identifier.
type Address [16]byte

var (
	NullAddress = AddressFromUint64(0)
	// SystemCode manages code of all contracts, including its own.
	SystemCode = AddressFromUint64(1)
	// SystemBlock is reserved for block state.
	SystemBlock = AddressFromUint64(2)
	// SystemState manages state of all contracts.
	SystemState = AddressFromUint64(3)
	// SystemNativeToken is reserved for the native token.
	SystemNativeToken = AddressFromUint64(4)
	// SystemSimpleWalletBase is reserved for the base wallet contract.
	SystemSimpleWalletBase = AddressFromUint64(10)
)

var addressMetadata = []byte{byte(iotype.KindAddress)}

func (Address) IoTypeMetadata() []byte { return addressMetadata }

// AddressFromUint64 returns the address with the given low 64 bits.
func AddressFromUint64(v uint64) Address {
	return AddressFromUint256(uint256.NewInt(v))
}

// AddressFromUint256 truncates v to 128 bits.
func AddressFromUint256(v *uint256.Int) Address {
	var a Address
	for i := 0; i < 2; i++ {
		limb := v[i]
		for j := 0; j < 8; j++ {
			a[i*8+j] = byte(limb >> (8 * j))
		}
	}
	return a
}

// Uint256 widens the address for arithmetic.
func (a Address) Uint256() *uint256.Int {
	var v uint256.Int
	for i := 0; i < 2; i++ {
		var limb uint64
		for j := 7; j >= 0; j-- {
			limb = limb<<8 | uint64(a[i*8+j])
		}
		v[i] = limb
	}
	return &v
}

// SystemAddressAllocator returns the address allocator contract of a shard.
// Allocators sit at (shard+1) << 64 so that shard 0 also gets a non-null allocator.
func SystemAddressAllocator(shard ShardIndex) Address {
	v := uint256.NewInt(uint64(shard) + 1)
	return AddressFromUint256(v.Lsh(v, 64))
}

func (a Address) IsNull() bool { return a == NullAddress }

// Compare orders addresses by numeric value.
func (a Address) Compare(b Address) int {
	for i := len(a) - 1; i >= 0; i-- {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}

// Bytes returns a copy of the little-endian representation.
func (a Address) Bytes() []byte { return bytes.Clone(a[:]) }

func (a Address) String() string { return a.Uint256().Dec() }

// ParseAddress parses the decimal form produced by String.
func ParseAddress(s string) (Address, error) {
	v, err := uint256.FromDecimal(s)
	if err != nil {
		return NullAddress, fmt.Errorf("invalid address %q: %w", s, err)
	}
	if v.BitLen() > 128 {
		return NullAddress, fmt.Errorf("invalid address %q: exceeds 128 bits", s)
	}
	return AddressFromUint256(v), nil
}

// AddressFromBytes fails unless b is exactly 16 bytes.
func AddressFromBytes(b []byte) (Address, error) {
	var a Address
	if len(b) != len(a) {
		return a, fmt.Errorf("invalid address length %d", len(b))
	}
	copy(a[:], b)
	return a, nil
}

// Balance is a 128-bit little-endian token amount.
type Balance [16]byte

var balanceMetadata = []byte{byte(iotype.KindBalance)}

func (Balance) IoTypeMetadata() []byte { return balanceMetadata }

func (b Balance) String() string { return Address(b).String() }
