package metadata

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/govm-net/nativevm/iotype"
)

func counterMethods() [][]byte {
	return [][]byte{
		NewMethod(KindInit, "new").
			Env(false).
			Input("initial", iotype.Metadata[iotype.U64]()).
			InitResult().
			Metadata(),
		NewMethod(KindUpdateStatefulRw, "increment").
			Env(true).
			Tmp("scratch", true).
			Slot("balance", true).
			Input("amount", iotype.Metadata[iotype.U32]()).
			Return(iotype.Metadata[iotype.U64]()).
			Metadata(),
		NewMethod(KindViewStateful, "get").
			Env(false).
			Return(iotype.Metadata[iotype.U64]()).
			Metadata(),
	}
}

func counterContract() []byte {
	c := NewContract(
		iotype.StructMetadata("Counter", iotype.Field{Name: "value", Metadata: iotype.Metadata[iotype.U64]()}),
		iotype.VariableBytesMetadata(512),
		iotype.Metadata[iotype.Unit](),
	)
	for _, m := range counterMethods() {
		c.Method(m)
	}
	return c.Metadata()
}

type decodedMethod struct {
	method *Method
	args   []*Argument
}

func decodeAll(t *testing.T, blob []byte) (*Item, []decodedMethod) {
	t.Helper()
	d := NewDecoder(blob)
	item, err := d.DecodeNext()
	require.NoError(t, err)

	var methods []decodedMethod
	for {
		m, err := item.Methods.DecodeNext()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		args, err := m.Arguments.Collect()
		require.NoError(t, err)
		methods = append(methods, decodedMethod{method: m, args: args})
	}
	_, err = d.DecodeNext()
	require.ErrorIs(t, err, io.EOF)
	return item, methods
}

func TestCompactRoundTrip(t *testing.T) {
	blob := counterContract()
	for _, external := range []bool{false, true} {
		compact, ok := Compact(blob, external)
		require.True(t, ok)
		assert.LessOrEqual(t, len(compact), len(blob))

		again, ok := Compact(compact, external)
		require.True(t, ok)
		assert.Equal(t, compact, again, "compaction is a fixed point")
	}
}

func TestCompactExternalDropsEnvAndTmp(t *testing.T) {
	blob := counterContract()
	internal, ok := Compact(blob, false)
	require.True(t, ok)
	external, ok := Compact(blob, true)
	require.True(t, ok)

	_, internalMethods := decodeAll(t, internal)
	_, externalMethods := decodeAll(t, external)
	require.Len(t, internalMethods, 3)
	require.Len(t, externalMethods, 3)

	for i := range internalMethods {
		in, ex := internalMethods[i], externalMethods[i]
		removed := 0
		for _, arg := range in.args {
			switch arg.Kind {
			case KindEnvRo, KindEnvRw, KindTmpRo, KindTmpRw:
				removed++
			}
		}
		assert.Equal(t, len(in.args)-removed, len(ex.args), in.method.Name)
		assert.Less(t, len(ex.args), len(in.args), in.method.Name)
		for _, arg := range ex.args {
			assert.NotContains(t, []Kind{KindEnvRo, KindEnvRw, KindTmpRo, KindTmpRw, KindSlotRw}, arg.Kind)
			assert.Empty(t, arg.Name)
		}
	}

	assert.Equal(t, KindInit, externalMethods[0].method.Kind)
	assert.Equal(t, KindUpdateStateless, externalMethods[1].method.Kind)
	assert.Equal(t, KindViewStateless, externalMethods[2].method.Kind)
	assert.Equal(t, "increment", externalMethods[1].method.Name, "method names are kept")
	assert.Equal(t, KindSlotRo, externalMethods[1].args[0].Kind)

	assert.Equal(t, KindUpdateStatefulRw, internalMethods[1].method.Kind)
	assert.Equal(t, KindSlotRw, internalMethods[1].args[2].Kind)
}

func TestCompactInitResultHasNoType(t *testing.T) {
	method := counterMethods()[0]
	compact, ok := Compact(method, false)
	require.True(t, ok)
	// Init, name "new", 3 args, EnvRo+name, Input+name+u64, Output+name.
	expected := []byte{byte(KindInit), 3, 'n', 'e', 'w', 3,
		byte(KindEnvRo), 0,
		byte(KindInput), 0, byte(iotype.KindU64),
		byte(KindOutput), 0,
	}
	assert.Equal(t, expected, compact)

	m, args, err := DecodeMethod(compact)
	require.NoError(t, err)
	assert.Equal(t, KindInit, m.Kind)
	require.Len(t, args, 3)
	assert.Nil(t, args[2].TypeDetails)
	require.NotNil(t, args[1].TypeDetails)
	assert.Equal(t, uint32(8), args[1].TypeDetails.RecommendedCapacity)
}

func TestCompactRejectsMalformed(t *testing.T) {
	blob := counterContract()
	tests := []struct {
		name string
		blob []byte
	}{
		{"empty", nil},
		{"truncated", blob[:len(blob)-1]},
		{"leftover", append(append([]byte{}, blob...), 0)},
		{"unknown tag", []byte{42}},
		{"starts with argument", []byte{byte(KindInput), 0, byte(iotype.KindU8)}},
		{"method argument is a method", []byte{byte(KindUpdateStateless), 1, 'f', 1, byte(KindInit)}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ok := Compact(tt.blob, true)
			assert.False(t, ok)
			assert.Nil(t, out)
		})
	}
}

func TestTraitCompaction(t *testing.T) {
	trait := NewTrait("Fungible").
		Method(NewMethod(KindUpdateStateless, "transfer").Env(true).Slot("from", true).Input("amount", iotype.Metadata[iotype.U64]()).Metadata()).
		Metadata()
	compact, ok := Compact(trait, true)
	require.True(t, ok)

	item, methods := decodeAll(t, compact)
	assert.Equal(t, KindTrait, item.Kind)
	assert.Empty(t, item.Name)
	require.Len(t, methods, 1)
	assert.Len(t, methods[0].args, 2)
}

func TestDecoderContract(t *testing.T) {
	item, methods := decodeAll(t, counterContract())
	assert.Equal(t, KindContract, item.Kind)
	assert.Equal(t, "Counter", item.Name)
	assert.Equal(t, iotype.TypeDetails{RecommendedCapacity: 8, Alignment: 8}, item.StateDetails)
	assert.Equal(t, iotype.TypeDetails{RecommendedCapacity: 512, Alignment: 1}, item.SlotDetails)
	assert.Equal(t, iotype.TypeDetails{RecommendedCapacity: 0, Alignment: 1}, item.TmpDetails)
	assert.Equal(t, uint8(3), item.NumMethods)

	for i, m := range counterMethods() {
		assert.Equal(t, m, methods[i].method.Raw())
	}
	assert.Equal(t, "env", methods[1].args[0].Name)
	assert.Equal(t, "balance", methods[1].args[2].Name)
}

func TestDecoderErrors(t *testing.T) {
	contract := counterContract()
	tests := []struct {
		name string
		blob []byte
		want DecodingErrorKind
	}{
		{"invalid first byte", []byte{99}, InvalidFirstMetadataByte},
		{"method first", counterMethods()[0], ExpectedContractOrTrait},
		{"multiple contracts", append(append([]byte{}, contract...), contract...), MultipleContractsFound},
		{"bad state type", []byte{byte(KindContract), 200}, InvalidStateIoType},
		{"no method count", []byte{byte(KindContract), 0, 0, 0}, NotEnoughMetadata},
		{
			"stateful trait method",
			NewTrait("T").Method(NewMethod(KindUpdateStatefulRw, "f").Metadata()).Metadata(),
			UnexpectedMethodKind,
		},
		{
			"rw slot in view",
			NewContract(iotype.Metadata[iotype.Unit](), iotype.Metadata[iotype.Unit](), iotype.Metadata[iotype.Unit]()).
				Method(NewMethod(KindViewStateless, "v").Slot("s", true).Metadata()).Metadata(),
			UnexpectedArgumentKind,
		},
		{
			"return not last",
			NewContract(iotype.Metadata[iotype.Unit](), iotype.Metadata[iotype.Unit](), iotype.Metadata[iotype.Unit]()).
				Method(NewMethod(KindUpdateStateless, "u").Return(iotype.Metadata[iotype.U8]()).Input("x", iotype.Metadata[iotype.U8]()).Metadata()).Metadata(),
			UnexpectedArgumentKind,
		},
		{
			"bad input type",
			NewContract(iotype.Metadata[iotype.Unit](), iotype.Metadata[iotype.Unit](), iotype.Metadata[iotype.Unit]()).
				Method(NewMethod(KindUpdateStateless, "u").Input("x", []byte{250}).Metadata()).Metadata(),
			InvalidArgumentIoType,
		},
		{
			"argument is a method",
			NewContract(iotype.Metadata[iotype.Unit](), iotype.Metadata[iotype.Unit](), iotype.Metadata[iotype.Unit]()).
				Method([]byte{byte(KindUpdateStateless), 1, 'u', 1, byte(KindInit), 0}).Metadata(),
			ExpectedArgumentKind,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := decodeEverything(tt.blob)
			require.Error(t, err)
			var de *DecodingError
			require.ErrorAs(t, err, &de)
			assert.Equal(t, tt.want, de.Kind, err.Error())
			assert.ErrorIs(t, err, &DecodingError{Kind: tt.want})
		})
	}
}

func decodeEverything(blob []byte) error {
	d := NewDecoder(blob)
	for {
		item, err := d.DecodeNext()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := item.Methods.SkipMethods(); err != nil {
			return err
		}
	}
}

func TestFingerprint(t *testing.T) {
	base := NewMethod(KindUpdateStatefulRo, "pay").
		Env(false).
		Slot("wallet", true).
		Input("amount", iotype.Metadata[iotype.U64]()).
		Metadata()
	renamed := NewMethod(KindUpdateStateless, "pay").
		Slot("account", false).
		Input("value", iotype.Metadata[iotype.U64]()).
		Metadata()
	otherType := NewMethod(KindUpdateStateless, "pay").
		Slot("account", false).
		Input("value", iotype.Metadata[iotype.U32]()).
		Metadata()
	otherName := NewMethod(KindUpdateStateless, "send").
		Slot("account", false).
		Input("value", iotype.Metadata[iotype.U64]()).
		Metadata()

	f1, err := Fingerprint(base)
	require.NoError(t, err)
	f2, err := Fingerprint(renamed)
	require.NoError(t, err)
	assert.Equal(t, f1, f2)
	assert.Len(t, f1.String(), 64)

	assert.NotEqual(t, f1, MustFingerprint(otherType))
	assert.NotEqual(t, f1, MustFingerprint(otherName))

	_, err = Fingerprint(counterContract())
	assert.ErrorIs(t, err, ErrInvalidMethodMetadata)
	_, err = Fingerprint([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidMethodMetadata)
}

func TestDescribe(t *testing.T) {
	out, err := Describe(counterContract())
	require.NoError(t, err)
	assert.Contains(t, out, `Contract "Counter"`)
	assert.Contains(t, out, `Update Stateful Rw "increment" (5 arguments)`)
	assert.Contains(t, out, `Slot Rw "balance"`)
	assert.Contains(t, out, `Input "amount": 4 bytes, align 4`)

	_, err = Describe([]byte{byte(KindContract)})
	assert.Error(t, err)
}
