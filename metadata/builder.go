package metadata

import "fmt"

type argument struct {
	kind Kind
	name string
	typ  []byte
}

// MethodBuilder composes the metadata of one method.
type MethodBuilder struct {
	kind Kind
	name string
	args []argument
}

// NewMethod starts a method of the given kind. It panics if kind is not a method kind.
func NewMethod(kind Kind, name string) *MethodBuilder {
	if !kind.IsMethod() {
		panic(fmt.Sprintf("metadata: %s is not a method kind", kind))
	}
	return &MethodBuilder{kind: kind, name: name}
}

func (b *MethodBuilder) add(kind Kind, name string, typ []byte) *MethodBuilder {
	b.args = append(b.args, argument{kind: kind, name: name, typ: typ})
	return b
}

// Env adds the environment handle.
func (b *MethodBuilder) Env(rw bool) *MethodBuilder {
	if rw {
		return b.add(KindEnvRw, "env", nil)
	}
	return b.add(KindEnvRo, "env", nil)
}

// Tmp adds the contract's scratch space.
func (b *MethodBuilder) Tmp(name string, rw bool) *MethodBuilder {
	if rw {
		return b.add(KindTmpRw, name, nil)
	}
	return b.add(KindTmpRo, name, nil)
}

// Slot adds a storage slot owned by an address supplied by the caller.
func (b *MethodBuilder) Slot(name string, rw bool) *MethodBuilder {
	if rw {
		return b.add(KindSlotRw, name, nil)
	}
	return b.add(KindSlotRo, name, nil)
}

func (b *MethodBuilder) Input(name string, typ []byte) *MethodBuilder {
	return b.add(KindInput, name, typ)
}

func (b *MethodBuilder) Output(name string, typ []byte) *MethodBuilder {
	return b.add(KindOutput, name, typ)
}

// Return adds the return value. It must be the last argument.
func (b *MethodBuilder) Return(typ []byte) *MethodBuilder {
	return b.add(KindReturn, "", typ)
}

// InitResult adds the final output of an init method, the new contract state. It has no type.
func (b *MethodBuilder) InitResult() *MethodBuilder {
	return b.add(KindOutput, "", nil)
}

// Metadata encodes the method.
func (b *MethodBuilder) Metadata() []byte {
	if len(b.args) > 255 {
		panic(fmt.Sprintf("metadata: method %q has too many arguments", b.name))
	}
	out := appendName([]byte{byte(b.kind)}, b.name)
	out = append(out, byte(len(b.args)))
	for _, a := range b.args {
		out = appendName(append(out, byte(a.kind)), a.name)
		out = append(out, a.typ...)
	}
	return out
}

// ContractBuilder composes the main metadata of a contract from its types and methods.
type ContractBuilder struct {
	state, slot, tmp []byte
	methods          [][]byte
}

// NewContract takes the type-shape metadata of the state, slot and tmp types.
func NewContract(state, slot, tmp []byte) *ContractBuilder {
	return &ContractBuilder{state: state, slot: slot, tmp: tmp}
}

// Method appends an encoded method.
func (c *ContractBuilder) Method(method []byte) *ContractBuilder {
	c.methods = append(c.methods, method)
	return c
}

func (c *ContractBuilder) Metadata() []byte {
	out := []byte{byte(KindContract)}
	out = append(out, c.state...)
	out = append(out, c.slot...)
	out = append(out, c.tmp...)
	return appendMethodList(out, c.methods)
}

// TraitBuilder composes the metadata of a trait.
type TraitBuilder struct {
	name    string
	methods [][]byte
}

func NewTrait(name string) *TraitBuilder {
	return &TraitBuilder{name: name}
}

func (t *TraitBuilder) Method(method []byte) *TraitBuilder {
	t.methods = append(t.methods, method)
	return t
}

func (t *TraitBuilder) Metadata() []byte {
	return appendMethodList(appendName([]byte{byte(KindTrait)}, t.name), t.methods)
}

func appendMethodList(out []byte, methods [][]byte) []byte {
	if len(methods) > 255 {
		panic("metadata: too many methods")
	}
	out = append(out, byte(len(methods)))
	for _, m := range methods {
		out = append(out, m...)
	}
	return out
}

func appendName(dst []byte, name string) []byte {
	if len(name) > 255 {
		panic(fmt.Sprintf("metadata: name %q is longer than 255 bytes", name))
	}
	return append(append(dst, byte(len(name))), name...)
}
