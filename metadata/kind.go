// Package metadata encodes, compacts and decodes contract ABI metadata.
//
// Contract metadata is a pre-order encoding of a tree: a Contract or Trait item, the state,
// slot and tmp type shapes (contracts only), a method count, and one block per method. Every
// method block carries its kind, a length-prefixed name, an argument count and one block per
// argument.
package metadata

import "fmt"

// Kind is the tag byte of a contract metadata item.
type Kind uint8

const (
	KindContract Kind = iota
	KindTrait
	KindInit
	KindUpdateStateless
	KindUpdateStatefulRo
	KindUpdateStatefulRw
	KindViewStateless
	KindViewStateful
	KindEnvRo
	KindEnvRw
	KindTmpRo
	KindTmpRw
	KindSlotRo
	KindSlotRw
	KindInput
	KindOutput
	KindReturn
)

var kindNames = [...]string{
	KindContract:         "contract",
	KindTrait:            "trait",
	KindInit:             "init",
	KindUpdateStateless:  "update stateless",
	KindUpdateStatefulRo: "update stateful ro",
	KindUpdateStatefulRw: "update stateful rw",
	KindViewStateless:    "view stateless",
	KindViewStateful:     "view stateful",
	KindEnvRo:            "env ro",
	KindEnvRw:            "env rw",
	KindTmpRo:            "tmp ro",
	KindTmpRw:            "tmp rw",
	KindSlotRo:           "slot ro",
	KindSlotRw:           "slot rw",
	KindInput:            "input",
	KindOutput:           "output",
	KindReturn:           "return",
}

// KindFromByte validates a tag byte.
func KindFromByte(b byte) (Kind, bool) {
	if b > byte(KindReturn) {
		return 0, false
	}
	return Kind(b), true
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

func (k Kind) IsMethod() bool { return k >= KindInit && k <= KindViewStateful }

func (k Kind) IsArgument() bool { return k >= KindEnvRo && k <= KindReturn }

// IsView reports view methods, which run read-only.
func (k Kind) IsView() bool { return k == KindViewStateless || k == KindViewStateful }

// HasSelf reports methods that receive the contract state.
func (k Kind) HasSelf() bool {
	return k == KindUpdateStatefulRo || k == KindUpdateStatefulRw || k == KindViewStateful
}

// allowedInTrait reports whether a method kind may appear in a trait.
func (k Kind) allowedInTrait() bool {
	return k == KindUpdateStateless || k == KindViewStateless
}

// allowedInView reports whether an argument kind may appear in a view method.
func (k Kind) allowedInView() bool {
	switch k {
	case KindEnvRo, KindSlotRo, KindInput, KindOutput, KindReturn:
		return true
	}
	return false
}

// hasType reports arguments followed by a type-shape metadata sequence.
func (k Kind) hasType() bool {
	return k == KindInput || k == KindOutput || k == KindReturn
}

// ContainerKind is what holds a list of methods.
type ContainerKind uint8

const (
	ContainerUnknown ContainerKind = iota
	ContainerContract
	ContainerTrait
)

func (c ContainerKind) String() string {
	switch c {
	case ContainerContract:
		return "contract"
	case ContainerTrait:
		return "trait"
	}
	return "unknown"
}
