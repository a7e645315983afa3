package metadata

import (
	"errors"
	"fmt"
	"io"

	"github.com/govm-net/nativevm/iotype"
)

// DecodingErrorKind classifies a DecodingError.
type DecodingErrorKind uint8

const (
	NotEnoughMetadata DecodingErrorKind = iota + 1
	InvalidFirstMetadataByte
	MultipleContractsFound
	ExpectedContractOrTrait
	InvalidStateIoType
	UnexpectedMethodKind
	ExpectedMethodKind
	ExpectedArgumentKind
	UnexpectedArgumentKind
	InvalidArgumentIoType
	TrailingMetadata
)

var decodingErrorNames = map[DecodingErrorKind]string{
	NotEnoughMetadata:        "not enough metadata to decode",
	InvalidFirstMetadataByte: "invalid first metadata byte",
	MultipleContractsFound:   "multiple contracts found",
	ExpectedContractOrTrait:  "expected contract or trait kind",
	InvalidStateIoType:       "invalid state I/O type",
	UnexpectedMethodKind:     "unexpected method kind",
	ExpectedMethodKind:       "expected method kind",
	ExpectedArgumentKind:     "expected argument kind",
	UnexpectedArgumentKind:   "unexpected argument kind",
	InvalidArgumentIoType:    "invalid argument I/O type",
	TrailingMetadata:         "trailing metadata after method",
}

// DecodingError reports where metadata decoding failed.
type DecodingError struct {
	Kind DecodingErrorKind
	// Offset is the byte offset of the failure in the decoded blob.
	Offset int
	// Byte is the offending tag byte, if any.
	Byte byte
	// Found is the metadata kind that was found where something else was expected.
	Found Kind
	// Context is the method kind or container the item appeared in.
	Context string
	// ArgumentName is set for InvalidArgumentIoType.
	ArgumentName string
}

func (e *DecodingError) Error() string {
	msg := fmt.Sprintf("metadata decoding failed at offset %d: %s", e.Offset, decodingErrorNames[e.Kind])
	switch e.Kind {
	case InvalidFirstMetadataByte:
		msg += fmt.Sprintf(" 0x%02x", e.Byte)
	case ExpectedContractOrTrait, ExpectedMethodKind, ExpectedArgumentKind:
		msg += fmt.Sprintf(", found %s", e.Found)
	case UnexpectedMethodKind, UnexpectedArgumentKind:
		msg += fmt.Sprintf(" %s in %s", e.Found, e.Context)
	case InvalidArgumentIoType:
		msg += fmt.Sprintf(" of %s %q", e.Found, e.ArgumentName)
	}
	return msg
}

// Is matches on Kind, so errors.Is(err, ErrNotEnoughMetadata) works for any offset.
func (e *DecodingError) Is(target error) bool {
	var t *DecodingError
	if !errors.As(target, &t) {
		return false
	}
	return t.Kind == e.Kind
}

var (
	ErrNotEnoughMetadata      = &DecodingError{Kind: NotEnoughMetadata}
	ErrMultipleContractsFound = &DecodingError{Kind: MultipleContractsFound}
	ErrUnexpectedMethodKind   = &DecodingError{Kind: UnexpectedMethodKind}
	ErrUnexpectedArgumentKind = &DecodingError{Kind: UnexpectedArgumentKind}
)

// cursor is shared by nested decoders so they all advance the same position.
type cursor struct {
	data []byte
	off  int
}

func (c *cursor) rest() []byte { return c.data[c.off:] }

func (c *cursor) fail(kind DecodingErrorKind) *DecodingError {
	e := &DecodingError{Kind: kind, Offset: c.off}
	if c.off < len(c.data) {
		e.Byte = c.data[c.off]
	}
	return e
}

func (c *cursor) readByte() (byte, error) {
	if c.off >= len(c.data) {
		return 0, c.fail(NotEnoughMetadata)
	}
	b := c.data[c.off]
	c.off++
	return b, nil
}

func (c *cursor) readName() (string, error) {
	n, err := c.readByte()
	if err != nil {
		return "", err
	}
	if len(c.rest()) < int(n) {
		return "", c.fail(NotEnoughMetadata)
	}
	name := string(c.data[c.off : c.off+int(n)])
	c.off += int(n)
	return name, nil
}

func (c *cursor) readKind() (Kind, error) {
	if c.off >= len(c.data) {
		return 0, c.fail(NotEnoughMetadata)
	}
	kind, ok := KindFromByte(c.data[c.off])
	if !ok {
		return 0, c.fail(InvalidFirstMetadataByte)
	}
	c.off++
	return kind, nil
}

func (c *cursor) typeDetails() (iotype.TypeDetails, bool) {
	details, rest, ok := iotype.DecodeTypeDetails(c.rest())
	if !ok {
		return details, false
	}
	c.off = len(c.data) - len(rest)
	return details, true
}

// Item is a decoded Contract or Trait. Methods must be drained before decoding the next item.
type Item struct {
	Kind Kind
	// Name is the state type name of a contract or the trait name.
	Name         string
	StateDetails iotype.TypeDetails
	SlotDetails  iotype.TypeDetails
	TmpDetails   iotype.TypeDetails
	NumMethods   uint8
	Methods      *MethodsDecoder
}

// Decoder walks the items of a contract metadata blob.
type Decoder struct {
	c             cursor
	foundContract bool
}

func NewDecoder(metadata []byte) *Decoder {
	return &Decoder{c: cursor{data: metadata}}
}

// Remaining returns the number of bytes not yet decoded.
func (d *Decoder) Remaining() int { return len(d.c.rest()) }

// DecodeNext returns the next item, or io.EOF when the metadata is exhausted.
func (d *Decoder) DecodeNext() (*Item, error) {
	if d.Remaining() == 0 {
		return nil, io.EOF
	}
	start := d.c.off
	kind, err := d.c.readKind()
	if err != nil {
		return nil, err
	}

	switch kind {
	case KindContract:
		if d.foundContract {
			e := d.c.fail(MultipleContractsFound)
			e.Offset = start
			return nil, e
		}
		d.foundContract = true
		return d.decodeContract()
	case KindTrait:
		return d.decodeTrait()
	}
	e := d.c.fail(ExpectedContractOrTrait)
	e.Offset, e.Found = start, kind
	return nil, e
}

func (d *Decoder) decodeContract() (*Item, error) {
	item := &Item{Kind: KindContract}
	item.Name, _ = iotype.TypeName(d.c.rest())
	for _, details := range []*iotype.TypeDetails{&item.StateDetails, &item.SlotDetails, &item.TmpDetails} {
		var ok bool
		if *details, ok = d.c.typeDetails(); !ok {
			return nil, d.c.fail(InvalidStateIoType)
		}
	}
	n, err := d.c.readByte()
	if err != nil {
		return nil, err
	}
	item.NumMethods = n
	item.Methods = &MethodsDecoder{c: &d.c, container: ContainerContract, remaining: n}
	return item, nil
}

func (d *Decoder) decodeTrait() (*Item, error) {
	name, err := d.c.readName()
	if err != nil {
		return nil, err
	}
	n, err := d.c.readByte()
	if err != nil {
		return nil, err
	}
	return &Item{
		Kind:       KindTrait,
		Name:       name,
		NumMethods: n,
		Methods:    &MethodsDecoder{c: &d.c, container: ContainerTrait, remaining: n},
	}, nil
}

// MethodsDecoder yields the methods of an item.
type MethodsDecoder struct {
	c         *cursor
	container ContainerKind
	remaining uint8
}

func (m *MethodsDecoder) Remaining() uint8 { return m.remaining }

// Method is a decoded method header. Arguments must be drained before the next method.
type Method struct {
	Kind         Kind
	Name         string
	NumArguments uint8
	Arguments    *ArgumentsDecoder
	c            *cursor
	start        int
}

// Raw returns the method's own metadata blob. It is only complete once Arguments is drained.
func (m *Method) Raw() []byte { return m.c.data[m.start:m.c.off] }

// DecodeNext returns the next method, or io.EOF when all methods were returned.
func (m *MethodsDecoder) DecodeNext() (*Method, error) {
	if m.remaining == 0 {
		return nil, io.EOF
	}
	m.remaining--
	return decodeMethod(m.c, m.container)
}

func decodeMethod(c *cursor, container ContainerKind) (*Method, error) {
	start := c.off
	kind, err := c.readKind()
	if err != nil {
		return nil, err
	}
	if !kind.IsMethod() {
		e := c.fail(ExpectedMethodKind)
		e.Offset, e.Found = start, kind
		return nil, e
	}
	if container == ContainerTrait && !kind.allowedInTrait() {
		e := c.fail(UnexpectedMethodKind)
		e.Offset, e.Found, e.Context = start, kind, container.String()
		return nil, e
	}
	name, err := c.readName()
	if err != nil {
		return nil, err
	}
	n, err := c.readByte()
	if err != nil {
		return nil, err
	}
	return &Method{
		Kind:         kind,
		Name:         name,
		NumArguments: n,
		Arguments:    &ArgumentsDecoder{c: c, method: kind, remaining: n},
		c:            c,
		start:        start,
	}, nil
}

// Argument is a decoded argument. TypeDetails is nil for arguments without a type shape.
type Argument struct {
	Kind        Kind
	Name        string
	TypeDetails *iotype.TypeDetails
}

// ArgumentsDecoder yields the arguments of a method.
type ArgumentsDecoder struct {
	c         *cursor
	method    Kind
	remaining uint8
}

func (a *ArgumentsDecoder) Remaining() uint8 { return a.remaining }

// DecodeNext returns the next argument, or io.EOF when all arguments were returned.
func (a *ArgumentsDecoder) DecodeNext() (*Argument, error) {
	if a.remaining == 0 {
		return nil, io.EOF
	}
	a.remaining--
	last := a.remaining == 0

	start := a.c.off
	kind, err := a.c.readKind()
	if err != nil {
		return nil, err
	}
	if !kind.IsArgument() {
		e := a.c.fail(ExpectedArgumentKind)
		e.Offset, e.Found = start, kind
		return nil, e
	}
	if (a.method.IsView() && !kind.allowedInView()) || (kind == KindReturn && !last) {
		e := a.c.fail(UnexpectedArgumentKind)
		e.Offset, e.Found, e.Context = start, kind, a.method.String()
		return nil, e
	}
	name, err := a.c.readName()
	if err != nil {
		return nil, err
	}
	arg := &Argument{Kind: kind, Name: name}
	if !kind.hasType() || (a.method == KindInit && last && kind != KindInput) {
		return arg, nil
	}
	details, ok := a.c.typeDetails()
	if !ok {
		e := a.c.fail(InvalidArgumentIoType)
		e.Found, e.ArgumentName = kind, name
		return nil, e
	}
	arg.TypeDetails = &details
	return arg, nil
}

// Collect drains the decoder.
func (a *ArgumentsDecoder) Collect() ([]*Argument, error) {
	args := make([]*Argument, 0, a.remaining)
	for {
		arg, err := a.DecodeNext()
		if errors.Is(err, io.EOF) {
			return args, nil
		}
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
	}
}

// DecodeMethod decodes a standalone method metadata blob, which must be consumed exactly.
func DecodeMethod(metadata []byte) (*Method, []*Argument, error) {
	c := &cursor{data: metadata}
	method, err := decodeMethod(c, ContainerUnknown)
	if err != nil {
		return nil, nil, err
	}
	args, err := method.Arguments.Collect()
	if err != nil {
		return nil, nil, err
	}
	if len(c.rest()) != 0 {
		return nil, nil, c.fail(TrailingMetadata)
	}
	return method, args, nil
}

// SkipMethods drains the methods of an item without decoding their arguments in detail.
func (m *MethodsDecoder) SkipMethods() error {
	for {
		method, err := m.DecodeNext()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := method.Arguments.Collect(); err != nil {
			return err
		}
	}
}
