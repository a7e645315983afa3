package executor

import (
	"log/slog"

	"github.com/govm-net/nativevm/alignedbuf"
	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/env"
	"github.com/govm-net/nativevm/iotype"
	"github.com/govm-net/nativevm/metadata"
	"github.com/govm-net/nativevm/security"
	"github.com/govm-net/nativevm/slots"
	"github.com/govm-net/nativevm/system"
)

// callContext dispatches calls made from one scope of a transaction.
type callContext struct {
	exec             *NativeExecutor
	scope            *slots.Nested
	allowEnvMutation bool
	monitor          *security.ResourceMonitor
}

// writeBack is a read-write buffer whose size is applied after the method returns.
type writeBack struct {
	index          slots.Index
	size           *uint32
	mustBeNotEmpty bool
}

func (c *callContext) child(scope *slots.Nested, allowEnvMutation bool) *callContext {
	return &callContext{exec: c.exec, scope: scope, allowEnvMutation: allowEnvMutation, monitor: c.monitor}
}

func (c *callContext) log() *slog.Logger { return c.exec.logger }

// Call implements env.ExecutorContext.
func (c *callContext) Call(prev env.EnvState, m *env.PreparedMethod) error {
	if err := c.monitor.Tracer.BeginCall(prev.OwnAddress, m.Contract, m.Fingerprint); err != nil {
		c.log().Warn("call rejected", "contract", m.Contract, "method", m.Fingerprint, "error", err)
		return core.ErrForbidden
	}
	defer c.monitor.Tracer.EndCall()

	args := m.Args
	if args == nil {
		args = &env.ExternalArgs{}
	}
	cost := uint64(security.CallGas)
	for _, in := range args.Inputs {
		cost += security.ByteGas * uint64(len(in))
	}
	if err := c.monitor.Gas.Consume(cost); err != nil {
		c.log().Warn("call rejected", "contract", m.Contract, "method", m.Fingerprint, "error", err)
		return core.ErrForbidden
	}

	buf, ok := c.scope.GetCode(m.Contract)
	code := string(buf.Bytes())
	buf.Release()
	if !ok || code == "" {
		c.log().Debug("contract code not found", "contract", m.Contract)
		return core.ErrNotFound
	}
	details, ok := c.exec.methods[methodKey{code: code, fingerprint: m.Fingerprint}]
	if !ok {
		c.log().Error("method not implemented", "contract", m.Contract, "code", code, "method", m.Fingerprint)
		return core.ErrNotImplemented
	}

	state := prev.Derive(m.Contract, m.MethodContext)
	allocates := m.Contract == core.SystemAddressAllocator(c.exec.shard) && m.Fingerprint == system.AllocateAddressFingerprint
	return c.invoke(state, details, args, allocates)
}

// invoke marshals the arguments of one method, runs it and commits or discards its scope.
func (c *callContext) invoke(state env.EnvState, details *methodDetails, args *env.ExternalArgs, allocates bool) error {
	contract := state.OwnAddress
	log := c.log().With("contract", contract, "method", details.name)

	hasSelf := 0
	if details.kind.HasSelf() {
		hasSelf = 1
	}
	if len(details.args)+hasSelf > c.exec.config.MaxTotalMethodArgs {
		log.Warn("too many method arguments", "arguments", len(details.args)+hasSelf)
		return core.ErrBadInput
	}

	view := details.kind.IsView()
	if !view && !c.allowEnvMutation {
		log.Warn("mutating call from a read-only environment", "kind", details.kind)
		return core.ErrForbidden
	}
	scope, ok := c.scope.NewNested(view)
	if !ok {
		log.Error("failed to open nested slots")
		return core.ErrInternalError
	}

	b := &marshaller{
		c:         c,
		scope:     scope,
		details:   details,
		args:      args,
		contract:  contract,
		view:      view,
		allocates: allocates,
		log:       log,
		internal:  &env.InternalArgs{},
	}
	defer b.release()
	if err := b.marshal(state); err != nil {
		scope.Discard()
		return err
	}

	if err := details.fn(b.internal).Err(); err != nil {
		log.Debug("method failed", "error", err)
		scope.Discard()
		return err
	}
	if err := b.finish(); err != nil {
		scope.Discard()
		return err
	}
	scope.Commit()
	return nil
}

type marshaller struct {
	c         *callContext
	scope     *slots.Nested
	details   *methodDetails
	args      *env.ExternalArgs
	contract  core.Address
	view      bool
	// allocates marks a call to the shard's allocator, whose return value is registered as
	// a new contract.
	allocates bool
	log       *slog.Logger

	internal   *env.InternalArgs
	writeBacks []writeBack
	// held are the read-only slots viewed by the method.
	held       []alignedbuf.Shared
	newAddress *env.OutputArg

	slotIndex, inputIndex, outputIndex int
}

func (b *marshaller) stateKey() slots.Key {
	return slots.Key{Owner: b.contract, Contract: core.SystemState}
}

func (b *marshaller) stateCapacity() uint32 {
	if b.details.stateCapacity == 0 {
		return b.c.exec.config.RecommendedStateCapacity
	}
	return b.details.stateCapacity
}

func readOnlyView(buf alignedbuf.Shared) *iotype.VariableBytes {
	size := buf.Len()
	v, _ := iotype.NewVariableBytes(buf.Bytes(), &size)
	return v
}

// writable wraps the result of UseRw and schedules its size to be applied.
func (b *marshaller) writable(index slots.Index, owned *alignedbuf.Owned, mustBeNotEmpty bool) *iotype.VariableBytes {
	size := owned.Len()
	v, _ := iotype.NewVariableBytes(owned.CapacityBytes(), &size)
	b.writeBacks = append(b.writeBacks, writeBack{index: index, size: &size, mustBeNotEmpty: mustBeNotEmpty})
	return v
}

func (b *marshaller) useRo(key slots.Key) (*iotype.VariableBytes, error) {
	buf, ok := b.scope.UseRo(key)
	if !ok {
		b.log.Debug("slot is not readable", "owner", key.Owner, "slot_contract", key.Contract)
		return nil, core.ErrForbidden
	}
	b.held = append(b.held, buf)
	return readOnlyView(buf), nil
}

func (b *marshaller) release() {
	for _, buf := range b.held {
		buf.Release()
	}
	b.held = nil
}

func (b *marshaller) useRw(key slots.Key, capacity uint32) (slots.Index, *alignedbuf.Owned, error) {
	if b.view {
		return 0, nil, core.ErrForbidden
	}
	index, owned, ok := b.scope.UseRw(key, capacity)
	if !ok {
		b.log.Debug("slot is not writable", "owner", key.Owner, "slot_contract", key.Contract)
		return 0, nil, core.ErrForbidden
	}
	return index, owned, nil
}

func (b *marshaller) marshalState() error {
	switch b.details.kind {
	case metadata.KindUpdateStatefulRo, metadata.KindViewStateful:
		st, err := b.useRo(b.stateKey())
		if err != nil {
			return err
		}
		if st.Size() == 0 {
			b.log.Warn("contract has no state")
			return core.ErrForbidden
		}
		b.internal.State = st
	case metadata.KindUpdateStatefulRw:
		index, owned, err := b.useRw(b.stateKey(), b.stateCapacity())
		if err != nil {
			return err
		}
		if owned.IsEmpty() {
			b.log.Warn("contract has no state")
			return core.ErrForbidden
		}
		b.internal.State = b.writable(index, owned, false)
		b.internal.StateWritable = true
	}
	return nil
}

func (b *marshaller) nextSlot() (core.Address, error) {
	if b.slotIndex >= len(b.args.Slots) {
		b.log.Debug("missing slot argument", "index", b.slotIndex)
		return core.NullAddress, core.ErrBadInput
	}
	address := b.args.Slots[b.slotIndex]
	b.slotIndex++
	return address, nil
}

func (b *marshaller) nextOutput() (*env.OutputArg, error) {
	if b.outputIndex >= len(b.args.Outputs) || b.args.Outputs[b.outputIndex] == nil {
		b.log.Debug("missing output argument", "index", b.outputIndex)
		return nil, core.ErrBadInput
	}
	out := b.args.Outputs[b.outputIndex]
	b.outputIndex++
	out.Size = 0
	return out, nil
}

func (b *marshaller) marshal(state env.EnvState) error {
	if err := b.marshalState(); err != nil {
		return err
	}

	envArg, envWritable := false, false
	last := len(b.details.args) - 1
	for i, arg := range b.details.args {
		switch arg.Kind {
		case metadata.KindEnvRo:
			envArg = true
		case metadata.KindEnvRw:
			if b.view {
				return core.ErrForbidden
			}
			envArg, envWritable = true, true
		case metadata.KindTmpRo:
			if b.view {
				return core.ErrForbidden
			}
			key := slots.Key{Owner: b.contract, Contract: core.NullAddress}
			data, err := b.useRo(key)
			if err != nil {
				return err
			}
			b.internal.Tmp = &env.SlotArg{Owner: b.contract, Data: data}
		case metadata.KindTmpRw:
			key := slots.Key{Owner: b.contract, Contract: core.NullAddress}
			index, owned, err := b.useRw(key, b.details.tmpCapacity)
			if err != nil {
				return err
			}
			b.internal.Tmp = &env.SlotArg{Owner: b.contract, Data: b.writable(index, owned, false), Writable: true}
		case metadata.KindSlotRo:
			owner, err := b.nextSlot()
			if err != nil {
				return err
			}
			data, err := b.useRo(slots.Key{Owner: owner, Contract: b.contract})
			if err != nil {
				return err
			}
			b.internal.Slots = append(b.internal.Slots, env.SlotArg{Owner: owner, Data: data})
		case metadata.KindSlotRw:
			owner, err := b.nextSlot()
			if err != nil {
				return err
			}
			index, owned, err := b.useRw(slots.Key{Owner: owner, Contract: b.contract}, b.details.slotCapacity)
			if err != nil {
				return err
			}
			b.internal.Slots = append(b.internal.Slots, env.SlotArg{Owner: owner, Data: b.writable(index, owned, false), Writable: true})
		case metadata.KindInput:
			if b.inputIndex >= len(b.args.Inputs) {
				b.log.Debug("missing input argument", "index", b.inputIndex)
				return core.ErrBadInput
			}
			b.internal.Inputs = append(b.internal.Inputs, b.args.Inputs[b.inputIndex])
			b.inputIndex++
		case metadata.KindOutput, metadata.KindReturn:
			if i == last && b.details.kind == metadata.KindInit {
				if err := b.marshalInitResult(); err != nil {
					return err
				}
				continue
			}
			out, err := b.nextOutput()
			if err != nil {
				return err
			}
			v, ok := iotype.NewVariableBytes(out.Buffer, &out.Size)
			if !ok {
				return core.ErrBadInput
			}
			if i == last && b.allocates {
				b.newAddress = out
			}
			b.internal.Outputs = append(b.internal.Outputs, v)
		}
	}

	if b.slotIndex != len(b.args.Slots) || b.inputIndex != len(b.args.Inputs) || b.outputIndex != len(b.args.Outputs) {
		b.log.Debug("unexpected extra arguments",
			"slots", len(b.args.Slots), "inputs", len(b.args.Inputs), "outputs", len(b.args.Outputs))
		return core.ErrBadInput
	}

	if envArg {
		b.internal.Env = env.New(state, b.c.child(b.scope, envWritable))
		b.internal.EnvWritable = envWritable
	}
	return nil
}

// marshalInitResult hands the init method an empty state to write.
func (b *marshaller) marshalInitResult() error {
	index, owned, err := b.useRw(b.stateKey(), b.stateCapacity())
	if err != nil {
		return err
	}
	if !owned.IsEmpty() {
		b.log.Debug("contract is already initialized")
		return core.ErrForbidden
	}
	b.internal.State = b.writable(index, owned, true)
	b.internal.StateWritable = true
	return nil
}

// finish applies the sizes written by the method and registers allocated contracts.
func (b *marshaller) finish() error {
	if b.newAddress != nil {
		address, ok := env.ReadOutput[core.Address](b.newAddress)
		if !ok {
			return core.ErrBadOutput
		}
		if !b.scope.AddNewContract(address) {
			b.log.Error("allocated address is already in use", "address", address)
			return core.ErrInternalError
		}
	}

	for _, wb := range b.writeBacks {
		if wb.mustBeNotEmpty && *wb.size == 0 {
			b.log.Debug("init did not write a state")
			return core.ErrBadOutput
		}
		owned, ok := b.scope.AccessUsedRw(wb.index)
		if !ok {
			b.log.Error("write back slot is gone", "index", wb.index)
			return core.ErrInternalError
		}
		if *wb.size > owned.Capacity() {
			return core.ErrBadOutput
		}
		owned.SetLen(*wb.size)
	}
	return nil
}
