// Package security 提供执行器的资源限制功能
// Calls are bounded in depth and, optionally, in gas.
package security

import (
	"errors"
	"fmt"

	"github.com/govm-net/nativevm/core"
	"github.com/govm-net/nativevm/metadata"
)

// ErrCallDepthExceeded is returned when a call would nest deeper than allowed.
var ErrCallDepthExceeded = errors.New("call depth exceeded")

// ResourceLimiter 用于限制一次交易的资源使用
type ResourceLimiter struct {
	maxCallDepth int
	maxGas       uint64
}

// ResourceMonitor 监控一次交易的资源使用情况
type ResourceMonitor struct {
	Tracer *CallTracer
	Gas    *GasMeter
}

// NewResourceLimiter 创建资源限制器. A zero maxGas disables metering.
func NewResourceLimiter(maxCallDepth int, maxGas uint64) *ResourceLimiter {
	return &ResourceLimiter{
		maxCallDepth: maxCallDepth,
		maxGas:       maxGas,
	}
}

func (r *ResourceLimiter) MaxCallDepth() int { return r.maxCallDepth }

func (r *ResourceLimiter) MaxGas() uint64 { return r.maxGas }

// StartMonitoring 开始监控资源使用
func (r *ResourceLimiter) StartMonitoring() *ResourceMonitor {
	return &ResourceMonitor{
		Tracer: NewCallTracer(r.maxCallDepth),
		Gas:    NewGasMeter(r.maxGas),
	}
}

// Stop 停止监控. Frames left on the stack are dropped.
func (m *ResourceMonitor) Stop() {
	m.Tracer.callStack = m.Tracer.callStack[:0]
}

// CallTracer 用于追踪合约调用链
type CallTracer struct {
	maxDepth  int
	callStack []CallFrame
}

// CallFrame 表示一个调用栈帧
type CallFrame struct {
	Caller      core.Address
	Contract    core.Address
	Fingerprint metadata.MethodFingerprint
}

func (f CallFrame) String() string {
	return fmt.Sprintf("%s -> %s (%s)", f.Caller, f.Contract, f.Fingerprint)
}

// NewCallTracer 创建调用追踪器. A non-positive maxDepth means unbounded.
func NewCallTracer(maxDepth int) *CallTracer {
	return &CallTracer{
		maxDepth:  maxDepth,
		callStack: make([]CallFrame, 0, max(maxDepth, 0)),
	}
}

// BeginCall 记录调用开始
func (t *CallTracer) BeginCall(caller, contract core.Address, fingerprint metadata.MethodFingerprint) error {
	if t.maxDepth > 0 && len(t.callStack) >= t.maxDepth {
		return fmt.Errorf("%w: %d frames, calling %s", ErrCallDepthExceeded, len(t.callStack), contract)
	}
	t.callStack = append(t.callStack, CallFrame{
		Caller:      caller,
		Contract:    contract,
		Fingerprint: fingerprint,
	})
	return nil
}

// EndCall 记录调用结束
func (t *CallTracer) EndCall() {
	if len(t.callStack) > 0 {
		t.callStack = t.callStack[:len(t.callStack)-1]
	}
}

// Depth returns the number of calls in progress.
func (t *CallTracer) Depth() int { return len(t.callStack) }

// Frames returns a copy of the call stack, outermost first.
func (t *CallTracer) Frames() []CallFrame {
	return append([]CallFrame(nil), t.callStack...)
}
