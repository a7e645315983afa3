package security

import (
	"errors"
	"fmt"
	"sync"
)

var (
	ErrOutOfGas      = errors.New("out of gas")
	ErrInvalidRefund = errors.New("invalid gas refund")
)

// Costs charged by the executor.
const (
	// CallGas is charged for every dispatched call.
	CallGas = 100
	// ByteGas is charged per byte of input.
	ByteGas = 1
)

// GasMeter tracks gas of one transaction. A meter with a zero limit never runs out.
type GasMeter struct {
	mu    sync.RWMutex
	limit uint64
	gas   uint64
	used  uint64
}

// NewGasMeter 初始化gas
func NewGasMeter(limit uint64) *GasMeter {
	return &GasMeter{limit: limit, gas: limit}
}

// Metered reports whether the meter enforces a limit.
func (g *GasMeter) Metered() bool { return g.limit != 0 }

// Remaining 获取剩余gas
func (g *GasMeter) Remaining() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.gas
}

// Used 获取已使用的gas
func (g *GasMeter) Used() uint64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.used
}

// Consume 消耗gas
func (g *GasMeter) Consume(amount uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if amount == 0 {
		return nil
	}
	if g.limit != 0 {
		if g.gas < amount {
			return fmt.Errorf("%w: gas=%d, need=%d", ErrOutOfGas, g.gas, amount)
		}
		g.gas -= amount
	}
	g.used += amount
	return nil
}

// Refund 退还gas
func (g *GasMeter) Refund(amount uint64) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.used < amount {
		return fmt.Errorf("%w: used=%d, refund=%d", ErrInvalidRefund, g.used, amount)
	}
	if g.limit != 0 {
		g.gas += amount
	}
	g.used -= amount
	return nil
}

// Reset 重置gas
func (g *GasMeter) Reset(limit uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.limit, g.gas, g.used = limit, limit, 0
}
