package strategies

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"aShareBacktest/internal/domain"
	"aShareBacktest/internal/ports"
)

// Params holds free-form strategy parameters as decoded from a YAML file.
type Params map[string]interface{}

// Int returns the integer parameter under key, or def when it is missing.
func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("parameter %s: %v is not an integer", key, n)
		}
		return int(n), nil
	case string:
		i, err := strconv.Atoi(n)
		if err != nil {
			return 0, fmt.Errorf("parameter %s: %w", key, err)
		}
		return i, nil
	default:
		return 0, fmt.Errorf("parameter %s: unsupported type %T", key, v)
	}
}

// Float returns the numeric parameter under key, or def when it is missing.
func (p Params) Float(key string, def float64) (float64, error) {
	v, ok := p[key]
	if !ok || v == nil {
		return def, nil
	}
	switch n := v.(type) {
	case float64:
		return n, nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		if err != nil {
			return 0, fmt.Errorf("parameter %s: %w", key, err)
		}
		return f, nil
	default:
		return 0, fmt.Errorf("parameter %s: unsupported type %T", key, v)
	}
}

// Factory builds a signal source from parameters.
type Factory func(params Params, logger ports.Logger) (ports.SignalSource, error)

// Registry maps strategy names to factories. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry holding the built-in strategies.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(HoldName, NewHoldFromParams)
	r.Register(MACrossoverName, NewMACrossoverFromParams)
	r.Register(MomentumName, NewMomentumFromParams)
	r.Register(TrendName, NewTrendFromParams)
	return r
}

// Register adds or replaces a factory.
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Create builds the named strategy. An unknown name is a configuration error.
func (r *Registry) Create(name string, params Params, logger ports.Logger) (ports.SignalSource, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %w: %q (available: %v)", ports.ErrConfigurationError, ports.ErrUnknownStrategy, name, r.Names())
	}
	source, err := factory(params, logger)
	if err != nil {
		return nil, fmt.Errorf("%w: strategy %s: %w", ports.ErrConfigurationError, name, err)
	}
	return source, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BaseStrategy provides common functionality for strategies
type BaseStrategy struct {
	logger ports.Logger
}

// NewBaseStrategy creates a new base strategy instance
func NewBaseStrategy(logger ports.Logger) (*BaseStrategy, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required for strategy")
	}
	return &BaseStrategy{logger: logger}, nil
}

func (b *BaseStrategy) logCounts(ctx context.Context, name string, signals []domain.Signal) {
	var buys, sells, holds int
	for _, s := range signals {
		switch s {
		case domain.SignalBuy:
			buys++
		case domain.SignalSell:
			sells++
		default:
			holds++
		}
	}
	b.logger.Info(ctx, "Signals generated", map[string]interface{}{
		"strategy": name,
		"bars":     len(signals),
		"buy":      buys,
		"sell":     sells,
		"hold":     holds,
	})
}

func holdSignals(n int) []domain.Signal {
	out := make([]domain.Signal, n)
	for i := range out {
		out[i] = domain.SignalHold
	}
	return out
}
