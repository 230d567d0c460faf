package weather

import "context"

// Layer names one of the independently loaded map layers.
type Layer string

const (
	LayerTemperature Layer = "temperature"
	LayerIsobars     Layer = "isobars"
)

// LoadState is a step of the fallback state machine.
type LoadState int

const (
	StateRequested LoadState = iota
	StateFallback
	StateLoaded
	StateFailed
)

func (s LoadState) String() string {
	switch s {
	case StateRequested:
		return "requested"
	case StateFallback:
		return "fallback"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON.
func (s LoadState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// FallbackPolicy bounds how many start-of-day hops a load may take.
type FallbackPolicy struct {
	MaxHops int
}

// DefaultFallbackPolicy allows a single hop to hour 00.
var DefaultFallbackPolicy = FallbackPolicy{MaxHops: 1}

type resolution[T any] struct {
	Value     T
	Resolved  Timestamp
	State     LoadState
	Attempted []Timestamp
}

// resolve loads requested, falling back to the start of the same day when the
// layer is missing or the upstream call fails. A target that was already
// attempted is never retried, so hour-00 requests fail after one attempt.
func resolve[T any](
	ctx context.Context,
	policy FallbackPolicy,
	layer Layer,
	requested Timestamp,
	load func(context.Context, Timestamp) (T, error),
	onFallback func(),
) (resolution[T], error) {
	res := resolution[T]{State: StateRequested}
	target := requested
	hops := 0
	var lastErr error

	for {
		switch res.State {
		case StateRequested, StateFallback:
			res.Attempted = append(res.Attempted, target)

			v, err := load(ctx, target)
			if err == nil {
				res.Value = v
				res.Resolved = target
				res.State = StateLoaded
				continue
			}
			lastErr = err

			if ctx.Err() != nil || !recoverable(err) {
				res.State = StateFailed
				continue
			}

			next := target.StartOfDay()
			if hops >= policy.MaxHops || attempted(res.Attempted, next) {
				res.State = StateFailed
				continue
			}
			hops++
			target = next
			res.State = StateFallback
			if onFallback != nil {
				onFallback()
			}

		case StateLoaded:
			return res, nil

		default:
			return res, &LoadError{
				Layer:     layer,
				Requested: requested,
				Attempted: res.Attempted,
				Err:       lastErr,
			}
		}
	}
}

func attempted(list []Timestamp, ts Timestamp) bool {
	for _, t := range list {
		if t == ts {
			return true
		}
	}
	return false
}
