package weather

import "time"

// DefaultFreshnessThreshold is the maximum cache age served without a refresh.
const DefaultFreshnessThreshold = 15 * time.Minute

// Action is what a fetch cycle should do with the cache and the network.
type Action int

const (
	UseCache Action = iota
	FetchNetwork
	FetchNetworkFallbackToCache
	Fail
)

func (a Action) String() string {
	switch a {
	case UseCache:
		return "use_cache"
	case FetchNetwork:
		return "fetch_network"
	case FetchNetworkFallbackToCache:
		return "fetch_network_fallback_to_cache"
	case Fail:
		return "fail"
	default:
		return "unknown"
	}
}

// Decision is the outcome of the freshness policy.
type Decision struct {
	Action Action
	Reason string // set for Fail only
}

// NeedsNetwork reports whether the decision calls the provider.
func (d Decision) NeedsNetwork() bool {
	return d.Action == FetchNetwork || d.Action == FetchNetworkFallbackToCache
}

// Decide is the freshness policy. It is pure: the clock is passed in.
//
// A fresh cache wins unless forceRefresh is set. Online, the network is
// fetched, with the cache (if any) sanctioned as fallback. Offline, any
// cache is served however stale, and with no cache the cycle fails.
func Decide(cached *ForecastRecord, threshold time.Duration, networkUp, forceRefresh bool, now time.Time) Decision {
	if !forceRefresh && cached != nil && cached.Age(now) < threshold {
		return Decision{Action: UseCache}
	}
	if networkUp {
		if cached != nil {
			return Decision{Action: FetchNetworkFallbackToCache}
		}
		return Decision{Action: FetchNetwork}
	}
	if cached != nil {
		return Decision{Action: UseCache}
	}
	return Decision{Action: Fail, Reason: ErrOffline.Error()}
}
