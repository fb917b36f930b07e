package mockapi

import (
	"net/http"
	"sync"
	"time"
)

// Fault makes matching requests fail before they reach a handler.
type Fault struct {
	// Method and Route select requests. Route is a registered route such as
	// RouteTask; an empty field matches anything.
	Method string
	Route  string
	// Status is the response status, 503 when zero.
	Status int
	// Body is sent as JSON. It defaults to {"detail": <status text>}.
	Body any
	// Times limits how many requests fail; zero means until cleared.
	Times int
	// Delay is waited before answering.
	Delay time.Duration
}

// Faults is a set of active faults.
type Faults struct {
	mu    sync.Mutex
	rules []*Fault
}

// Add activates a fault.
func (f *Faults) Add(rule Fault) {
	if rule.Status == 0 {
		rule.Status = http.StatusServiceUnavailable
	}
	if rule.Body == nil {
		rule.Body = map[string]string{"detail": http.StatusText(rule.Status)}
	}
	f.mu.Lock()
	f.rules = append(f.rules, &rule)
	f.mu.Unlock()
}

// Clear removes every fault.
func (f *Faults) Clear() {
	f.mu.Lock()
	f.rules = nil
	f.mu.Unlock()
}

// match returns the first fault for the request and uses one of its shots.
func (f *Faults) match(method, route string) (Fault, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, rule := range f.rules {
		if rule.Method != "" && rule.Method != method {
			continue
		}
		if rule.Route != "" && rule.Route != route {
			continue
		}
		hit := *rule
		if rule.Times > 0 {
			rule.Times--
			if rule.Times == 0 {
				f.rules = append(f.rules[:i], f.rules[i+1:]...)
			}
		}
		return hit, true
	}
	return Fault{}, false
}
