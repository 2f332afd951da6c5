package httpserver

import "sync"

// ipConnectionLimiter caps concurrent WebSocket connections per client IP, so one source
// cannot take the whole connection budget.
type ipConnectionLimiter struct {
	mu     sync.Mutex
	ips    map[string]int
	maxPer int
}

func newIPConnectionLimiter(maxPer int) *ipConnectionLimiter {
	return &ipConnectionLimiter{
		ips:    make(map[string]int),
		maxPer: maxPer,
	}
}

// acquire takes a slot for ip, reporting false when ip is at its limit.
func (l *ipConnectionLimiter) acquire(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.ips[ip] >= l.maxPer {
		return false
	}
	l.ips[ip]++
	return true
}

func (l *ipConnectionLimiter) release(ip string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if count := l.ips[ip]; count > 1 {
		l.ips[ip] = count - 1
	} else {
		delete(l.ips, ip)
	}
}

func (l *ipConnectionLimiter) count(ip string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.ips[ip]
}
