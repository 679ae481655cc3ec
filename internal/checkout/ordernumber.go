package checkout

import (
	"strconv"
	"strings"
	"sync"
	"time"
)

const orderNumberPrefix = "STR-"

// OrderNumbers issues order numbers derived from the millisecond clock.
// Numbers from one generator strictly increase even when the clock stalls
// or steps back. There is no cross-process uniqueness guarantee.
type OrderNumbers struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewOrderNumbers creates a generator on the wall clock
func NewOrderNumbers() *OrderNumbers {
	return &OrderNumbers{now: time.Now}
}

// Next returns "STR-" followed by the upper-cased base36 millisecond timestamp
func (g *OrderNumbers) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()

	ms := g.now().UnixMilli()
	if ms <= g.last {
		ms = g.last + 1
	}
	g.last = ms

	return orderNumberPrefix + strings.ToUpper(strconv.FormatInt(ms, 36))
}

// ParseOrderNumber recovers the millisecond value behind an order number
func ParseOrderNumber(number string) (int64, bool) {
	encoded, ok := strings.CutPrefix(number, orderNumberPrefix)
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(strings.ToLower(encoded), 36, 64)
	if err != nil {
		return 0, false
	}
	return ms, true
}
