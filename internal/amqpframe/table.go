package amqpframe

import "sort"

// Table is an AMQP field-table: a string-keyed map of typed values. Go's map
// iteration order is randomized, which would make every encode of the same
// logical table byte-different; this package always emits keys sorted so
// encoding is deterministic (useful for tests, harmless on the wire — AMQP
// does not mandate any particular field order).
type Table map[string]any

func (t Table) keys() []string {
	ks := make([]string, 0, len(t))
	for k := range t {
		ks = append(ks, k)
	}
	sort.Strings(ks)
	return ks
}
