// Package gateway implements the public API gateway: external token
// verification, internal credential minting, and path-based dispatch to the
// analytics backends.
package gateway

import (
	"strings"

	"github.com/finfabric/analytics-gateway/internal/config"
)

// Table is the immutable route table, matched longest prefix first.
type Table struct {
	routes []config.Route
}

// NewTable builds a route table from configuration. The table is fixed for
// the process lifetime.
func NewTable(routes []config.Route) *Table {
	return &Table{routes: routes}
}

// Match returns the route whose prefix is the longest match for path.
func (t *Table) Match(path string) (config.Route, bool) {
	var best config.Route
	bestLen := -1
	for _, rt := range t.routes {
		if strings.HasPrefix(path, rt.Prefix) && len(rt.Prefix) > bestLen {
			best = rt
			bestLen = len(rt.Prefix)
		}
	}
	return best, bestLen >= 0
}
