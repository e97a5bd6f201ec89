package builder

import (
	"github.com/gaborage/qdb/database/types"
)

// slot names the clause of a frame that receives a subquery's text.
type slot int

const (
	slotNone slot = iota
	slotTable
	slotColumns
	slotWhere
)

func (s slot) String() string {
	switch s {
	case slotTable:
		return "table"
	case slotColumns:
		return "columns"
	case slotWhere:
		return "where"
	default:
		return "none"
	}
}

// components is the in-progress clause text of one statement or one subquery
// level. Every clause string is either empty or fully formed, e.g. "WHERE x = 1".
type components struct {
	table      string
	tableAlias string
	tableSub   bool // table holds assembled subquery text instead of a name

	columns []string
	values  []string

	where     string
	whereTail string // text that follows a pending WHERE subquery
	whereBool bool   // where joins more than one predicate

	groupBy string
	having  string
	orderBy string
	limit   string
	joins   []string

	distinct  bool
	backticks bool

	// opening is the parent's slot this frame will be spliced into. It is
	// slotNone for the root frame.
	opening slot
	alias   string

	// pending is the slot of this frame waiting for a child frame's text.
	pending       slot
	pendingColumn int

	sql []string
}

// newComponents returns a fresh frame seeded from the builder defaults.
func newComponents(defaults *settings) *components {
	c := &components{
		backticks:     defaults.backticks,
		pendingColumn: -1,
	}
	if defaults.table != nil {
		c.table = defaults.table.Name()
		c.tableAlias = defaults.table.Alias()
	}
	return c
}

// settings is the configuration that survives every reset.
type settings struct {
	prefix    string
	table     *types.TableRef
	backticks bool
}

// prefixed applies the configured table prefix to name.
func (s *settings) prefixed(name string) string {
	if s.prefix == "" {
		return name
	}
	return s.prefix + "_" + name
}

// resolve splices a finished subquery into the pending slot and clears it.
func (c *components) resolve(text string) {
	switch c.pending {
	case slotTable:
		c.table = text
		c.tableSub = true
	case slotColumns:
		c.columns[c.pendingColumn] = text
	case slotWhere:
		c.where += text + c.whereTail
		c.whereTail = ""
	}
	c.pending = slotNone
	c.pendingColumn = -1
}
