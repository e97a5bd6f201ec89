package builder

import "strings"

// startSubquery parks the live frame and opens a fresh one whose finished
// SELECT will be spliced into the parked frame's slot.
func (b *Builder) startSubquery(s slot) {
	parent := b.live
	parent.pending = s

	b.spheres = append(b.spheres, parent)
	b.level++

	child := newComponents(&b.defaults)
	child.opening = s
	b.live = child

	b.log.Debug().Int("level", b.level).Str("slot", s.String()).Msg("Subquery opened")
}

// finishSubquery closes the live frame, indents its lines one level deeper
// than the parent and puts them, parenthesized, into the parent's pending slot.
func (b *Builder) finishSubquery() {
	child := b.live

	indent := b.level - 1
	if child.opening == slotColumns {
		indent++
	}
	t := strings.Repeat("\t", indent)
	text := "(\n" + indentLines(child.sql, t+"\t") + "\n" + t + ")"

	b.level--
	parent := b.spheres[len(b.spheres)-1]
	b.spheres[len(b.spheres)-1] = nil
	b.spheres = b.spheres[:len(b.spheres)-1]
	b.live = parent

	switch child.opening {
	case slotTable:
		if child.alias != "" {
			parent.tableAlias = child.alias
		}
	case slotColumns:
		if child.alias != "" {
			text += " AS " + child.alias
		}
	}
	parent.resolve(text)

	b.log.Debug().Int("level", b.level).Str("slot", child.opening.String()).Msg("Subquery closed")
}
