package gamestate

import (
	"fmt"

	"pkg.world.dev/atlas/types"
)

// column is one struct-of-arrays column of a table: the component values for
// every row, plus the change-detection tick pair recorded per slot.
type column struct {
	meta    types.ComponentMetadata
	data    []any
	added   []types.Tick
	changed []types.Tick
}

// Table is the dense storage backing one archetype's table-kind components.
// All columns are indexed in parallel with the entities column: row i across
// every column describes one entity.
type Table struct {
	id       types.TableID
	columns  []*column
	colIndex map[types.ComponentID]int
	entities []types.Entity
}

// newTable creates an empty table with one column per given component.
// Sparse-set components must be filtered out by the caller; a table only
// ever stores table-kind components.
func newTable(id types.TableID, comps []types.ComponentMetadata) *Table {
	t := &Table{
		id:       id,
		columns:  make([]*column, 0, len(comps)),
		colIndex: make(map[types.ComponentID]int, len(comps)),
		entities: nil,
	}
	for _, comp := range comps {
		t.colIndex[comp.ID()] = len(t.columns)
		t.columns = append(t.columns, &column{meta: comp})
	}
	return t
}

func (t *Table) Len() int {
	return len(t.entities)
}

func (t *Table) hasColumn(cID types.ComponentID) bool {
	_, ok := t.colIndex[cID]
	return ok
}

// addRow appends a new row for the given entity and returns its index. Every
// column gets the component's default value stamped with the given tick.
func (t *Table) addRow(e types.Entity, tick types.Tick) (int, error) {
	for _, col := range t.columns {
		val, err := col.meta.New()
		if err != nil {
			return 0, err
		}
		col.data = append(col.data, val)
		col.added = append(col.added, tick)
		col.changed = append(col.changed, tick)
	}
	t.entities = append(t.entities, e)
	t.checkColumnLengths()
	return len(t.entities) - 1, nil
}

// addRowNoFill appends a new row with unset column values. Used by row moves,
// where every column is filled from the source table or from the inserted
// component immediately afterwards.
func (t *Table) addRowNoFill(e types.Entity) int {
	for _, col := range t.columns {
		col.data = append(col.data, nil)
		col.added = append(col.added, 0)
		col.changed = append(col.changed, 0)
	}
	t.entities = append(t.entities, e)
	t.checkColumnLengths()
	return len(t.entities) - 1
}

// swapRemove deletes the given row by moving the last row into its place,
// keeping the table dense. It returns the entity that was moved into the
// vacated slot, if any; the caller must update that entity's location.
func (t *Table) swapRemove(row int) (moved types.Entity, wasMoved bool) {
	last := len(t.entities) - 1
	if row < 0 || row > last {
		panic(fmt.Sprintf("table %d: swapRemove row %d out of range (len %d)", t.id, row, last+1))
	}
	if row != last {
		moved = t.entities[last]
		wasMoved = true
		t.entities[row] = t.entities[last]
		for _, col := range t.columns {
			col.data[row] = col.data[last]
			col.added[row] = col.added[last]
			col.changed[row] = col.changed[last]
		}
	}
	t.entities = t.entities[:last]
	for _, col := range t.columns {
		col.data[last] = nil // release the reference
		col.data = col.data[:last]
		col.added = col.added[:last]
		col.changed = col.changed[:last]
	}
	t.checkColumnLengths()
	return moved, wasMoved
}

// copyRowTo copies every column value (and its tick pair) shared between the
// source and destination tables from the given source row into the given
// destination row. Columns that exist only in the destination are untouched.
func (t *Table) copyRowTo(row int, dst *Table, dstRow int) {
	for _, col := range t.columns {
		dstSlot, ok := dst.colIndex[col.meta.ID()]
		if !ok {
			continue
		}
		dstCol := dst.columns[dstSlot]
		dstCol.data[dstRow] = col.data[row]
		dstCol.added[dstRow] = col.added[row]
		dstCol.changed[dstRow] = col.changed[row]
	}
}

func (t *Table) get(cID types.ComponentID, row int) (any, types.TickPair, bool) {
	slot, ok := t.colIndex[cID]
	if !ok {
		return nil, types.TickPair{}, false
	}
	col := t.columns[slot]
	return col.data[row], types.TickPair{Added: col.added[row], Changed: col.changed[row]}, true
}

// set overwrites the component value at the given row and stamps its changed
// tick. The added tick is preserved.
func (t *Table) set(cID types.ComponentID, row int, value any, tick types.Tick) bool {
	slot, ok := t.colIndex[cID]
	if !ok {
		return false
	}
	col := t.columns[slot]
	col.data[row] = value
	col.changed[row] = tick
	return true
}

// setInserted writes a freshly inserted component value, stamping both the
// added and changed ticks.
func (t *Table) setInserted(cID types.ComponentID, row int, value any, tick types.Tick) bool {
	slot, ok := t.colIndex[cID]
	if !ok {
		return false
	}
	col := t.columns[slot]
	col.data[row] = value
	col.added[row] = tick
	col.changed[row] = tick
	return true
}

// checkColumnLengths verifies the row-count invariant: every column must have
// exactly as many rows as the entities column. A mismatch means a row move
// went wrong, which is a core bug, so it aborts loudly.
func (t *Table) checkColumnLengths() {
	want := len(t.entities)
	for _, col := range t.columns {
		if len(col.data) != want || len(col.added) != want || len(col.changed) != want {
			panic(fmt.Sprintf(
				"table %d: column %q has %d rows, want %d", t.id, col.meta.Name(), len(col.data), want,
			))
		}
	}
}
