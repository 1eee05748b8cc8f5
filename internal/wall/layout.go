package wall

// gridShapes maps every supported slot count to the grid it is rendered in.
var gridShapes = map[SlotCount]GridShape{
	1: {Rows: 1, Columns: 1},
	2: {Rows: 1, Columns: 2},
	4: {Rows: 2, Columns: 2},
	6: {Rows: 3, Columns: 2},
	9: {Rows: 3, Columns: 3},
}

// Resolve returns the grid shape for n. The ok return is false when n is not
// one of SupportedSlotCounts; callers validate slot counts before resolving.
func Resolve(n SlotCount) (shape GridShape, ok bool) {
	shape, ok = gridShapes[n]
	return shape, ok
}
