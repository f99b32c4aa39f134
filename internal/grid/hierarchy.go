package grid

import "log/slog"

// insertIntoHierarchy files g under the grid named parentName when that grid
// contains it. Otherwise named grids become top-level grids and unnamed ones
// are placed below the first top-level grid whose extent contains them.
func insertIntoHierarchy(logger *slog.Logger, g *Grid, gridName, parentName string, top *[]*Grid, byName map[string]*Grid) {
	if gridName != "" {
		if _, dup := byName[gridName]; dup {
			logger.Debug("Several grids with the same name found", "grid", g.name, "name", gridName)
		}
		byName[gridName] = g
	}

	if parentName != "" {
		parent, ok := byName[parentName]
		switch {
		case !ok:
			logger.Debug("Grid refers to non-existing parent. Using bounding-box method",
				"grid", g.name, "parent", parentName)
		case parent.extent.Contains(g.extent):
			parent.children = append(parent.children, g)
			return
		default:
			logger.Debug("Grid refers to a parent whose extent does not include it. Using bounding-box method",
				"grid", g.name, "parent", parentName)
		}
	} else if gridName != "" {
		*top = append(*top, g)
		return
	}

	for _, candidate := range *top {
		if candidate.extent.Contains(g.extent) {
			insertGrid(logger, candidate, g)
			return
		}
		if candidate.extent.Intersects(g.extent) {
			logger.Debug("Partially intersecting grids found", "grid", g.name, "other", candidate.name)
		}
	}
	*top = append(*top, g)
}

// insertGrid places g below the deepest descendant of parent containing it.
func insertGrid(logger *slog.Logger, parent, g *Grid) {
	for _, candidate := range parent.children {
		if candidate.extent.Contains(g.extent) {
			insertGrid(logger, candidate, g)
			return
		}
		if candidate.extent.Intersects(g.extent) {
			logger.Debug("Partially intersecting grids found", "grid", g.name, "other", candidate.name)
		}
	}
	parent.children = append(parent.children, g)
}
