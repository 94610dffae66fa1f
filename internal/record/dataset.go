package record

// Dataset accumulates the records of one traversal. It is append-only and
// owned by a single run.
type Dataset struct {
	Nodes    []Node
	NodeTags []NodeTag
	Ways     []Way
	WayTags  []WayTag
	WayNodes []WayNode
}

// AddNode appends a node and its tags
func (d *Dataset) AddNode(n Node, tags []NodeTag) {
	d.Nodes = append(d.Nodes, n)
	d.NodeTags = append(d.NodeTags, tags...)
}

// AddWay appends a way, its tags and its node references
func (d *Dataset) AddWay(w Way, tags []WayTag, nodes []WayNode) {
	d.Ways = append(d.Ways, w)
	d.WayTags = append(d.WayTags, tags...)
	d.WayNodes = append(d.WayNodes, nodes...)
}

// Rows returns the collection staged into table, in emission order
func (d *Dataset) Rows(table Table) []Row {
	switch table.Name {
	case NodesTable.Name:
		return rows(d.Nodes)
	case NodeTagsTable.Name:
		return rows(d.NodeTags)
	case WaysTable.Name:
		return rows(d.Ways)
	case WayTagsTable.Name:
		return rows(d.WayTags)
	case WayNodesTable.Name:
		return rows(d.WayNodes)
	}
	return nil
}

// Counts returns the number of records per relation
func (d *Dataset) Counts() map[string]int {
	return map[string]int{
		NodesTable.Name:    len(d.Nodes),
		NodeTagsTable.Name: len(d.NodeTags),
		WaysTable.Name:     len(d.Ways),
		WayTagsTable.Name:  len(d.WayTags),
		WayNodesTable.Name: len(d.WayNodes),
	}
}

func rows[T Row](records []T) []Row {
	if len(records) == 0 {
		return nil
	}
	out := make([]Row, len(records))
	for i, r := range records {
		out[i] = r
	}
	return out
}
