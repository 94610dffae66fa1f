package extract

import (
	"github.com/wegman-software/osm2sql-go/internal/record"
	"github.com/wegman-software/osm2sql-go/internal/tags"
)

// BuildNode turns a node element into its record and classified tags.
// Missing attributes become null.
func BuildNode(el *Element, cls *tags.Classifier) (record.Node, []record.NodeTag) {
	node := record.Node{
		ID:        attr(el, "id"),
		Lat:       attr(el, "lat"),
		Lon:       attr(el, "lon"),
		User:      attr(el, "user"),
		UID:       attr(el, "uid"),
		Version:   attr(el, "version"),
		Changeset: attr(el, "changeset"),
		Timestamp: attr(el, "timestamp"),
	}

	var nodeTags []record.NodeTag
	for _, tag := range classifyChildren(el, node.ID.String, cls) {
		nodeTags = append(nodeTags, record.NodeTag(tag))
	}
	return node, nodeTags
}

// BuildWay turns a way element into its record, classified tags and node
// references. References are numbered 0..N-1 in document order.
func BuildWay(el *Element, cls *tags.Classifier) (record.Way, []record.WayTag, []record.WayNode) {
	way := record.Way{
		ID:        attr(el, "id"),
		User:      attr(el, "user"),
		UID:       attr(el, "uid"),
		Version:   attr(el, "version"),
		Changeset: attr(el, "changeset"),
		Timestamp: attr(el, "timestamp"),
	}

	var wayTags []record.WayTag
	for _, tag := range classifyChildren(el, way.ID.String, cls) {
		wayTags = append(wayTags, record.WayTag(tag))
	}

	var wayNodes []record.WayNode
	position := 0
	for i := range el.Children {
		child := &el.Children[i]
		if child.Name != ElementNd {
			continue
		}
		wayNodes = append(wayNodes, record.WayNode{
			ID:       way.ID.String,
			NodeID:   child.AttrOr("ref"),
			Position: position,
		})
		position++
	}

	return way, wayTags, wayNodes
}

// classifyChildren classifies every tag child of el. Tags without a key are
// skipped; a missing value is an empty value.
func classifyChildren(el *Element, ownerID string, cls *tags.Classifier) []record.Tag {
	var out []record.Tag
	for i := range el.Children {
		child := &el.Children[i]
		if child.Name != ElementTag {
			continue
		}
		key, ok := child.Attr("k")
		if !ok {
			continue
		}
		if tag, ok := cls.Classify(key, child.AttrOr("v"), ownerID); ok {
			out = append(out, tag)
		}
	}
	return out
}

func attr(el *Element, name string) record.Text {
	return record.Opt(el.Attr(name))
}
