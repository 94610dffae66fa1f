// Package record defines the flat relational records produced from an OSM
// export and the table layout they are staged and loaded with.
//
// All field values are kept as the text found in the source so no precision
// is lost between the export and the store.
package record

import "strconv"

// Text is a nullable text value. The zero value is null.
type Text struct {
	String string
	Valid  bool
}

// Str returns a non-null Text
func Str(s string) Text {
	return Text{String: s, Valid: true}
}

// Opt returns s when ok is true and null otherwise, matching the
// (value, found) shape of attribute lookups
func Opt(s string, ok bool) Text {
	if !ok {
		return Text{}
	}
	return Str(s)
}

// Value returns the text as a driver argument: nil when null
func (t Text) Value() any {
	if !t.Valid {
		return nil
	}
	return t.String
}

// Row is implemented by every record; Values follows the column order of the
// record's Table
type Row interface {
	Values() []Text
}

// Node is a point entity
type Node struct {
	ID        Text
	Lat       Text
	Lon       Text
	User      Text
	UID       Text
	Version   Text
	Changeset Text
	Timestamp Text
}

func (n Node) Values() []Text {
	return []Text{n.ID, n.Lat, n.Lon, n.User, n.UID, n.Version, n.Changeset, n.Timestamp}
}

// Way is an ordered sequence of node references
type Way struct {
	ID        Text
	User      Text
	UID       Text
	Version   Text
	Changeset Text
	Timestamp Text
}

func (w Way) Values() []Text {
	return []Text{w.ID, w.User, w.UID, w.Version, w.Changeset, w.Timestamp}
}

// TypeRegular is the tag type of keys without a namespace prefix
const TypeRegular = "regular"

// Tag is a classified key/value attribute of a node or way
type Tag struct {
	ID    string // owning node or way id
	Key   string
	Value string
	Type  string // namespace prefix or TypeRegular
}

func (t Tag) Values() []Text {
	return []Text{Str(t.ID), Str(t.Key), Str(t.Value), Str(t.Type)}
}

// NodeTag is a tag owned by a node
type NodeTag Tag

func (t NodeTag) Values() []Text { return Tag(t).Values() }

// WayTag is a tag owned by a way
type WayTag Tag

func (t WayTag) Values() []Text { return Tag(t).Values() }

// WayNode places a node reference at a zero-based position within a way
type WayNode struct {
	ID       string // way id
	NodeID   string
	Position int
}

func (wn WayNode) Values() []Text {
	return []Text{Str(wn.ID), Str(wn.NodeID), Str(strconv.Itoa(wn.Position))}
}
