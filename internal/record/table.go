package record

// Column describes one field of a staged file and its relation
type Column struct {
	Name     string
	Nullable bool
}

// Table describes a target relation. Column order is the staged header
// order and the Values order of the matching record.
type Table struct {
	Name    string
	Columns []Column
}

// ColumnNames returns the column names in order
func (t Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// Index returns the position of the named column, or -1
func (t Table) Index(name string) int {
	for i, c := range t.Columns {
		if c.Name == name {
			return i
		}
	}
	return -1
}

func required(name string) Column { return Column{Name: name} }
func optional(name string) Column { return Column{Name: name, Nullable: true} }

var (
	NodesTable = Table{Name: "nodes", Columns: []Column{
		required("id"), optional("lat"), optional("lon"), optional("user"),
		optional("uid"), optional("version"), optional("changeset"), optional("timestamp"),
	}}
	NodeTagsTable = Table{Name: "nodes_tags", Columns: []Column{
		required("id"), required("key"), required("value"), required("type"),
	}}
	WaysTable = Table{Name: "ways", Columns: []Column{
		required("id"), optional("user"), optional("uid"),
		optional("version"), optional("changeset"), optional("timestamp"),
	}}
	WayTagsTable = Table{Name: "ways_tags", Columns: []Column{
		required("id"), required("key"), required("value"), required("type"),
	}}
	WayNodesTable = Table{Name: "ways_nodes", Columns: []Column{
		required("id"), required("node_id"), required("position"),
	}}
)

// Tables lists every relation in load order
var Tables = []Table{NodesTable, NodeTagsTable, WaysTable, WayTagsTable, WayNodesTable}

// Lookup finds a table by relation name
func Lookup(name string) (Table, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
