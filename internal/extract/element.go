package extract

// Element names the traversal dispatches on
const (
	ElementNode = "node"
	ElementWay  = "way"
	ElementTag  = "tag"
	ElementNd   = "nd"
)

// Attr is one element attribute, value verbatim from the source
type Attr struct {
	Name  string
	Value string
}

// Element is a top-level node or way with its child elements, in document
// order
type Element struct {
	Name     string
	Attrs    []Attr
	Children []Element
}

// Attr looks up an attribute by name
func (e *Element) Attr(name string) (string, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// AttrOr returns the attribute value or "" when absent
func (e *Element) AttrOr(name string) string {
	v, _ := e.Attr(name)
	return v
}
