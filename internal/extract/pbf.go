package extract

import (
	"context"
	"io"
	"runtime"
	"strconv"
	"time"

	"github.com/paulmach/osm"
	"github.com/paulmach/osm/osmpbf"
)

// PBFSource yields nodes and ways from an OSM PBF file. Typed PBF fields are
// rendered back to the text an XML export would carry; zero values, which
// PBF uses for missing metadata, become absent attributes.
type PBFSource struct {
	path    string
	scanner *osmpbf.Scanner
	closer  io.Closer
}

func newPBFSource(ctx context.Context, path string, r io.Reader, closer io.Closer) *PBFSource {
	scanner := osmpbf.New(ctx, r, runtime.NumCPU())
	scanner.SkipRelations = true
	return &PBFSource{path: path, scanner: scanner, closer: closer}
}

// NewPBFSource reads OSM PBF from r
func NewPBFSource(ctx context.Context, r io.Reader) Source {
	return newPBFSource(ctx, "<reader>", r, nil)
}

// Next returns the next node or way element
func (s *PBFSource) Next() (Element, error) {
	for s.scanner.Scan() {
		switch o := s.scanner.Object().(type) {
		case *osm.Node:
			return nodeElement(o), nil
		case *osm.Way:
			return wayElement(o), nil
		}
	}

	if err := s.scanner.Err(); err != nil && err != io.EOF {
		return Element{}, &MalformedInputError{Path: s.path, Offset: -1, Err: err}
	}
	return Element{}, io.EOF
}

// BytesRead reports bytes of fully decoded blocks
func (s *PBFSource) BytesRead() int64 {
	return s.scanner.FullyScannedBytes()
}

// Close stops the decoder and releases the input
func (s *PBFSource) Close() error {
	err := s.scanner.Close()
	if s.closer != nil {
		if cerr := s.closer.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

func nodeElement(n *osm.Node) Element {
	attrs := []Attr{
		{Name: "id", Value: strconv.FormatInt(int64(n.ID), 10)},
		{Name: "lat", Value: strconv.FormatFloat(n.Lat, 'f', -1, 64)},
		{Name: "lon", Value: strconv.FormatFloat(n.Lon, 'f', -1, 64)},
	}
	attrs = appendMeta(attrs, n.User, int64(n.UserID), n.Version, int64(n.ChangesetID), n.Timestamp)

	return Element{Name: ElementNode, Attrs: attrs, Children: tagElements(n.Tags, 0)}
}

func wayElement(w *osm.Way) Element {
	attrs := []Attr{{Name: "id", Value: strconv.FormatInt(int64(w.ID), 10)}}
	attrs = appendMeta(attrs, w.User, int64(w.UserID), w.Version, int64(w.ChangesetID), w.Timestamp)

	children := tagElements(w.Tags, len(w.Nodes))
	for _, wn := range w.Nodes {
		children = append(children, Element{
			Name:  ElementNd,
			Attrs: []Attr{{Name: "ref", Value: strconv.FormatInt(int64(wn.ID), 10)}},
		})
	}

	return Element{Name: ElementWay, Attrs: attrs, Children: children}
}

func appendMeta(attrs []Attr, user string, uid int64, version int, changeset int64, ts time.Time) []Attr {
	if user != "" {
		attrs = append(attrs, Attr{Name: "user", Value: user})
	}
	if uid != 0 {
		attrs = append(attrs, Attr{Name: "uid", Value: strconv.FormatInt(uid, 10)})
	}
	if version != 0 {
		attrs = append(attrs, Attr{Name: "version", Value: strconv.Itoa(version)})
	}
	if changeset != 0 {
		attrs = append(attrs, Attr{Name: "changeset", Value: strconv.FormatInt(changeset, 10)})
	}
	if !ts.IsZero() {
		attrs = append(attrs, Attr{Name: "timestamp", Value: ts.UTC().Format(time.RFC3339)})
	}
	return attrs
}

func tagElements(tags osm.Tags, extra int) []Element {
	if len(tags)+extra == 0 {
		return nil
	}
	out := make([]Element, 0, len(tags)+extra)
	for _, tag := range tags {
		out = append(out, Element{
			Name:  ElementTag,
			Attrs: []Attr{{Name: "k", Value: tag.Key}, {Name: "v", Value: tag.Value}},
		})
	}
	return out
}
