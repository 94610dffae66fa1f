package extract

import (
	"compress/bzip2"
	"compress/gzip"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
)

// Source yields top-level node and way elements in document order. Next
// returns io.EOF once the input is exhausted.
type Source interface {
	Next() (Element, error)
	// BytesRead reports how much of the underlying file has been consumed
	BytesRead() int64
	Close() error
}

// OpenSource opens an OSM export, choosing the decoder from the file suffix:
// .pbf is OSM PBF, .gz and .bz2 are compressed XML, anything else plain XML.
func OpenSource(ctx context.Context, path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}

	counter := &countingReader{r: f}
	lower := strings.ToLower(path)

	switch {
	case strings.HasSuffix(lower, ".pbf"):
		return newPBFSource(ctx, path, counter, f), nil

	case strings.HasSuffix(lower, ".gz"):
		gzReader, err := gzip.NewReader(counter)
		if err != nil {
			f.Close()
			return nil, &MalformedInputError{Path: path, Offset: -1, Err: fmt.Errorf("gzip: %w", err)}
		}
		return newXMLSource(path, gzReader, counter, multiCloser{gzReader, f}), nil

	case strings.HasSuffix(lower, ".bz2"):
		return newXMLSource(path, bzip2.NewReader(counter), counter, f), nil
	}

	return newXMLSource(path, counter, counter, f), nil
}

// NewXMLSource reads OSM XML from r
func NewXMLSource(r io.Reader) Source {
	counter := &countingReader{r: r}
	return newXMLSource("<reader>", counter, counter, nil)
}

// XMLSource streams elements from OSM XML. Only the subtree of the element
// currently being yielded is held in memory.
type XMLSource struct {
	path    string
	decoder *xml.Decoder
	counter *countingReader
	closer  io.Closer
}

func newXMLSource(path string, r io.Reader, counter *countingReader, closer io.Closer) *XMLSource {
	return &XMLSource{
		path:    path,
		decoder: xml.NewDecoder(r),
		counter: counter,
		closer:  closer,
	}
}

// Next returns the next node or way element
func (s *XMLSource) Next() (Element, error) {
	for {
		token, err := s.decoder.Token()
		if err == io.EOF {
			return Element{}, io.EOF
		}
		if err != nil {
			return Element{}, s.malformed(err)
		}

		se, ok := token.(xml.StartElement)
		if !ok {
			continue
		}
		switch se.Name.Local {
		case ElementNode, ElementWay:
			return s.readElement(se)
		}
	}
}

// readElement collects start's attributes and child elements up to its
// matching end element
func (s *XMLSource) readElement(start xml.StartElement) (Element, error) {
	el := Element{Name: start.Name.Local}
	if len(start.Attr) > 0 {
		el.Attrs = make([]Attr, len(start.Attr))
		for i, a := range start.Attr {
			el.Attrs[i] = Attr{Name: a.Name.Local, Value: a.Value}
		}
	}

	for {
		token, err := s.decoder.Token()
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return Element{}, s.malformed(err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			child, err := s.readElement(t)
			if err != nil {
				return Element{}, err
			}
			el.Children = append(el.Children, child)
		case xml.EndElement:
			return el, nil
		}
	}
}

func (s *XMLSource) malformed(err error) error {
	var me *MalformedInputError
	if errors.As(err, &me) {
		return err
	}
	return &MalformedInputError{Path: s.path, Offset: s.decoder.InputOffset(), Err: err}
}

// BytesRead reports bytes consumed from the file
func (s *XMLSource) BytesRead() int64 {
	return s.counter.n.Load()
}

// Close releases the input
func (s *XMLSource) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// countingReader tracks bytes read for progress reporting
type countingReader struct {
	r io.Reader
	n atomic.Int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n.Add(int64(n))
	return n, err
}

// multiCloser closes in order and returns the first error
type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
