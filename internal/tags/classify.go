// Package tags classifies raw OSM tag keys into namespaced, regular or
// rejected keys.
package tags

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/wegman-software/osm2sql-go/internal/record"
)

// ProblemPolicy decides how much of a key is checked for problem characters
type ProblemPolicy int

const (
	// PolicyLeading rejects a key only when its first character is a
	// problem character
	PolicyLeading ProblemPolicy = iota
	// PolicyAnywhere rejects a key containing a problem character at any
	// position
	PolicyAnywhere
)

// ParsePolicy parses "leading" or "anywhere"
func ParsePolicy(s string) (ProblemPolicy, error) {
	switch strings.ToLower(s) {
	case "", "leading":
		return PolicyLeading, nil
	case "anywhere":
		return PolicyAnywhere, nil
	}
	return PolicyLeading, fmt.Errorf("unknown problem character policy %q", s)
}

func (p ProblemPolicy) String() string {
	if p == PolicyAnywhere {
		return "anywhere"
	}
	return "leading"
}

const problemClass = `[=+&<>;'"?%#$@,. \t\r\n]`

var (
	namespaced     = regexp.MustCompile(`^[A-Za-z_]*:[A-Za-z0-9_]*$`)
	leadingProblem = regexp.MustCompile(`^` + problemClass)
	anyProblem     = regexp.MustCompile(problemClass)
)

// Classifier turns raw key/value pairs into tag records
type Classifier struct {
	problem *regexp.Regexp
}

// NewClassifier creates a classifier using the given problem policy
func NewClassifier(policy ProblemPolicy) *Classifier {
	c := &Classifier{problem: leadingProblem}
	if policy == PolicyAnywhere {
		c.problem = anyProblem
	}
	return c
}

var defaultClassifier = NewClassifier(PolicyLeading)

// Classify classifies with the leading-character policy
func Classify(key, value, ownerID string) (record.Tag, bool) {
	return defaultClassifier.Classify(key, value, ownerID)
}

// Classify returns the tag record for a raw key/value owned by ownerID, or
// false when the key is rejected.
//
// The namespace check runs before the problem-character check: a key such as
// "addr:street" is namespaced even though ':' would otherwise be examined.
// Either side of the colon may be empty: "addr:" yields type "addr" with an
// empty key.
func (c *Classifier) Classify(key, value, ownerID string) (record.Tag, bool) {
	if namespaced.MatchString(key) {
		prefix, rest, _ := strings.Cut(key, ":")
		return record.Tag{ID: ownerID, Key: rest, Value: value, Type: prefix}, true
	}
	if c.problem.MatchString(key) {
		return record.Tag{}, false
	}
	return record.Tag{ID: ownerID, Key: key, Value: value, Type: record.TypeRegular}, true
}
