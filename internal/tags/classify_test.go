package tags

import (
	"testing"

	"github.com/wegman-software/osm2sql-go/internal/record"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		value    string
		wantOK   bool
		wantKey  string
		wantType string
	}{
		{"namespaced", "addr:city", "Springfield", true, "city", "addr"},
		{"namespaced digits after colon", "name:en2", "x", true, "en2", "name"},
		{"namespaced underscore prefix", "_x:y", "v", true, "y", "_x"},
		{"regular", "source", "survey", true, "source", record.TypeRegular},
		{"regular with inner problem char", "ab,c", "x", true, "ab,c", record.TypeRegular},
		{"leading comma dropped", ",bad", "x", false, "", ""},
		{"leading space dropped", " name", "x", false, "", ""},
		{"leading dot dropped", ".hidden", "x", false, "", ""},
		{"two colons is regular", "addr:street:name", "x", true, "addr:street:name", record.TypeRegular},
		{"colon and space is regular", "addr:street name", "x", true, "addr:street name", record.TypeRegular},
		{"digit prefix is regular", "3d:height", "x", true, "3d:height", record.TypeRegular},
		{"empty suffix", "addr:", "x", true, "", "addr"},
		{"empty prefix", ":city", "x", true, "city", ""},
		{"bare colon", ":", "x", true, "", ""},
		{"empty value kept", "note", "", true, "note", record.TypeRegular},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tag, ok := Classify(tt.key, tt.value, "42")
			if ok != tt.wantOK {
				t.Fatalf("Classify(%q) ok = %v, want %v", tt.key, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if tag.Key != tt.wantKey || tag.Type != tt.wantType {
				t.Errorf("Classify(%q) = key %q type %q, want key %q type %q",
					tt.key, tag.Key, tag.Type, tt.wantKey, tt.wantType)
			}
			if tag.ID != "42" {
				t.Errorf("expected owner id 42, got %q", tag.ID)
			}
			if tag.Value != tt.value {
				t.Errorf("expected value %q, got %q", tt.value, tag.Value)
			}
		})
	}
}

func TestClassifyNamespaceBeatsProblemChars(t *testing.T) {
	// Namespaced keys never reach the problem-character check, whatever the
	// policy
	c := NewClassifier(PolicyAnywhere)
	tag, ok := c.Classify("addr:city", "Springfield", "1")
	if !ok {
		t.Fatal("expected namespaced key to be accepted")
	}
	if tag.Type != "addr" || tag.Key != "city" {
		t.Errorf("unexpected tag %+v", tag)
	}
}

func TestClassifyAnywherePolicy(t *testing.T) {
	c := NewClassifier(PolicyAnywhere)

	rejected := []string{"ab,c", "name en", "a=b", "x\ty", ",bad", "addr:street name"}
	for _, key := range rejected {
		if _, ok := c.Classify(key, "v", "1"); ok {
			t.Errorf("expected %q to be rejected", key)
		}
	}

	accepted := []string{"source", "addr:city", "name_en", "addr:street:name", "3d:height"}
	for _, key := range accepted {
		if _, ok := c.Classify(key, "v", "1"); !ok {
			t.Errorf("expected %q to be accepted", key)
		}
	}
}

func TestEveryProblemCharacterRejectsWhenLeading(t *testing.T) {
	for _, ch := range "=+&<>;'\"?%#$@,. \t\r\n" {
		key := string(ch) + "key"
		if _, ok := Classify(key, "v", "1"); ok {
			t.Errorf("expected key with leading %q to be rejected", ch)
		}
	}
}

func TestParsePolicy(t *testing.T) {
	tests := []struct {
		in      string
		want    ProblemPolicy
		wantErr bool
	}{
		{"", PolicyLeading, false},
		{"leading", PolicyLeading, false},
		{"Anywhere", PolicyAnywhere, false},
		{"somewhere", PolicyLeading, true},
	}
	for _, tt := range tests {
		got, err := ParsePolicy(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePolicy(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParsePolicy(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
