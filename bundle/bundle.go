// Package bundle parses FHIR R4 Bundle documents.
//
// Parsing fails with a *miiquality.ParseError when the input is not a
// single well-formed JSON value, and with a *miiquality.StructureError when
// that value is not a Bundle object with at least one resource entry. Everything else is
// tolerated and preserved.
package bundle

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	mq "github.com/gofhir/miiquality"
	"github.com/gofhir/miiquality/fieldpath"
	"github.com/gofhir/miiquality/pkg/location"
)

// Bundle is a parsed FHIR Bundle.
type Bundle struct {
	// Source is the file path or label the bundle was read from
	Source string

	// Type is Bundle.type, empty if absent
	Type string

	// ID is Bundle.id, empty if absent
	ID string

	// Entries in document order
	Entries []Entry
}

// Len returns the number of entries.
func (b *Bundle) Len() int {
	return len(b.Entries)
}

// ResourceTypes counts entries per resourceType.
func (b *Bundle) ResourceTypes() map[string]int {
	counts := make(map[string]int)
	for i := range b.Entries {
		counts[b.Entries[i].Resource.Type]++
	}
	return counts
}

// TypeNames returns the distinct resourceTypes, sorted.
func (b *Bundle) TypeNames() []string {
	counts := b.ResourceTypes()
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Parse parses a Bundle from a byte slice. Syntax errors carry the line
// and column of the offending byte.
func Parse(data []byte, source string) (*Bundle, error) {
	b, err := Decode(bytes.NewReader(data), source)
	var pe *mq.ParseError
	if errors.As(err, &pe) && pe.Offset > 0 {
		loc := location.FromOffset(data, pe.Offset)
		pe.Line, pe.Column = loc.Line, loc.Column
	}
	return b, err
}

// ParseFile reads and parses the Bundle stored at path.
// I/O failures are returned wrapped, not as *miiquality.ParseError.
func ParseFile(path string) (*Bundle, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path is supplied by the caller
	if err != nil {
		return nil, fmt.Errorf("failed to open bundle: %w", err)
	}
	return Parse(data, path)
}

// Decode parses a Bundle from r. The reader must contain exactly one JSON
// value.
func Decode(r io.Reader, source string) (*Bundle, error) {
	decoder := json.NewDecoder(r)
	decoder.UseNumber()

	var doc any
	if err := decoder.Decode(&doc); err != nil {
		return nil, parseError(source, err, decoder)
	}

	// Anything but whitespace after the document is an error
	if _, err := decoder.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = errors.New("unexpected data after top-level value")
		}
		return nil, &mq.ParseError{Source: source, Offset: decoder.InputOffset(), Err: err}
	}

	// well-formed, but not the shape of a resource
	root, ok := doc.(map[string]any)
	if !ok {
		return nil, &mq.StructureError{
			Source: source,
			Reason: fmt.Sprintf("top-level value is %s, expected object", fieldpath.TypeName(doc)),
		}
	}

	return fromObject(root, source)
}

func parseError(source string, err error, decoder *json.Decoder) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &mq.ParseError{Source: source, Offset: syntaxErr.Offset, Err: err}
	}
	if errors.Is(err, io.EOF) {
		return &mq.ParseError{Source: source, Err: errors.New("empty document")}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return &mq.ParseError{Source: source, Offset: decoder.InputOffset(), Err: err}
	}
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return fmt.Errorf("failed to read bundle: %w", err)
	}
	return &mq.ParseError{Source: source, Err: err}
}

func fromObject(root map[string]any, source string) (*Bundle, error) {
	structural := func(format string, args ...any) error {
		return &mq.StructureError{Source: source, Reason: fmt.Sprintf(format, args...)}
	}

	rt, ok := root["resourceType"].(string)
	if !ok {
		return nil, structural("resourceType is missing")
	}
	if rt != "Bundle" {
		return nil, structural("resourceType is %q, expected \"Bundle\"", rt)
	}

	b := &Bundle{Source: source}
	var err error
	if b.Type, err = fieldpath.String(root, "type"); err != nil {
		return nil, structural("%v", err)
	}
	if b.ID, err = fieldpath.String(root, "id"); err != nil {
		return nil, structural("%v", err)
	}

	rawEntries, present := root["entry"]
	if !present || rawEntries == nil {
		return nil, structural("entry is missing")
	}
	entries, ok := rawEntries.([]any)
	if !ok {
		return nil, structural("entry is %s, expected array", fieldpath.TypeName(rawEntries))
	}
	if len(entries) == 0 {
		return nil, structural("entry is empty")
	}

	b.Entries = make([]Entry, 0, len(entries))
	for i, raw := range entries {
		entry, err := parseEntry(i, raw)
		if err != nil {
			return nil, structural("%s: %v", fieldpath.Index("entry", i), err)
		}
		b.Entries = append(b.Entries, entry)
	}

	return b, nil
}

func parseEntry(index int, raw any) (Entry, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return Entry{}, fmt.Errorf("entry is %s, expected object", fieldpath.TypeName(raw))
	}

	fullURL, err := fieldpath.String(obj, "fullUrl")
	if err != nil {
		return Entry{}, err
	}

	rawResource, present := obj["resource"]
	if !present || rawResource == nil {
		return Entry{}, errors.New("resource is missing")
	}
	fields, ok := rawResource.(map[string]any)
	if !ok {
		return Entry{}, fmt.Errorf("resource is %s, expected object", fieldpath.TypeName(rawResource))
	}

	resourceType, ok := fields["resourceType"].(string)
	if !ok || resourceType == "" {
		return Entry{}, errors.New("resource has no resourceType")
	}

	// A non-string id or profile is left to the rules; it does not make the
	// bundle unprocessable.
	id, _ := fields["id"].(string)

	var profiles []string
	for _, p := range fieldpath.Get(fields, "meta.profile") {
		if s, ok := p.(string); ok {
			profiles = append(profiles, s)
		}
	}

	return Entry{
		Index:   index,
		FullURL: fullURL,
		Resource: &Resource{
			Kind:     KindOf(resourceType),
			Type:     resourceType,
			ID:       id,
			Profiles: profiles,
			Fields:   fields,
		},
	}, nil
}
