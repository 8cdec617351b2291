// =============================================================================
// Tabular Loader - Mapping Loader
// =============================================================================
//
// This module loads the mapping document: a YAML or JSON file that maps each
// input file name to its column mapping.
//
// DOCUMENT SHAPE:
//   customers.csv:
//     data_source: crm          # optional, default "unknown"
//     columns:                  # required: source column -> record field
//       cust_id: Id
//       email_addr: Email
//     attributes:               # optional: source column -> attribute key
//       loyalty_tier: Tier
//
// Entries are kept as raw YAML nodes. The validator decides whether an entry
// is usable, so a malformed entry only fails its own file, never the load.
// Document order and key order inside each entry are preserved.
//
// =============================================================================

package mapping

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// =============================================================================
// FORMATS
// =============================================================================

// Format identifies the encoding of a mapping document.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

// FormatFromPath picks the format from the file suffix (case-insensitive).
func FormatFromPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	}
	return "", &ConfigFormatError{Path: path}
}

// ParseFormat accepts an explicit format hint such as "yaml", "yml" or "json".
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "yaml", "yml":
		return FormatYAML, nil
	case "json":
		return FormatJSON, nil
	}
	return "", &ConfigFormatError{Path: name}
}

// =============================================================================
// ERRORS
// =============================================================================

// ConfigFormatError reports a mapping document that is neither YAML nor JSON.
type ConfigFormatError struct {
	Path string
}

func (e *ConfigFormatError) Error() string {
	return fmt.Sprintf("error loading mapping file: mapping file must be either YAML or JSON: %s", e.Path)
}

// ConfigParseError reports a mapping document that could not be read or parsed.
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	return fmt.Sprintf("error loading mapping file: %v", e.Err)
}

func (e *ConfigParseError) Unwrap() error {
	return e.Err
}

// =============================================================================
// DOCUMENT
// =============================================================================

// Document is a loaded mapping document. It is immutable after loading.
type Document struct {
	names   []string
	entries map[string]*yaml.Node
}

// Names returns the file names in document order.
func (d *Document) Names() []string {
	out := make([]string, len(d.names))
	copy(out, d.names)
	return out
}

// Len returns the number of entries.
func (d *Document) Len() int {
	return len(d.names)
}

// Lookup returns the raw entry for a file name. File names match exactly.
func (d *Document) Lookup(filename string) (*yaml.Node, bool) {
	n, ok := d.entries[filename]
	return n, ok
}

// Validate reports whether the document holds a well-shaped entry for
// filename. A missing entry is not valid.
func (d *Document) Validate(filename string) bool {
	n, ok := d.entries[filename]
	return ok && Validate(n)
}

// =============================================================================
// LOADING FUNCTIONS
// =============================================================================

// Load reads a mapping document, choosing the format from the file suffix.
//
// RETURNS:
//   - The loaded Document.
//   - *ConfigFormatError when the suffix is not .yaml, .yml or .json.
//   - *ConfigParseError when the file cannot be read or parsed.
func Load(path string) (*Document, error) {
	format, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}
	return LoadFormat(path, format)
}

// LoadFormat reads a mapping document in an explicitly chosen format.
func LoadFormat(path string, format Format) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigParseError{Path: path, Err: err}
	}

	doc, err := Parse(data, format)
	if err != nil {
		if pe, ok := err.(*ConfigParseError); ok {
			pe.Path = path
		}
		return nil, err
	}
	return doc, nil
}

// Parse decodes a mapping document from memory.
func Parse(data []byte, format Format) (*Document, error) {
	var root *yaml.Node
	switch format {
	case FormatJSON:
		n, err := parseJSONNode(data)
		if err != nil {
			return nil, &ConfigParseError{Err: err}
		}
		root = n
	case FormatYAML:
		root = &yaml.Node{}
		if err := yaml.Unmarshal(data, root); err != nil {
			return nil, &ConfigParseError{Err: err}
		}
	default:
		return nil, &ConfigFormatError{Path: string(format)}
	}

	top := resolve(root)
	if top == nil {
		return nil, &ConfigParseError{Err: fmt.Errorf("mapping document is empty")}
	}
	if top.Kind != yaml.MappingNode {
		return nil, &ConfigParseError{
			Err: fmt.Errorf("line %d: top level must map file names to mappings, got %s", top.Line, kindName(top)),
		}
	}

	doc := &Document{entries: make(map[string]*yaml.Node)}
	for _, p := range mappingPairs(top) {
		name, ok := scalarText(p.key)
		if !ok {
			return nil, &ConfigParseError{
				Err: fmt.Errorf("line %d: file name must be a string, got %s", p.key.Line, kindName(p.key)),
			}
		}
		doc.names = append(doc.names, name)
		doc.entries[name] = p.value
	}
	return doc, nil
}
