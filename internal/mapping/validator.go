package mapping

import "gopkg.in/yaml.v3"

// Validate reports whether a mapping entry has the shape the loader needs:
//   - the entry is a mapping
//   - it has a "columns" key whose value is a mapping
//   - if it has an "attributes" key, that value is a mapping
//
// It never panics, whatever the node holds. It does not check that
// "columns" is non-empty or that target names are known record fields.
func Validate(entry *yaml.Node) bool {
	if !isMapping(entry) {
		return false
	}

	columns, ok := field(entry, "columns")
	if !ok || !isMapping(columns) {
		return false
	}

	if attrs, ok := field(entry, "attributes"); ok && !isMapping(attrs) {
		return false
	}
	return true
}
