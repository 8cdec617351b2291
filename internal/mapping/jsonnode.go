package mapping

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// parseJSONNode decodes a JSON document into the same node tree the YAML
// decoder builds, keeping object key order. Strings are unescaped by
// encoding/json, so every JSON escape (\/, surrogate pairs) is accepted.
// Numbers keep their literal text.
func parseJSONNode(data []byte) (*yaml.Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	lines := newLineIndex(data)
	root := &yaml.Node{Kind: yaml.DocumentNode, Line: 1, Column: 1}

	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return root, nil
	}
	if err != nil {
		return nil, err
	}
	top, err := jsonValue(dec, tok, lines)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		if err == nil {
			err = fmt.Errorf("unexpected data after the top-level value")
		}
		return nil, err
	}

	root.Content = []*yaml.Node{top}
	return root, nil
}

// jsonValue builds the node for a value whose first token is tok.
func jsonValue(dec *json.Decoder, tok json.Token, lines lineIndex) (*yaml.Node, error) {
	line := lines.at(dec.InputOffset())

	switch v := tok.(type) {
	case json.Delim:
		switch v {
		case '{':
			n := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Line: line}
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := kt.(string)
				if !ok {
					return nil, fmt.Errorf("line %d: object key must be a string", lines.at(dec.InputOffset()))
				}
				k := &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: key, Line: lines.at(dec.InputOffset())}

				vt, err := dec.Token()
				if err != nil {
					return nil, err
				}
				val, err := jsonValue(dec, vt, lines)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, k, val)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		case '[':
			n := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq", Line: line}
			for dec.More() {
				it, err := dec.Token()
				if err != nil {
					return nil, err
				}
				item, err := jsonValue(dec, it, lines)
				if err != nil {
					return nil, err
				}
				n.Content = append(n.Content, item)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return n, nil
		}
		return nil, fmt.Errorf("line %d: unexpected %q", line, v.String())
	case string:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: v, Line: line}, nil
	case json.Number:
		tag := "!!int"
		if strings.ContainsAny(v.String(), ".eE") {
			tag = "!!float"
		}
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: tag, Value: v.String(), Line: line}, nil
	case bool:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!bool", Value: fmt.Sprint(v), Line: line}, nil
	case nil:
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null", Line: line}, nil
	}
	return nil, fmt.Errorf("line %d: unexpected token %v", line, tok)
}

// lineIndex holds the byte offsets of every newline in a document.
type lineIndex []int64

func newLineIndex(data []byte) lineIndex {
	var idx lineIndex
	for i, b := range data {
		if b == '\n' {
			idx = append(idx, int64(i))
		}
	}
	return idx
}

// at returns the 1-based line of the byte just before offset.
func (l lineIndex) at(offset int64) int {
	return sort.Search(len(l), func(i int) bool { return l[i] >= offset-1 }) + 1
}
