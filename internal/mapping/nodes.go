package mapping

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// maxAliasDepth bounds alias chains so a cyclic document cannot loop forever.
const maxAliasDepth = 32

type pair struct {
	key   *yaml.Node
	value *yaml.Node
}

// resolve follows aliases and unwraps document nodes.
// It returns nil for an empty or cyclic node.
func resolve(n *yaml.Node) *yaml.Node {
	for i := 0; n != nil && i < maxAliasDepth; i++ {
		switch n.Kind {
		case yaml.AliasNode:
			n = n.Alias
		case yaml.DocumentNode:
			if len(n.Content) == 0 {
				return nil
			}
			n = n.Content[0]
		case 0:
			return nil
		default:
			return n
		}
	}
	return nil
}

func isMapping(n *yaml.Node) bool {
	n = resolve(n)
	return n != nil && n.Kind == yaml.MappingNode
}

func isNull(n *yaml.Node) bool {
	n = resolve(n)
	return n == nil || (n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null")
}

// scalarText returns the text of a non-null scalar.
func scalarText(n *yaml.Node) (string, bool) {
	n = resolve(n)
	if n == nil || n.Kind != yaml.ScalarNode || n.ShortTag() == "!!null" {
		return "", false
	}
	return n.Value, true
}

// mappingPairs lists the key/value pairs of a mapping node in document order.
//
// Merge keys ("<<") are expanded: merged keys come first, an explicit key
// overrides a merged one in place, and among several merged mappings the
// earlier one wins. A repeated explicit key keeps its first position and its
// last value.
func mappingPairs(n *yaml.Node) []pair {
	return mappingPairsDepth(n, 0)
}

func mappingPairsDepth(n *yaml.Node, depth int) []pair {
	n = resolve(n)
	if n == nil || n.Kind != yaml.MappingNode || depth > maxAliasDepth {
		return nil
	}

	var out []pair
	pos := make(map[string]int)
	put := func(p pair, override bool) {
		k := pairKey(p.key)
		if i, seen := pos[k]; seen {
			if override {
				out[i].value = p.value
			}
			return
		}
		pos[k] = len(out)
		out = append(out, p)
	}

	var explicit []pair
	for i := 0; i+1 < len(n.Content); i += 2 {
		k, v := n.Content[i], n.Content[i+1]
		rk := resolve(k)
		if rk != nil && rk.Kind == yaml.ScalarNode && rk.ShortTag() == "!!merge" {
			src := resolve(v)
			if src == nil {
				continue
			}
			switch src.Kind {
			case yaml.MappingNode:
				for _, mp := range mappingPairsDepth(src, depth+1) {
					put(mp, false)
				}
			case yaml.SequenceNode:
				for _, item := range src.Content {
					for _, mp := range mappingPairsDepth(item, depth+1) {
						put(mp, false)
					}
				}
			}
			continue
		}
		explicit = append(explicit, pair{key: k, value: v})
	}

	for _, p := range explicit {
		put(p, true)
	}
	return out
}

// pairKey gives a comparable identity for a mapping key.
func pairKey(k *yaml.Node) string {
	r := resolve(k)
	if r == nil {
		return "\x00nil"
	}
	if r.Kind == yaml.ScalarNode {
		return r.ShortTag() + "\x00" + r.Value
	}
	return fmt.Sprintf("\x00%p", r)
}

// field looks up a string key in a mapping node.
func field(n *yaml.Node, name string) (*yaml.Node, bool) {
	for _, p := range mappingPairs(n) {
		if k, ok := scalarText(p.key); ok && k == name {
			return p.value, true
		}
	}
	return nil, false
}

// materialize returns a copy of n with aliases and merge keys expanded, so
// the tree can be encoded on its own.
func materialize(n *yaml.Node) *yaml.Node {
	return materializeDepth(n, 0)
}

func materializeDepth(n *yaml.Node, depth int) *yaml.Node {
	r := resolve(n)
	if r == nil || depth > maxAliasDepth {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!null", Value: "null"}
	}

	switch r.Kind {
	case yaml.MappingNode:
		out := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map"}
		for _, p := range mappingPairs(r) {
			out.Content = append(out.Content,
				materializeDepth(p.key, depth+1),
				materializeDepth(p.value, depth+1))
		}
		return out
	case yaml.SequenceNode:
		out := &yaml.Node{Kind: yaml.SequenceNode, Tag: "!!seq"}
		for _, item := range r.Content {
			out.Content = append(out.Content, materializeDepth(item, depth+1))
		}
		return out
	default:
		return &yaml.Node{
			Kind:  yaml.ScalarNode,
			Tag:   r.ShortTag(),
			Value: r.Value,
			Style: r.Style &^ yaml.TaggedStyle,
		}
	}
}

func kindName(n *yaml.Node) string {
	r := resolve(n)
	if r == nil {
		return "nothing"
	}
	switch r.Kind {
	case yaml.MappingNode:
		return "a mapping"
	case yaml.SequenceNode:
		return "a list"
	case yaml.ScalarNode:
		if r.ShortTag() == "!!null" {
			return "null"
		}
		return fmt.Sprintf("scalar %q", r.Value)
	}
	return "unknown node"
}
