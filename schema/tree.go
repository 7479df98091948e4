package schema

import "strings"

// Group is one composite section of a request. The root group has an empty
// Name and Path and stands for the request itself.
type Group struct {
	Name   string   // Last path segment
	Path   string   // Full dotted path
	Fields []Field  // Leaf fields directly inside the group
	Groups []*Group // Nested groups, in declaration order
}

// Tree arranges the operation's fields into their composite groups. Groups
// appear in the order they are first referenced by a field or by
// Operation.Groups, so the tree is deterministic for a given descriptor.
func (o *Operation) Tree() *Group {
	root := &Group{}
	index := map[string]*Group{"": root}

	var ensure func(path string) *Group
	ensure = func(path string) *Group {
		if g, ok := index[path]; ok {
			return g
		}
		parent := ensure(parentOf(path))
		name := path
		if i := strings.LastIndexByte(path, '.'); i >= 0 {
			name = path[i+1:]
		}
		g := &Group{Name: name, Path: path}
		parent.Groups = append(parent.Groups, g)
		index[path] = g
		return g
	}

	for _, f := range o.Fields {
		g := ensure(f.Parent())
		g.Fields = append(g.Fields, f)
	}
	for _, p := range o.Groups {
		ensure(p)
	}

	return root
}

// LeafCount returns the number of fields declared in the group and all groups
// below it.
func (g *Group) LeafCount() int {
	n := len(g.Fields)
	for _, c := range g.Groups {
		n += c.LeafCount()
	}
	return n
}
