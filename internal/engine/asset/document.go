package asset

import (
	"encoding/json"
	"fmt"
)

// Sizing axis policies. Which dimension the normalization targets is an
// asset-authoring decision carried in the document.
const (
	AxisLargest = "largest"
	AxisHeight  = "height"
)

// Document is a template geometry hierarchy as delivered by the resolver.
// Immutable after load.
type Document struct {
	Name string `json:"name"`

	// Mesh names a single shared mesh; when set the whole template can be
	// drawn as one instanced mesh.
	Mesh string `json:"mesh,omitempty"`

	// Instancing marks the hierarchy as safe to instance node-by-node.
	Instancing bool `json:"instancing,omitempty"`

	// UniqueMaterials forces a full clone per placement (per-copy material
	// state, e.g. tint animation).
	UniqueMaterials bool `json:"unique_materials,omitempty"`

	Sizing Sizing `json:"sizing"`
	Root   Node   `json:"root"`
}

type Sizing struct {
	// Target is the desired normalized world-space size along Axis.
	Target float32 `json:"target"`
	Axis   string  `json:"axis,omitempty"` // "largest" (default) or "height"
}

// Node is one element of the geometry hierarchy. Dims are local extents,
// Offset is relative to the parent.
type Node struct {
	Name     string     `json:"name"`
	Dims     [3]float32 `json:"dims"`
	Offset   [3]float32 `json:"offset,omitempty"`
	Children []Node     `json:"children,omitempty"`
}

// Bounds is the derived size of a template: the union AABB extents of its
// hierarchy. Computed once per template on first successful resolution.
type Bounds struct {
	Size [3]float32
}

func (b Bounds) Largest() float32 {
	m := b.Size[0]
	if b.Size[1] > m {
		m = b.Size[1]
	}
	if b.Size[2] > m {
		m = b.Size[2]
	}
	return m
}

func (b Bounds) Height() float32 { return b.Size[1] }

// Along picks the extent for a sizing axis.
func (b Bounds) Along(axis string) float32 {
	if axis == AxisHeight {
		return b.Height()
	}
	return b.Largest()
}

// DecodeDocument parses and sanity-checks a template document.
func DecodeDocument(raw []byte) (*Document, error) {
	var d Document
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("template document: %w", err)
	}
	if d.Name == "" {
		return nil, fmt.Errorf("template document: missing name")
	}
	if d.Sizing.Target < 0 {
		return nil, fmt.Errorf("template %s: negative sizing target", d.Name)
	}
	switch d.Sizing.Axis {
	case "", AxisLargest, AxisHeight:
	default:
		return nil, fmt.Errorf("template %s: unknown sizing axis %q", d.Name, d.Sizing.Axis)
	}
	return &d, nil
}

// Marshal renders the document back to canonical JSON (used by the local
// cache write-back).
func (d *Document) Marshal() ([]byte, error) {
	return json.Marshal(d)
}

// ComputeBounds walks the hierarchy once and returns the union AABB extents.
func ComputeBounds(doc *Document) Bounds {
	var min, max [3]float32
	first := true
	walk(&doc.Root, [3]float32{}, func(center, dims [3]float32) {
		for i := 0; i < 3; i++ {
			lo := center[i] - dims[i]/2
			hi := center[i] + dims[i]/2
			if first {
				min[i], max[i] = lo, hi
				continue
			}
			if lo < min[i] {
				min[i] = lo
			}
			if hi > max[i] {
				max[i] = hi
			}
		}
		first = false
	})
	if first {
		return Bounds{}
	}
	return Bounds{Size: [3]float32{max[0] - min[0], max[1] - min[1], max[2] - min[2]}}
}

func walk(n *Node, parent [3]float32, visit func(center, dims [3]float32)) {
	center := [3]float32{
		parent[0] + n.Offset[0],
		parent[1] + n.Offset[1],
		parent[2] + n.Offset[2],
	}
	visit(center, n.Dims)
	for i := range n.Children {
		walk(&n.Children[i], center, visit)
	}
}
