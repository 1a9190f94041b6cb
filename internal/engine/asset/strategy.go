package asset

// Path tags which instantiation strategy was taken for a placement. The
// chain is evaluated in order until one applies, so tests can assert the
// exact path.
type Path uint8

const (
	PathPlaceholder Path = iota
	PathInstancedFromMesh
	PathInstancedFromHierarchy
	PathCloned
)

func (p Path) String() string {
	switch p {
	case PathInstancedFromMesh:
		return "INSTANCED_FROM_MESH"
	case PathInstancedFromHierarchy:
		return "INSTANCED_FROM_HIERARCHY"
	case PathCloned:
		return "CLONED"
	default:
		return "PLACEHOLDER"
	}
}

// ChoosePath walks the ordered strategy list for a template:
// shared mesh → hierarchy instancing → clone → placeholder.
func ChoosePath(t *Template) Path {
	if t == nil || t.State() != StateReady || t.Doc() == nil {
		return PathPlaceholder
	}
	doc := t.Doc()
	if doc.Mesh != "" && !doc.UniqueMaterials {
		return PathInstancedFromMesh
	}
	if doc.Instancing && !doc.UniqueMaterials {
		return PathInstancedFromHierarchy
	}
	return PathCloned
}
