package future

import (
	"fmt"
	"strings"

	"github.com/mdflow/mdflow/internal/errdefs"
	"github.com/zclconf/go-cty/cty"
)

// OwnerKind identifies the kind of producer a Reference points at.
type OwnerKind int

const (
	// OwnerNode references the output object of a task node.
	OwnerNode OwnerKind = iota
	// OwnerVariable references a subgraph variable slot at a specific
	// substep.
	OwnerVariable
)

// AccessKind distinguishes the two access steps a path may contain.
type AccessKind int

const (
	// AccessAttr reads a named attribute of an object value.
	AccessAttr AccessKind = iota
	// AccessIndex reads an element of a list or tuple value.
	AccessIndex
)

// Access is one step in a reference path: either an attribute name or an
// integer index.
type Access struct {
	Kind  AccessKind
	Attr  string
	Index int
}

// Reference is a lazy path expression naming a value inside the data-flow
// graph. It holds no live pointer to its producer; owners are identified
// by key so that a frozen step log can be replayed into any number of
// independent scopes.
//
// References are built eagerly but resolved only when a loop is compiled
// or executed, so a Reference may be constructed before its producer
// exists.
type Reference struct {
	Kind OwnerKind
	// Key names the producing node or variable.
	Key string
	// Substep is the write-version of a variable slot this reference was
	// taken at. It is zero for node references.
	Substep int
	// Path is the access chain applied to the producer's value.
	Path []Access
}

// NodeOutput builds a reference to a task node's output object, applying
// the given attribute path.
func NodeOutput(key string, path ...string) Reference {
	accesses := make([]Access, 0, len(path))
	for _, attr := range path {
		accesses = append(accesses, Access{Kind: AccessAttr, Attr: attr})
	}
	return Reference{Kind: OwnerNode, Key: key, Path: accesses}
}

// VariableAt builds a reference to a variable slot at the given substep.
func VariableAt(key string, substep int) Reference {
	return Reference{Kind: OwnerVariable, Key: key, Substep: substep}
}

// Attr returns a copy of the reference with an attribute access appended.
// The receiver is not modified.
func (r Reference) Attr(name string) Reference {
	return r.extend(Access{Kind: AccessAttr, Attr: name})
}

// Index returns a copy of the reference with an index access appended.
// The receiver is not modified.
func (r Reference) Index(i int) Reference {
	return r.extend(Access{Kind: AccessIndex, Index: i})
}

func (r Reference) extend(step Access) Reference {
	path := make([]Access, len(r.Path), len(r.Path)+1)
	copy(path, r.Path)
	r.Path = append(path, step)
	return r
}

// String renders the reference in the notation used by the HCL front end,
// e.g. "step.md.output.checkpoint" or "var.checkpoint@2".
func (r Reference) String() string {
	var sb strings.Builder
	switch r.Kind {
	case OwnerNode:
		fmt.Fprintf(&sb, "step.%s", r.Key)
	case OwnerVariable:
		fmt.Fprintf(&sb, "var.%s@%d", r.Key, r.Substep)
	}
	for _, step := range r.Path {
		if step.Kind == AccessAttr {
			fmt.Fprintf(&sb, ".%s", step.Attr)
		} else {
			fmt.Fprintf(&sb, "[%d]", step.Index)
		}
	}
	return sb.String()
}

// Apply walks an access path against a concrete value. It is the
// interpreter half of the Reference design: chains are assembled
// symbolically during declaration and only flattened into real attribute
// and index operations here, at translation time.
func Apply(val cty.Value, path []Access) (cty.Value, error) {
	for _, step := range path {
		switch step.Kind {
		case AccessAttr:
			ty := val.Type()
			if !ty.IsObjectType() {
				return cty.NilVal, errdefs.Resolutionf(
					"cannot read attribute %q from non-object value of type %s", step.Attr, ty.FriendlyName())
			}
			if _, ok := ty.AttributeTypes()[step.Attr]; !ok {
				return cty.NilVal, errdefs.Resolutionf(
					"value of type %s has no attribute %q", ty.FriendlyName(), step.Attr)
			}
			val = val.GetAttr(step.Attr)
		case AccessIndex:
			ty := val.Type()
			if !ty.IsListType() && !ty.IsTupleType() {
				return cty.NilVal, errdefs.Resolutionf(
					"cannot index into non-sequence value of type %s", ty.FriendlyName())
			}
			if step.Index < 0 || step.Index >= val.LengthInt() {
				return cty.NilVal, errdefs.Resolutionf(
					"index %d out of range for sequence of length %d", step.Index, val.LengthInt())
			}
			val = val.Index(cty.NumberIntVal(int64(step.Index)))
		}
	}
	return val, nil
}
