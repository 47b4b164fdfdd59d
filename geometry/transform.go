package geometry

import "github.com/lumenray/lumenray/vecmath"

// TransformNode is an internal node of the transform tree (spec §3):
// a possibly time-varying local transform, composed with its parent's
// accumulated transform when a leaf is recorded.
type TransformNode struct {
	Static   vecmath.Mat4
	Animated func(time float64) vecmath.Mat4
}

func (n TransformNode) IsStatic() bool { return n.Animated == nil }

func (n TransformNode) matrixAt(time float64) vecmath.Mat4 {
	if n.Animated != nil {
		return n.Animated(time)
	}
	return n.Static
}

// StaticTransform wraps a constant matrix as a TransformNode.
func StaticTransform(m vecmath.Mat4) TransformNode { return TransformNode{Static: m} }

// AnimatedTransform wraps a time-varying matrix function as a
// TransformNode.
func AnimatedTransform(f func(time float64) vecmath.Mat4) TransformNode {
	return TransformNode{Animated: f}
}

// InstancedTransform records a leaf's composed static-or-animated matrix
// together with the accel instance id it belongs to, so dynamic instances
// can be revisited on every shutter update without re-walking the tree.
type InstancedTransform struct {
	InstanceID int
	compose    func(time float64) vecmath.Mat4
	isStatic   bool
	staticM    vecmath.Mat4
}

func (t InstancedTransform) Matrix(time float64) vecmath.Mat4 {
	if t.isStatic {
		return t.staticM
	}
	return t.compose(time)
}

func (t InstancedTransform) IsStatic() bool { return t.isStatic }

// TransformTree accumulates a stack of (possibly-animated) node
// transforms while walking the scene graph, producing leaf instances
// whose matrix is the product of the stack. Non-static leaves are
// appended to a dynamic-transform list for per-frame re-evaluation.
type TransformTree struct {
	stack             []TransformNode
	dynamicTransforms []InstancedTransform
}

func NewTransformTree() *TransformTree { return &TransformTree{} }

// Push enters an internal node, appending it to the active composition
// stack.
func (t *TransformTree) Push(n TransformNode) { t.stack = append(t.stack, n) }

// Pop exits the most recently pushed internal node.
func (t *TransformTree) Pop() { t.stack = t.stack[:len(t.stack)-1] }

// Leaf records a leaf transform, composing it with the current stack, and
// returns the resulting InstancedTransform plus whether it is static.
// Non-static leaves are appended to the dynamic-transform list.
func (t *TransformTree) Leaf(n TransformNode, instanceID int) (InstancedTransform, bool) {
	stack := append([]TransformNode(nil), t.stack...)
	stack = append(stack, n)

	isStatic := true
	for _, s := range stack {
		if !s.IsStatic() {
			isStatic = false
			break
		}
	}

	var it InstancedTransform
	if isStatic {
		m := vecmath.Mat4Identity()
		for _, s := range stack {
			m = m.Mul(s.Static)
		}
		it = InstancedTransform{InstanceID: instanceID, isStatic: true, staticM: m}
	} else {
		compose := func(time float64) vecmath.Mat4 {
			m := vecmath.Mat4Identity()
			for _, s := range stack {
				m = m.Mul(s.matrixAt(time))
			}
			return m
		}
		it = InstancedTransform{InstanceID: instanceID, isStatic: false, compose: compose}
		t.dynamicTransforms = append(t.dynamicTransforms, it)
	}
	return it, isStatic
}

// DynamicTransforms returns the accumulated list of non-static leaf
// instances, re-evaluated every shutter update by Geometry.Update.
func (t *TransformTree) DynamicTransforms() []InstancedTransform { return t.dynamicTransforms }
