package scenedesc

import (
	"fmt"

	"github.com/lumenray/lumenray/internal/rlog"
	"github.com/lumenray/lumenray/vecmath"
)

func (n *Node) errorf(format string, args ...any) error {
	return &SourceError{Location: n.Location, Message: fmt.Sprintf(format, args...)}
}

func (n *Node) warnf(format string, args ...any) {
	rlog.Get().Warn(fmt.Sprintf(format, args...))
}

func (n *Node) lookup(name string, kind Kind, kindName string) (Value, error) {
	v, ok := n.properties[name]
	if !ok {
		return Value{}, n.errorf("property '%s' is not defined in scene description node '%s'", name, n.Identifier)
	}
	if v.Kind != kind {
		return Value{}, n.errorf("property '%s' is not a %s list in scene description node '%s'", name, kindName, n.Identifier)
	}
	return v, nil
}

// requireNumbers fetches a number-list property and validates it has
// at least count entries, warning (not erroring) and discarding the
// tail if it has more, matching
// LUISA_SCENE_DESC_NODE_PROPERTY_IMPL_SCALAR_OR_VECTOR.
func (n *Node) requireNumbers(name string, count int) ([]float64, error) {
	v, err := n.lookup(name, KindNumber, "number")
	if err != nil {
		return nil, err
	}
	size := len(v.Numbers)
	if size < count {
		return nil, n.errorf(
			"property '%s' in scene description node '%s' has %d value(s), but is required to provide %d value(s)",
			name, n.Identifier, size, count)
	}
	if size > count {
		n.warnf(
			"property '%s' in scene description node '%s' has %d values but is required to provide only %d value(s); remaining values will be discarded",
			name, n.Identifier, size, count)
	}
	return v.Numbers[:count], nil
}

// Float returns a required single-value number property.
func (n *Node) Float(name string) (float64, error) {
	v, err := n.requireNumbers(name, 1)
	if err != nil {
		return 0, err
	}
	return v[0], nil
}

// FloatOrDefault returns a single-value number property, or def if
// the property is missing, of the wrong kind, or empty.
func (n *Node) FloatOrDefault(name string, def float64) float64 {
	v, err := n.requireNumbers(name, 1)
	if err != nil {
		return def
	}
	return v[0]
}

func vec2(v []float64) vecmath.Vec2 { return vecmath.V2(v[0], v[1]) }
func vec3(v []float64) vecmath.Vec3 { return vecmath.V3(v[0], v[1], v[2]) }
func vec4(v []float64) vecmath.Vec4 { return vecmath.V4(v[0], v[1], v[2], v[3]) }

// Float2/Float3/Float4 return a required fixed-width vector property.
func (n *Node) Float2(name string) (vecmath.Vec2, error) {
	v, err := n.requireNumbers(name, 2)
	if err != nil {
		return vecmath.Vec2{}, err
	}
	return vec2(v), nil
}

func (n *Node) Float3(name string) (vecmath.Vec3, error) {
	v, err := n.requireNumbers(name, 3)
	if err != nil {
		return vecmath.Vec3{}, err
	}
	return vec3(v), nil
}

func (n *Node) Float4(name string) (vecmath.Vec4, error) {
	v, err := n.requireNumbers(name, 4)
	if err != nil {
		return vecmath.Vec4{}, err
	}
	return vec4(v), nil
}

func (n *Node) Float2OrDefault(name string, def vecmath.Vec2) vecmath.Vec2 {
	v, err := n.requireNumbers(name, 2)
	if err != nil {
		return def
	}
	return vec2(v)
}

func (n *Node) Float3OrDefault(name string, def vecmath.Vec3) vecmath.Vec3 {
	v, err := n.requireNumbers(name, 3)
	if err != nil {
		return def
	}
	return vec3(v)
}

func (n *Node) Float4OrDefault(name string, def vecmath.Vec4) vecmath.Vec4 {
	v, err := n.requireNumbers(name, 4)
	if err != nil {
		return def
	}
	return vec4(v)
}

// Int returns a required single-value number property truncated to
// int, warning (not erroring) on precision loss — spec §4.I's
// "coerce scalars ... with a precision-loss warning".
func (n *Node) Int(name string) (int, error) {
	v, err := n.requireNumbers(name, 1)
	if err != nil {
		return 0, err
	}
	return n.toInt(name, v[0]), nil
}

func (n *Node) IntOrDefault(name string, def int) int {
	v, err := n.requireNumbers(name, 1)
	if err != nil {
		return def
	}
	return n.toInt(name, v[0])
}

func (n *Node) toInt(name string, raw float64) int {
	value := int(raw)
	if float64(value) != raw {
		n.warnf("conversion from property '%s' (value = %v) to int in scene description node '%s' loses precision", name, raw, n.Identifier)
	}
	return value
}

// Bool returns a required single-value bool property.
func (n *Node) Bool(name string) (bool, error) {
	v, err := n.lookup(name, KindBool, "bool")
	if err != nil {
		return false, err
	}
	if len(v.Bools) < 1 {
		return false, n.errorf("property '%s' in scene description node '%s' has 0 values, but is required to provide 1 value", name, n.Identifier)
	}
	if len(v.Bools) > 1 {
		n.warnf("property '%s' in scene description node '%s' has %d values but is required to provide only 1 value; remaining values will be discarded", name, n.Identifier, len(v.Bools))
	}
	return v.Bools[0], nil
}

func (n *Node) BoolOrDefault(name string, def bool) bool {
	v, err := n.Bool(name)
	if err != nil {
		return def
	}
	return v
}

// String returns a required single-value string property.
func (n *Node) String(name string) (string, error) {
	v, err := n.lookup(name, KindString, "string")
	if err != nil {
		return "", err
	}
	if len(v.Strings) < 1 {
		return "", n.errorf("property '%s' in scene description node '%s' has 0 values, but is required to provide 1 value", name, n.Identifier)
	}
	return v.Strings[0], nil
}

func (n *Node) StringOrDefault(name string, def string) string {
	v, err := n.String(name)
	if err != nil {
		return def
	}
	return v
}

// Path returns a required single-value filesystem-path property.
func (n *Node) Path(name string) (string, error) {
	v, err := n.lookup(name, KindPath, "path")
	if err != nil {
		return "", err
	}
	if len(v.Paths) < 1 {
		return "", n.errorf("property '%s' in scene description node '%s' has 0 values, but is required to provide 1 value", name, n.Identifier)
	}
	return v.Paths[0], nil
}

func (n *Node) PathOrDefault(name string, def string) string {
	v, err := n.Path(name)
	if err != nil {
		return def
	}
	return v
}

// Node returns a required single-value node-reference property.
func (n *Node) Node(name string) (*Node, error) {
	v, err := n.lookup(name, KindNode, "node")
	if err != nil {
		return nil, err
	}
	if len(v.Nodes) < 1 {
		return nil, n.errorf("property '%s' in scene description node '%s' has 0 values, but is required to provide 1 value", name, n.Identifier)
	}
	return v.Nodes[0], nil
}

func (n *Node) NodeOrDefault(name string, def *Node) *Node {
	v, err := n.Node(name)
	if err != nil {
		return def
	}
	return v
}

// NumberList/BoolList/StringList/PathList/NodeList return an entire
// list property with no count requirement, matching the original's
// `_list` accessors.
func (n *Node) NumberList(name string) ([]float64, error) {
	v, err := n.lookup(name, KindNumber, "number")
	if err != nil {
		return nil, err
	}
	return v.Numbers, nil
}

func (n *Node) NumberListOrDefault(name string, def []float64) []float64 {
	v, err := n.NumberList(name)
	if err != nil {
		return def
	}
	return v
}

func (n *Node) IntList(name string) ([]int, error) {
	nums, err := n.NumberList(name)
	if err != nil {
		return nil, err
	}
	out := make([]int, len(nums))
	for i, raw := range nums {
		out[i] = n.toInt(name, raw)
	}
	return out, nil
}

func (n *Node) BoolList(name string) ([]bool, error) {
	v, err := n.lookup(name, KindBool, "bool")
	if err != nil {
		return nil, err
	}
	return v.Bools, nil
}

func (n *Node) StringList(name string) ([]string, error) {
	v, err := n.lookup(name, KindString, "string")
	if err != nil {
		return nil, err
	}
	return v.Strings, nil
}

func (n *Node) PathList(name string) ([]string, error) {
	v, err := n.lookup(name, KindPath, "path")
	if err != nil {
		return nil, err
	}
	return v.Paths, nil
}

func (n *Node) NodeList(name string) ([]*Node, error) {
	v, err := n.lookup(name, KindNode, "node")
	if err != nil {
		return nil, err
	}
	return v.Nodes, nil
}
