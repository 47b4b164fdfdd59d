package geometry

import "github.com/lumenray/lumenray/vecmath"

// Interaction describes a surface point fully, per spec §3: world
// position, geometric normal, shading frame, parametric UV, the hosting
// triangle's area, a back-pointer to the shape handle, and flags.
type Interaction struct {
	P       vecmath.Vec3
	Ng      vecmath.Vec3
	Shading vecmath.Frame
	UV      vecmath.Vec2
	Area    float64

	InstanceID int
	PrimID     int
	Shape      Handle

	BackFacing bool
	HasNormal  bool
	HasUV      bool
	NonOpaque  bool
}

// WoLocal transforms a world-space outgoing direction into the shading
// frame, as the original's Interaction::wo_local does.
func (it Interaction) WoLocal(wo vecmath.Vec3) vecmath.Vec3 {
	return it.Shading.WorldToLocal(wo)
}

// GeometryAttribute is the position/normal/area triple computed from a
// triangle's object-space geometry and its object-to-world transform,
// independent of any shading (vertex-normal/uv) interpolation.
type GeometryAttribute struct {
	P    vecmath.Vec3
	N    vecmath.Vec3
	Area float64
}

// ShadingAttribute extends GeometryAttribute with the interpolated
// shading normal, tangent basis, and UV, per Geometry::shading_point.
type ShadingAttribute struct {
	Geometry GeometryAttribute
	Ps       vecmath.Vec3
	Ns       vecmath.Vec3
	Dpdu     vecmath.Vec3
	Dpdv     vecmath.Vec3
	UV       vecmath.Vec2
}

func barycentricInterpolate3(bary vecmath.Vec3, v0, v1, v2 vecmath.Vec3) vecmath.Vec3 {
	return v0.Mul(bary.X).Add(v1.Mul(bary.Y)).Add(v2.Mul(bary.Z))
}

func barycentricInterpolate2(bary vecmath.Vec3, v0, v1, v2 vecmath.Vec2) vecmath.Vec2 {
	return vecmath.Vec2{
		X: bary.X*v0.X + bary.Y*v1.X + bary.Z*v2.X,
		Y: bary.X*v0.Y + bary.Y*v1.Y + bary.Z*v2.Y,
	}
}

// GeometryPoint computes the geometric (non-shading) position/normal/area
// of a triangle given barycentric coordinates and an object-to-world
// transform, ported from Geometry::geometry_point.
func GeometryPoint(mesh *Mesh, tri Triangle, bary vecmath.Vec3, objectToWorld vecmath.Mat4) GeometryAttribute {
	v0 := mesh.Vertices[tri.I0]
	v1 := mesh.Vertices[tri.I1]
	v2 := mesh.Vertices[tri.I2]
	p := objectToWorld.MulPoint(barycentricInterpolate3(bary, v0.Position, v1.Position, v2.Position))
	dp0 := objectToWorld.MulVector(v1.Position.Sub(v0.Position))
	dp1 := objectToWorld.MulVector(v2.Position.Sub(v0.Position))
	c := dp0.Cross(dp1)
	area := c.Length() * 0.5
	ng := c.Normalize()
	return GeometryAttribute{P: p, N: ng, Area: area}
}

// ShadingPoint computes the full shading attributes of a triangle hit,
// ported from Geometry::shading_point: dpdu/dpdv from the UV Jacobian
// (falling back to an arbitrary frame when the UV parameterization is
// degenerate), shading normal interpolated from vertex normals when
// present (falling back to the geometric normal), face-forwarded against
// the geometric normal.
func ShadingPoint(mesh *Mesh, tri Triangle, bary vecmath.Vec3, objectToWorld vecmath.Mat4, hasVertexNormal, hasVertexUV bool) ShadingAttribute {
	v0 := mesh.Vertices[tri.I0]
	v1 := mesh.Vertices[tri.I1]
	v2 := mesh.Vertices[tri.I2]

	nsLocal := barycentricInterpolate3(bary, v0.Normal, v1.Normal, v2.Normal)

	duv0 := v1.UV.Sub(v0.UV)
	duv1 := v2.UV.Sub(v0.UV)
	det := duv0.X*duv1.Y - duv0.Y*duv1.X

	dp0Local := v1.Position.Sub(v0.Position)
	dp1Local := v2.Position.Sub(v0.Position)

	p := objectToWorld.MulPoint(barycentricInterpolate3(bary, v0.Position, v1.Position, v2.Position))
	c := objectToWorld.MulVector(dp0Local).Cross(objectToWorld.MulVector(dp1Local))
	area := c.Length() * 0.5
	ng := c.Normalize()

	var dpdu, dpdv vecmath.Vec3
	if det == 0 {
		fallback := vecmath.FrameFromNormal(ng)
		dpdu, dpdv = fallback.S, fallback.T
	} else {
		invDet := 1 / det
		dpduLocal := dp0Local.Mul(duv1.Y).Sub(dp1Local.Mul(duv0.Y)).Mul(invDet)
		dpdvLocal := dp1Local.Mul(duv0.X).Sub(dp0Local.Mul(duv1.X)).Mul(invDet)
		dpdu = objectToWorld.MulVector(dpduLocal)
		dpdv = objectToWorld.MulVector(dpdvLocal)
	}

	normalMatrix, ok := objectToWorld.Transpose().Inverse()
	if !ok {
		normalMatrix = objectToWorld
	}
	var ns vecmath.Vec3
	if hasVertexNormal {
		ns = normalMatrix.MulVector(nsLocal).Normalize()
	} else {
		ns = ng
	}
	ns = ns.FaceForward(ng)

	var uv vecmath.Vec2
	if hasVertexUV {
		uv = barycentricInterpolate2(bary, v0.UV, v1.UV, v2.UV)
	} else {
		uv = vecmath.Vec2{X: bary.Y, Y: bary.Z}
	}

	return ShadingAttribute{
		Geometry: GeometryAttribute{P: p, N: ng, Area: area},
		Ps:       p,
		Ns:       ns,
		Dpdu:     dpdu,
		Dpdv:     dpdv,
		UV:       uv,
	}
}
