package lights

import (
	"math"

	"github.com/lumenray/lumenray/spectrum"
	"github.com/lumenray/lumenray/vecmath"
)

// Nishita sky model constants, ported verbatim from
// original_source/src/textures/nishita_precompute.cpp (itself adapted
// from Blender Cycles' sky_nishita.cpp, Apache-2.0).
const (
	rayleighScale    = 8e3
	mieScale         = 1.2e3
	mieCoeff         = 2e-5
	mieG             = 0.76
	sqrG             = mieG * mieG
	earthRadius      = 6360e3
	atmosphereRadius = 6420e3
	scatterSteps     = 32
	numWavelengths   = 21
	minWavelength    = 380
	maxWavelength    = 780
	quadratureSteps  = 8
)

var stepLambda = float64(maxWavelength-minWavelength) / float64(numWavelengths-1)

var irradianceTable = [numWavelengths]float64{
	1.45756829855592995315, 1.56596305559738380175, 1.65148449067670455293,
	1.71496242737209314555, 1.75797983805020541226, 1.78256407885924539336,
	1.79095108475838560302, 1.78541550133410664714, 1.76815554864306845317,
	1.74122069647250410362, 1.70647127164943679389, 1.66556087452739887134,
	1.61993437242451854274, 1.57083597368892080581, 1.51932335059305478886,
	1.46628494965214395407, 1.41245852740172450623, 1.35844961970384092709,
	1.30474913844739281998, 1.25174963272610817455, 1.19975998755420620867,
}

var rayleighCoeffTable = [numWavelengths]float64{
	0.00005424820087636473, 0.00004418549866505454, 0.00003635151910165377,
	0.00003017929012024763, 0.00002526320226989157, 0.00002130859310621843,
	0.00001809838025320633, 0.00001547057129129042, 0.00001330284977336850,
	0.00001150184784075764, 0.00000999557429990163, 0.00000872799973630707,
	0.00000765513700977967, 0.00000674217203751443, 0.00000596134125832052,
	0.00000529034598065810, 0.00000471115687557433, 0.00000420910481110487,
	0.00000377218381260133, 0.00000339051255477280, 0.00000305591531679811,
}

var ozoneCoeffTable = [numWavelengths]float64{
	0.00000000325126849861, 0.00000000585395365047, 0.00000001977191155085,
	0.00000007309568762914, 0.00000020084561514287, 0.00000040383958096161,
	0.00000063551335912363, 0.00000096707041180970, 0.00000154797400424410,
	0.00000209038647223331, 0.00000246128056164565, 0.00000273551299461512,
	0.00000215125863128643, 0.00000159051840791988, 0.00000112356197979857,
	0.00000073527551487574, 0.00000046450130357806, 0.00000033096079921048,
	0.00000022512612292678, 0.00000014879129266490, 0.00000016828623364192,
}

var cmfXYZTable = [numWavelengths][3]float64{
	{0.00136800000, 0.00003900000, 0.00645000100}, {0.01431000000, 0.00039600000, 0.06785001000},
	{0.13438000000, 0.00400000000, 0.64560000000}, {0.34828000000, 0.02300000000, 1.74706000000},
	{0.29080000000, 0.06000000000, 1.66920000000}, {0.09564000000, 0.13902000000, 0.81295010000},
	{0.00490000000, 0.32300000000, 0.27200000000}, {0.06327000000, 0.71000000000, 0.07824999000},
	{0.29040000000, 0.95400000000, 0.02030000000}, {0.59450000000, 0.99500000000, 0.00390000000},
	{0.91630000000, 0.87000000000, 0.00165000100}, {1.06220000000, 0.63100000000, 0.00080000000},
	{0.85444990000, 0.38100000000, 0.00019000000}, {0.44790000000, 0.17500000000, 0.00002000000},
	{0.16490000000, 0.06100000000, 0.00000000000}, {0.04677000000, 0.01700000000, 0.00000000000},
	{0.01135916000, 0.00410200000, 0.00000000000}, {0.00289932700, 0.00104700000, 0.00000000000},
	{0.00069007860, 0.00024920000, 0.00000000000}, {0.00016615050, 0.00006000000, 0.00000000000},
	{0.00004150994, 0.00001499000, 0.00000000000},
}

var quadratureNodes = [quadratureSteps]float64{
	0.006811185292, 0.03614807107, 0.09004346519, 0.1706680068,
	0.2818362161, 0.4303406404, 0.6296271457, 0.9145252695,
}

var quadratureWeights = [quadratureSteps]float64{
	0.01750893642, 0.04135477391, 0.06678839063, 0.09507698807,
	0.1283416365, 0.1707430204, 0.2327233347, 0.3562490486,
}

// geographicalToDirection converts (latitude, longitude) to a unit
// direction, per geographical_to_direction in nishita_precompute.cpp.
func geographicalToDirection(lat, lon float64) vecmath.Vec3 {
	return vecmath.Vec3{
		X: math.Cos(lat) * math.Cos(lon),
		Y: math.Cos(lat) * math.Sin(lon),
		Z: math.Sin(lat),
	}
}

func specToXYZ(spec [numWavelengths]float64) spectrum.XYZ {
	var xyz spectrum.XYZ
	for i := 0; i < numWavelengths; i++ {
		xyz.X += cmfXYZTable[i][0] * spec[i]
		xyz.Y += cmfXYZTable[i][1] * spec[i]
		xyz.Z += cmfXYZTable[i][2] * spec[i]
	}
	xyz.X *= stepLambda
	xyz.Y *= stepLambda
	xyz.Z *= stepLambda
	return xyz
}

func densityRayleigh(height float64) float64 { return math.Exp(-height / rayleighScale) }
func densityMie(height float64) float64      { return math.Exp(-height / mieScale) }

func densityOzone(height float64) float64 {
	switch {
	case height >= 10000 && height < 25000:
		return 1.0/15000*height - 2.0/3
	case height >= 25000 && height < 40000:
		return -(1.0/15000*height - 8.0/3)
	default:
		return 0
	}
}

func phaseRayleigh(mu float64) float64 {
	return 3.0 / (16.0 * math.Pi) * (1 + mu*mu)
}

func phaseMie(mu float64) float64 {
	return (3.0 * (1 - sqrG) * (1 + mu*mu)) /
		(8.0 * math.Pi * (2 + sqrG) * math.Pow(1+sqrG-2*mieG*mu, 1.5))
}

func surfaceIntersection(pos, dir vecmath.Vec3) bool {
	if dir.Z >= 0 {
		return false
	}
	b := -2 * dir.Dot(pos.Neg())
	c := pos.Dot(pos) - earthRadius*earthRadius
	return b*b-4*c >= 0
}

func atmosphereIntersection(pos, dir vecmath.Vec3) vecmath.Vec3 {
	b := -2 * dir.Dot(pos.Neg())
	c := pos.Dot(pos) - atmosphereRadius*atmosphereRadius
	t := (-b + math.Sqrt(math.Max(0, b*b-4*c))) * 0.5
	return pos.Add(dir.Mul(t))
}

// rayOpticalDepth integrates atmosphere density along a ray via
// Gauss-Laguerre quadrature, matching ray_optical_depth.
func rayOpticalDepth(origin, dir vecmath.Vec3) vecmath.Vec3 {
	end := atmosphereIntersection(origin, dir)
	length := end.Sub(origin).Length()
	segment := dir.Mul(length)

	depth := vecmath.Vec3{}
	for i := 0; i < quadratureSteps; i++ {
		p := origin.Add(segment.Mul(quadratureNodes[i]))
		height := p.Length() - earthRadius
		density := vecmath.Vec3{X: densityRayleigh(height), Y: densityMie(height), Z: densityOzone(height)}
		depth = depth.Add(density.Mul(quadratureWeights[i]))
	}
	return depth.Mul(length)
}

// singleScattering computes single-inscattering along a ray through the
// atmosphere, matching single_scattering.
func singleScattering(rayDir, sunDir, rayOrigin vecmath.Vec3, airDensity, dustDensity, ozoneDensity float64) [numWavelengths]float64 {
	var spec [numWavelengths]float64
	end := atmosphereIntersection(rayOrigin, rayDir)
	rayLength := end.Sub(rayOrigin).Length()
	segmentLength := rayLength / scatterSteps
	segment := rayDir.Mul(segmentLength)

	depth := vecmath.Vec3{}
	mu := rayDir.Dot(sunDir)
	rayleighPhase := phaseRayleigh(mu)
	miePhase := phaseMie(mu)
	densityScale := vecmath.Vec3{X: airDensity, Y: dustDensity, Z: ozoneDensity}

	p := rayOrigin.Add(segment.Mul(0.5))
	for i := 0; i < scatterSteps; i++ {
		height := p.Length() - earthRadius
		density := densityScale.MulVec(vecmath.Vec3{X: densityRayleigh(height), Y: densityMie(height), Z: densityOzone(height)})
		depth = depth.Add(density.Mul(segmentLength))

		if !surfaceIntersection(p, sunDir) {
			lightDepth := densityScale.MulVec(rayOpticalDepth(p, sunDir))
			total := depth.Add(lightDepth)
			for wl := 0; wl < numWavelengths; wl++ {
				extinction := vecmath.Vec3{X: total.X * rayleighCoeffTable[wl], Y: total.Y * 1.11 * mieCoeff, Z: total.Z * ozoneCoeffTable[wl]}
				attenuation := math.Exp(-(extinction.X + extinction.Y + extinction.Z))
				scatterDensity := vecmath.Vec3{X: density.X * rayleighCoeffTable[wl], Y: density.Y * mieCoeff}
				inscatter := rayleighPhase*scatterDensity.X + miePhase*scatterDensity.Y
				spec[wl] += attenuation * inscatter * irradianceTable[wl] * segmentLength
			}
		}
		p = p.Add(segment)
	}
	return spec
}

// SkyParams are the physical parameters the Nishita model needs, per
// spec's environment-light node (altitude, sun elevation, turbidity
// proxies).
type SkyParams struct {
	SunElevation float64 // radians above horizon
	Altitude     float64 // meters above sea level
	AirDensity   float64
	DustDensity  float64
	OzoneDensity float64
}

// SkyTable is the precomputed 2D table nishita_precompute.cpp bakes:
// one linear-sRGB sample per (latitude, longitude) texel, built once
// per render rather than per sample, per spec §4.F.
type SkyTable struct {
	Width, Height int
	Pixels        []vecmath.Vec3 // linear sRGB, row-major
	Params        SkyParams
}

// PrecomputeSkyTable bakes the Nishita sky model into a width*height
// table, following SKY_nishita_skymodel_precompute_texture's latitude
// warping (more resolution toward the horizon) and its omission of the
// far hemisphere (longitude only spans [0, pi]).
func PrecomputeSkyTable(params SkyParams, width, height int) *SkyTable {
	t := &SkyTable{Width: width, Height: height, Pixels: make([]vecmath.Vec3, width*height), Params: params}
	camPos := vecmath.Vec3{Z: earthRadius + params.Altitude}
	sunDir := geographicalToDirection(params.SunElevation, 0)

	latStep := (math.Pi / 2) / float64(height)
	lonStep := math.Pi / float64(width)
	halfLat := latStep * 0.5

	for y := 0; y < height; y++ {
		frac := (float64(y) + 0.5) / float64(height)
		latitude := (math.Pi/2 + halfLat) * frac * frac
		for x := 0; x < width; x++ {
			longitude := lonStep * (float64(x) + 0.5)
			dir := geographicalToDirection(latitude, longitude)
			spec := singleScattering(dir, sunDir, camPos, params.AirDensity, params.DustDensity, params.OzoneDensity)
			xyz := specToXYZ(spec)
			rgb := spectrum.XYZToLinearSRGB(xyz)
			t.Pixels[y*width+x] = vecmath.Vec3{X: rgb.R, Y: rgb.G, Z: rgb.B}
		}
	}
	return t
}

// directionToGeographical inverts geographicalToDirection (up to the
// longitude sign fold the table doesn't store, handled by Lookup).
func directionToGeographical(dir vecmath.Vec3) (lat, lon float64) {
	lat = math.Asin(clamp(dir.Z, -1, 1))
	lon = math.Atan2(dir.Y, dir.X)
	return
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Lookup bilinearly samples the sky table for a direction in the
// table's own frame (EnvironmentLight passes its light-space direction),
// mirroring the precompute's latitude warping and its longitude-folding
// (only longitudes in [0,pi] are stored; the other hemisphere mirrors).
func (t *SkyTable) Lookup(dir vecmath.Vec3) vecmath.Vec3 {
	if t.Width == 0 || t.Height == 0 {
		return vecmath.Vec3{}
	}
	lat, lon := directionToGeographical(dir)
	if lat < 0 {
		lat = 0
	}
	if lon < 0 {
		lon = -lon
	}
	if lon > math.Pi {
		lon = 2*math.Pi - lon
	}

	frac := math.Sqrt(lat / (math.Pi / 2))
	fy := clamp(frac*float64(t.Height)-0.5, 0, float64(t.Height-1))
	fx := clamp(lon/math.Pi*float64(t.Width)-0.5, 0, float64(t.Width-1))

	x0 := int(fx)
	y0 := int(fy)
	x1 := min(x0+1, t.Width-1)
	y1 := min(y0+1, t.Height-1)
	tx := fx - float64(x0)
	ty := fy - float64(y0)

	c00 := t.Pixels[y0*t.Width+x0]
	c10 := t.Pixels[y0*t.Width+x1]
	c01 := t.Pixels[y1*t.Width+x0]
	c11 := t.Pixels[y1*t.Width+x1]
	top := c00.Mul(1 - tx).Add(c10.Mul(tx))
	bottom := c01.Mul(1 - tx).Add(c11.Mul(tx))
	return top.Mul(1 - ty).Add(bottom.Mul(ty))
}
