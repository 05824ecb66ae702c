package model

// NumParameters is the number of astrometric unknowns solved per source.
const NumParameters = 5

// Index of each astrometric parameter inside a parameter vector.
const (
	ParamRA = iota
	ParamDec
	ParamParallax
	ParamPMRA
	ParamPMDec
)

// ParameterNames lists the astrometric parameters in vector order.
var ParameterNames = [NumParameters]string{"ra", "dec", "parallax", "pm_ra", "pm_dec"}

// SourceParameters are the five astrometric unknowns of a single source.
//
// RA and Dec are in radians. Parallax is in radians per unit of orbit radius.
// PMRA is the proper motion in right ascension including the cos(dec)
// factor; both proper motions are in radians per day.
type SourceParameters struct {
	RA       float64 `json:"ra"`
	Dec      float64 `json:"dec"`
	Parallax float64 `json:"parallax"`
	PMRA     float64 `json:"pm_ra"`
	PMDec    float64 `json:"pm_dec"`
}

// Vector returns the parameters in solver order.
func (s SourceParameters) Vector() [NumParameters]float64 {
	return [NumParameters]float64{s.RA, s.Dec, s.Parallax, s.PMRA, s.PMDec}
}

// SourceParametersFromVector is the inverse of Vector.
func SourceParametersFromVector(v [NumParameters]float64) SourceParameters {
	return SourceParameters{
		RA:       v[ParamRA],
		Dec:      v[ParamDec],
		Parallax: v[ParamParallax],
		PMRA:     v[ParamPMRA],
		PMDec:    v[ParamPMDec],
	}
}

// Add returns s shifted by the update vector d.
func (s SourceParameters) Add(d [NumParameters]float64) SourceParameters {
	v := s.Vector()
	for i := range v {
		v[i] += d[i]
	}
	return SourceParametersFromVector(v)
}

// Sub returns the component-wise difference s - other in solver order.
func (s SourceParameters) Sub(other SourceParameters) [NumParameters]float64 {
	a, b := s.Vector(), other.Vector()
	var d [NumParameters]float64
	for i := range d {
		d[i] = a[i] - b[i]
	}
	return d
}
