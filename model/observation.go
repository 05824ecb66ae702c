package model

// Observation is a single along-scan field-angle measurement.
type Observation struct {
	Epoch Epoch   `json:"epoch"`
	Angle float64 `json:"observed_angle"` // radians
	Sigma float64 `json:"sigma"`          // radians
}

// ObservationSet is the ordered sequence of observations produced by one
// generator run. Consumers treat it as read-only.
type ObservationSet []Observation

// Epochs returns the observation epochs in set order.
func (s ObservationSet) Epochs() []Epoch {
	out := make([]Epoch, len(s))
	for i, o := range s {
		out[i] = o.Epoch
	}
	return out
}

// Clone returns a copy that can be reordered without touching s.
func (s ObservationSet) Clone() ObservationSet {
	out := make(ObservationSet, len(s))
	copy(out, s)
	return out
}

// DistinctEpochs counts observations with distinct epochs.
func (s ObservationSet) DistinctEpochs() int {
	seen := make(map[Epoch]struct{}, len(s))
	for _, o := range s {
		seen[o.Epoch] = struct{}{}
	}
	return len(seen)
}
