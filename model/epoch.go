package model

// Epoch is a simulation time in days since the reference epoch (J2000.0).
type Epoch float64

// Days returns the epoch as a plain number of days.
func (e Epoch) Days() float64 { return float64(e) }

// Since returns the number of days elapsed from ref to e.
func (e Epoch) Since(ref Epoch) float64 { return float64(e - ref) }
