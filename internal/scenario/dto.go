package scenario

// The YAML DTOs mirror the scenario file layout. Angles are radians, rates
// are radians per day, epochs are days since J2000 and distances are AU.

type fileDTO struct {
	Name     string      `yaml:"name"`
	Orbit    orbitDTO    `yaml:"orbit"`
	Attitude attitudeDTO `yaml:"attitude"`
	Source   sourceDTO   `yaml:"source"`
	Epochs   epochsDTO   `yaml:"epochs"`
	Noise    noiseDTO    `yaml:"noise"`
	Solver   solverDTO   `yaml:"solver"`
}

type orbitDTO struct {
	Radius      float64 `yaml:"radius_au" validate:"gt=0"`
	AngularRate float64 `yaml:"angular_rate_rad_per_day" validate:"ne=0"`
	Phase       float64 `yaml:"phase_rad"`
	Inclination float64 `yaml:"inclination_rad"`
}

type attitudeDTO struct {
	SpinRate       float64 `yaml:"spin_rate" validate:"ne=0"`
	PrecessionRate float64 `yaml:"precession_rate"`
	ConeAngle      float64 `yaml:"cone_angle" validate:"gte=0,lte=3.141592653589793"`
	Phase          float64 `yaml:"phase"`
	SpinPhase      float64 `yaml:"spin_phase"`
}

type sourceDTO struct {
	RA             float64 `yaml:"ra"`
	Dec            float64 `yaml:"dec" validate:"gte=-1.5707963267948966,lte=1.5707963267948966"`
	Parallax       float64 `yaml:"parallax"`
	PMRA           float64 `yaml:"pm_ra"`
	PMDec          float64 `yaml:"pm_dec"`
	ReferenceEpoch float64 `yaml:"reference_epoch"`
}

type epochsDTO struct {
	Mode      string    `yaml:"mode" validate:"required,oneof=grid evenly_spaced list transits"`
	Start     float64   `yaml:"start"`
	StartUTC  string    `yaml:"start_utc" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
	End       *float64  `yaml:"end"`
	Duration  float64   `yaml:"duration_days" validate:"gte=0"`
	Cadence   float64   `yaml:"cadence" validate:"required_if=Mode grid,gte=0"`
	Count     int       `yaml:"count" validate:"required_if=Mode evenly_spaced,gte=0"`
	List      []float64 `yaml:"list" validate:"required_if=Mode list"`
	HalfWidth float64   `yaml:"scan_half_width" validate:"gte=0,lte=1.5707963267948966"`
	Step      float64   `yaml:"scan_step" validate:"gte=0"`
}

type noiseDTO struct {
	Sigma float64 `yaml:"sigma" validate:"gte=0"`
	Seed  int64   `yaml:"seed"`
}

type solverDTO struct {
	Initial       *sourceDTO `yaml:"initial"`
	MaxIterations int        `yaml:"max_iterations" validate:"gte=0"`
	Tolerance     float64    `yaml:"tolerance" validate:"gte=0"`
	Workers       int        `yaml:"workers" validate:"gte=0"`
	BlockSize     int        `yaml:"block_size" validate:"gte=0"`
	MaxCondition  float64    `yaml:"max_condition" validate:"omitempty,gt=1"`
}
