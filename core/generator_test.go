package core

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/astrometric-simulator/model"
)

var (
	testOrbitParams = OrbitParams{Radius: 1, AngularRate: 2 * math.Pi / 365.25}
	testTruth       = model.SourceParameters{RA: 0, Dec: 0, Parallax: 0.01}
)

func testEpochs(n int, span float64) []model.Epoch {
	out := make([]model.Epoch, n)
	for i := range out {
		out[i] = model.Epoch(span * float64(i) / float64(n))
	}
	return out
}

func TestGenerateIsDeterministicPerSeed(t *testing.T) {
	epochs := testEpochs(40, 365.25)
	a, err := Generate(epochs, testOrbitParams, testAttitudeParams(), testTruth, 1e-6, 99)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	b, err := Generate(epochs, testOrbitParams, testAttitudeParams(), testTruth, 1e-6, 99)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("same seed produced different sets (-first +second):\n%s", diff)
	}

	c, err := Generate(epochs, testOrbitParams, testAttitudeParams(), testTruth, 1e-6, 100)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if cmp.Equal(a, c) {
		t.Fatalf("different seeds produced identical noisy sets")
	}
}

func TestGenerateNoiseFreeMatchesForwardModel(t *testing.T) {
	g, err := NewGenerator(testOrbitParams, testAttitudeParams(), testTruth)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	epochs := testEpochs(25, 100)
	obs, err := g.Generate(epochs, 0, 1)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(obs) != len(epochs) {
		t.Fatalf("len(obs) = %d, want %d", len(obs), len(epochs))
	}
	for i, o := range obs {
		if o.Epoch != epochs[i] {
			t.Fatalf("obs[%d].Epoch = %v, want %v", i, o.Epoch, epochs[i])
		}
		orbit := g.Orbit.PositionVelocity(o.Epoch)
		att := g.Attitude.Orientation(o.Epoch)
		want := AlongScanDetector{}.FieldAngle(TrueDirection(o.Epoch, testTruth, orbit), att)
		if math.Abs(WrapAngle(o.Angle-want)) > 1e-15 {
			t.Fatalf("obs[%d].Angle = %v, want %v", i, o.Angle, want)
		}
		if o.Sigma != 0 {
			t.Fatalf("obs[%d].Sigma = %v, want 0", i, o.Sigma)
		}
	}
}

func TestGenerateNoiseHasRequestedSpread(t *testing.T) {
	const sigma = 1e-4
	epochs := testEpochs(4000, 365.25)
	clean, err := Generate(epochs, testOrbitParams, testAttitudeParams(), testTruth, 0, 5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	noisy, err := Generate(epochs, testOrbitParams, testAttitudeParams(), testTruth, sigma, 5)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	var sum, sumSq float64
	for i := range noisy {
		d := WrapAngle(noisy[i].Angle - clean[i].Angle)
		sum += d
		sumSq += d * d
	}
	n := float64(len(noisy))
	mean := sum / n
	std := math.Sqrt(sumSq/n - mean*mean)
	if math.Abs(mean) > 5*sigma/math.Sqrt(n) {
		t.Fatalf("noise mean = %g, want ≈ 0", mean)
	}
	if math.Abs(std/sigma-1) > 0.1 {
		t.Fatalf("noise std = %g, want ≈ %g", std, sigma)
	}
}

func TestGenerateRejectsInvalidInputs(t *testing.T) {
	g, err := NewGenerator(testOrbitParams, testAttitudeParams(), testTruth)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	cases := map[string]struct {
		epochs []model.Epoch
		sigma  float64
	}{
		"empty epochs":     {epochs: nil, sigma: 0},
		"negative sigma":   {epochs: testEpochs(3, 1), sigma: -1},
		"nan sigma":        {epochs: testEpochs(3, 1), sigma: math.NaN()},
		"non-finite epoch": {epochs: []model.Epoch{0, model.Epoch(math.Inf(1))}, sigma: 0},
	}
	for name, c := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := g.Generate(c.epochs, c.sigma, 1); !errors.Is(err, ErrInvalidParameter) {
				t.Fatalf("Generate error = %v, want ErrInvalidParameter", err)
			}
		})
	}

	if _, err := NewGenerator(testOrbitParams, testAttitudeParams(), model.SourceParameters{Dec: 2}); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("NewGenerator with dec=2 error = %v, want ErrInvalidParameter", err)
	}
}

func TestScannerTransitsLieOnScanLine(t *testing.T) {
	g, err := NewGenerator(testOrbitParams, testAttitudeParams(), testTruth)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	scanner := DefaultScanner()
	scanner.ScanLineHalfWidth = 5 * math.Pi / 180

	transits, err := scanner.Transits(context.Background(), 0, 126, g.Orbit, g.Attitude, g.Source)
	if err != nil {
		t.Fatalf("Transits: %v", err)
	}
	if len(transits) == 0 {
		t.Fatalf("no transits found over two precession periods")
	}
	for i, e := range transits {
		if i > 0 && e <= transits[i-1] {
			t.Fatalf("transits not strictly increasing at %d: %v <= %v", i, e, transits[i-1])
		}
		orbit := g.Orbit.PositionVelocity(e)
		att := g.Attitude.Orientation(e)
		u := g.Source.Direction(e, orbit)
		if eta := (AlongScanDetector{}).FieldAngle(u, att); math.Abs(eta) > 1e-6 {
			t.Fatalf("transit %v has η = %g", e, eta)
		}
		if zeta := AcrossScanAngle(u, att); math.Abs(zeta) > scanner.ScanLineHalfWidth {
			t.Fatalf("transit %v has ζ = %g outside half-width", e, zeta)
		}
	}
}

func TestScannerHonoursCancellation(t *testing.T) {
	g, err := NewGenerator(testOrbitParams, testAttitudeParams(), testTruth)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := DefaultScanner().Transits(ctx, 0, 365, g.Orbit, g.Attitude, g.Source); !errors.Is(err, context.Canceled) {
		t.Fatalf("Transits error = %v, want context.Canceled", err)
	}
}

func TestScannerRejectsEmptyInterval(t *testing.T) {
	g, err := NewGenerator(testOrbitParams, testAttitudeParams(), testTruth)
	if err != nil {
		t.Fatalf("NewGenerator: %v", err)
	}
	if _, err := DefaultScanner().Transits(context.Background(), 5, 5, g.Orbit, g.Attitude, g.Source); !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("Transits error = %v, want ErrInvalidParameter", err)
	}
}
