package timectrl

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/signalsfoundry/astrometric-simulator/model"
)

func TestGridEpochsInclusiveEnd(t *testing.T) {
	got, err := Grid{Start: 10, End: 12, Cadence: 0.5}.Epochs()
	if err != nil {
		t.Fatalf("Epochs: %v", err)
	}
	want := []model.Epoch{10, 10.5, 11, 11.5, 12}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Epochs mismatch (-want +got):\n%s", diff)
	}
}

func TestGridEpochsLongGridDoesNotDrift(t *testing.T) {
	g := Grid{Start: 0, End: 3652.5, Cadence: 0.1}
	got, err := g.Epochs()
	if err != nil {
		t.Fatalf("Epochs: %v", err)
	}
	if len(got) != 36526 {
		t.Fatalf("len = %d, want 36526", len(got))
	}
	if last := got[len(got)-1]; math.Abs(float64(last-g.End)) > 1e-9 {
		t.Fatalf("last epoch = %v, want %v", last, g.End)
	}
}

func TestGridRejectsInvalid(t *testing.T) {
	for _, g := range []Grid{
		{Start: 0, End: 1, Cadence: 0},
		{Start: 0, End: 1, Cadence: -1},
		{Start: 2, End: 1, Cadence: 0.1},
	} {
		if _, err := g.Epochs(); !errors.Is(err, ErrInvalidSequence) {
			t.Fatalf("Grid%+v.Epochs() error = %v, want ErrInvalidSequence", g, err)
		}
	}
}

func TestEvenlySpacedExcludesEnd(t *testing.T) {
	got, err := EvenlySpaced(100, 10, 4)
	if err != nil {
		t.Fatalf("EvenlySpaced: %v", err)
	}
	want := []model.Epoch{100, 102.5, 105, 107.5}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("EvenlySpaced mismatch (-want +got):\n%s", diff)
	}
	if _, err := EvenlySpaced(0, 10, 0); !errors.Is(err, ErrInvalidSequence) {
		t.Fatalf("count=0 error = %v, want ErrInvalidSequence", err)
	}
	if _, err := EvenlySpaced(0, 0, 3); !errors.Is(err, ErrInvalidSequence) {
		t.Fatalf("span=0 error = %v, want ErrInvalidSequence", err)
	}
}

func TestEpochFromTime(t *testing.T) {
	if got := EpochFromTime(J2000); got != 0 {
		t.Fatalf("EpochFromTime(J2000) = %v, want 0", got)
	}
	got := EpochFromTime(time.Date(2001, time.January, 1, 0, 0, 0, 0, time.UTC))
	if want := model.Epoch(365.5); math.Abs(float64(got-want)) > 1e-9 {
		t.Fatalf("EpochFromTime(2001-01-01) = %v, want %v", got, want)
	}
	// Non-UTC zones refer to the same instant.
	zone := time.FixedZone("UTC+2", 2*3600)
	if got := EpochFromTime(J2000.In(zone)); got != 0 {
		t.Fatalf("EpochFromTime in fixed zone = %v, want 0", got)
	}
}

func TestTimeFromEpochRoundTrip(t *testing.T) {
	in := time.Date(2014, time.July, 25, 10, 30, 0, 250_000_000, time.UTC)
	back := TimeFromEpoch(EpochFromTime(in))
	if d := back.Sub(in); d < -time.Millisecond || d > time.Millisecond {
		t.Fatalf("round trip = %v, want %v (diff %v)", back, in, d)
	}
}
