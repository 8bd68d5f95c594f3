package features

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/pitwall-labs/lapcast/internal/session"
)

func lap(driver string, d time.Duration) session.LapRecord {
	return session.LapRecord{DriverID: driver, Duration: d, Timed: true}
}

func untimed(driver string) session.LapRecord {
	return session.LapRecord{DriverID: driver}
}

func TestFastestPerDriver(t *testing.T) {
	tests := []struct {
		name string
		laps []session.LapRecord
		want []DriverFastestLap
	}{
		{
			name: "empty",
			laps: nil,
			want: []DriverFastestLap{},
		},
		{
			name: "minimum per driver in first appearance order",
			laps: []session.LapRecord{
				lap("VER", 91*time.Second),
				lap("LEC", 90500*time.Millisecond),
				lap("VER", 90*time.Second),
				lap("LEC", 92*time.Second),
			},
			want: []DriverFastestLap{
				{DriverID: "VER", Seconds: 90},
				{DriverID: "LEC", Seconds: 90.5},
			},
		},
		{
			name: "untimed laps ignored",
			laps: []session.LapRecord{
				untimed("VER"),
				lap("VER", 95*time.Second),
				untimed("VER"),
			},
			want: []DriverFastestLap{{DriverID: "VER", Seconds: 95}},
		},
		{
			name: "driver with no timed lap is dropped",
			laps: []session.LapRecord{
				untimed("SAI"),
				lap("NOR", 93*time.Second),
			},
			want: []DriverFastestLap{{DriverID: "NOR", Seconds: 93}},
		},
		{
			name: "sub-millisecond precision kept",
			laps: []session.LapRecord{
				lap("PIA", 80*time.Second+250*time.Microsecond),
				lap("PIA", 80*time.Second+300*time.Microsecond),
			},
			want: []DriverFastestLap{{DriverID: "PIA", Seconds: 80.00025}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FastestPerDriver(tt.laps)
			if got == nil {
				t.Fatal("FastestPerDriver returned nil")
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("FastestPerDriver() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFastestPerDriver_TieKeepsFirst(t *testing.T) {
	laps := []session.LapRecord{
		{DriverID: "HAM", LapNumber: 4, Duration: 88 * time.Second, Timed: true},
		{DriverID: "HAM", LapNumber: 9, Duration: 88 * time.Second, Timed: true},
	}
	got := FastestPerDriver(laps)
	if len(got) != 1 || got[0].Seconds != 88 {
		t.Fatalf("unexpected result %+v", got)
	}
}

func TestFastestPerDriver_Idempotent(t *testing.T) {
	laps := []session.LapRecord{
		lap("VER", 91*time.Second),
		lap("LEC", 90*time.Second),
		lap("VER", 89*time.Second),
	}
	first := FastestPerDriver(laps)

	// Feeding the fastest laps back in must not change them.
	again := make([]session.LapRecord, len(first))
	for i, f := range first {
		again[i] = lap(f.DriverID, time.Duration(f.Seconds*float64(time.Second)))
	}
	if diff := cmp.Diff(first, FastestPerDriver(again)); diff != "" {
		t.Errorf("second pass changed the table (-first +second):\n%s", diff)
	}
}

func TestFastestPerDriver_EveryDriverOnce(t *testing.T) {
	laps := []session.LapRecord{
		lap("A", 3*time.Second), lap("B", 2*time.Second), lap("A", 1*time.Second),
		untimed("C"), lap("B", 4*time.Second), lap("D", 5*time.Second),
	}
	got := FastestPerDriver(laps)

	seen := make(map[string]bool)
	for _, row := range got {
		if seen[row.DriverID] {
			t.Errorf("driver %s appears twice", row.DriverID)
		}
		seen[row.DriverID] = true
	}
	for _, id := range []string{"A", "B", "D"} {
		if !seen[id] {
			t.Errorf("driver %s missing", id)
		}
	}
	if seen["C"] {
		t.Error("driver C has no timed lap but is present")
	}
}

func TestJoin(t *testing.T) {
	tests := []struct {
		name       string
		qualifying []DriverFastestLap
		race       []DriverFastestLap
		want       []TrainingExample
	}{
		{
			name:       "unmatched qualifying driver dropped",
			qualifying: []DriverFastestLap{{"A", 90}, {"B", 91}},
			race:       []DriverFastestLap{{"A", 95}},
			want:       []TrainingExample{{DriverID: "A", QualifyingSeconds: 90, RaceSeconds: 95}},
		},
		{
			name:       "qualifying order preserved",
			qualifying: []DriverFastestLap{{"B", 91}, {"A", 90}, {"C", 92}},
			race:       []DriverFastestLap{{"C", 96}, {"A", 95}, {"B", 94}, {"D", 97}},
			want: []TrainingExample{
				{DriverID: "B", QualifyingSeconds: 91, RaceSeconds: 94},
				{DriverID: "A", QualifyingSeconds: 90, RaceSeconds: 95},
				{DriverID: "C", QualifyingSeconds: 92, RaceSeconds: 96},
			},
		},
		{
			name:       "disjoint",
			qualifying: []DriverFastestLap{{"A", 90}},
			race:       []DriverFastestLap{{"B", 94}},
			want:       []TrainingExample{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Join(tt.qualifying, tt.race)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Join() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestJoin_DriverSetIsIntersection(t *testing.T) {
	q := []DriverFastestLap{{"A", 1}, {"B", 2}, {"C", 3}, {"E", 5}}
	r := []DriverFastestLap{{"C", 3}, {"D", 4}, {"A", 1}, {"E", 5}}

	got := Join(q, r)
	ids := make([]string, len(got))
	for i, ex := range got {
		ids[i] = ex.DriverID
	}
	if diff := cmp.Diff([]string{"A", "C", "E"}, ids); diff != "" {
		t.Errorf("joined drivers mismatch (-want +got):\n%s", diff)
	}
}

func TestJoin_Idempotent(t *testing.T) {
	q := []DriverFastestLap{{"B", 91}, {"A", 90}, {"C", 92}}
	r := []DriverFastestLap{{"C", 96}, {"A", 95}, {"D", 97}}
	qBefore := append([]DriverFastestLap(nil), q...)
	rBefore := append([]DriverFastestLap(nil), r...)

	first := Join(q, r)
	if diff := cmp.Diff(first, Join(q, r)); diff != "" {
		t.Errorf("second Join differs (-first +second):\n%s", diff)
	}
	if diff := cmp.Diff(qBefore, q); diff != "" {
		t.Errorf("qualifying input modified (-before +after):\n%s", diff)
	}
	if diff := cmp.Diff(rBefore, r); diff != "" {
		t.Errorf("race input modified (-before +after):\n%s", diff)
	}
}

func TestUnmatched(t *testing.T) {
	q := []DriverFastestLap{{"A", 1}, {"B", 2}, {"C", 3}}
	r := []DriverFastestLap{{"B", 2}}

	if diff := cmp.Diff([]string{"A", "C"}, Unmatched(q, r)); diff != "" {
		t.Errorf("Unmatched() mismatch (-want +got):\n%s", diff)
	}
	if got := Unmatched(r, q); got != nil {
		t.Errorf("Unmatched() = %v, want nil", got)
	}
}

func TestFeatureMatrix(t *testing.T) {
	X, y := FeatureMatrix([]TrainingExample{
		{DriverID: "A", QualifyingSeconds: 90, RaceSeconds: 95},
		{DriverID: "B", QualifyingSeconds: 91, RaceSeconds: 94},
	})

	if r, c := X.Dims(); r != 2 || c != 1 {
		t.Fatalf("X dims = (%d, %d)", r, c)
	}
	if X.At(1, 0) != 91 || y.At(0, 0) != 95 {
		t.Errorf("unexpected values X=%v y=%v", X.RawMatrix().Data, y.RawMatrix().Data)
	}

	X, y = FeatureMatrix(nil)
	if X != nil || y != nil {
		t.Error("expected nil matrices for no examples")
	}
	if QualifyingMatrix(nil) != nil {
		t.Error("expected nil matrix for no qualifying rows")
	}
}

func TestNoTimedLap(t *testing.T) {
	laps := []session.LapRecord{
		untimed("SAI"),
		lap("VER", 90*time.Second),
		untimed("VER"),
		untimed("ALB"),
		untimed("SAI"),
	}
	if diff := cmp.Diff([]string{"SAI", "ALB"}, NoTimedLap(laps)); diff != "" {
		t.Errorf("NoTimedLap() mismatch (-want +got):\n%s", diff)
	}
	if got := NoTimedLap(nil); got != nil {
		t.Errorf("NoTimedLap(nil) = %v", got)
	}
}
