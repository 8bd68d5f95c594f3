package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/mat"

	"github.com/pitwall-labs/lapcast/core/model"
	"github.com/pitwall-labs/lapcast/internal/features"
	"github.com/pitwall-labs/lapcast/internal/session"
	"github.com/pitwall-labs/lapcast/pkg/errors"
	"github.com/pitwall-labs/lapcast/pkg/log"
)

// offsetModel predicts x + offset and records the rows it was fitted on.
type offsetModel struct {
	offset   float64
	fitCalls int
	fitRows  int
}

func (m *offsetModel) Fit(X, y mat.Matrix) error {
	m.fitCalls++
	m.fitRows, _ = X.Dims()
	return nil
}

func (m *offsetModel) Predict(X mat.Matrix) (mat.Matrix, error) {
	rows, _ := X.Dims()
	out := mat.NewDense(rows, 1, nil)
	for i := 0; i < rows; i++ {
		out.Set(i, 0, X.At(i, 0)+m.offset)
	}
	return out, nil
}

func (m *offsetModel) Score(X, y mat.Matrix) (float64, error) {
	return 0, errors.ErrNotImplemented
}

func gridExamples(n int) []features.TrainingExample {
	out := make([]features.TrainingExample, n)
	for i := range out {
		q := 76 + 0.31*float64(i)
		out[i] = features.TrainingExample{
			DriverID:          string(rune('A' + i)),
			QualifyingSeconds: q,
			RaceSeconds:       q*1.03 + 0.2*math.Sin(float64(i)),
		}
	}
	return out
}

func TestTrain_DeterministicHeldOutMAE(t *testing.T) {
	examples := gridExamples(20)

	first, err := Train(examples, DefaultTrainConfig())
	if err != nil {
		t.Fatalf("Train() error: %v", err)
	}
	second, err := Train(examples, DefaultTrainConfig())
	if err != nil {
		t.Fatalf("Train() error: %v", err)
	}

	if math.Float64bits(first.HeldOutMAE) != math.Float64bits(second.HeldOutMAE) {
		t.Errorf("held-out MAE differs between runs: %v vs %v", first.HeldOutMAE, second.HeldOutMAE)
	}
	if len(first.Split.TestIndices) != 4 || len(first.Split.TrainIndices) != 16 {
		t.Errorf("split sizes = %d/%d, want 16/4", len(first.Split.TrainIndices), len(first.Split.TestIndices))
	}
	if diff := cmp.Diff(first.Split.TestIndices, second.Split.TestIndices); diff != "" {
		t.Errorf("test partition differs (-first +second):\n%s", diff)
	}
	if first.HeldOutMAE < 0 || math.IsNaN(first.HeldOutMAE) {
		t.Errorf("invalid MAE %v", first.HeldOutMAE)
	}
}

func TestTrain_Errors(t *testing.T) {
	if _, err := Train(nil, DefaultTrainConfig()); !errors.Is(err, errors.ErrEmptyData) {
		t.Errorf("expected ErrEmptyData, got %v", err)
	}

	// One example leaves nothing to train on after the hold-out.
	if _, err := Train(gridExamples(1), DefaultTrainConfig()); err == nil {
		t.Error("expected error for a single example")
	}

	cfg := DefaultTrainConfig()
	cfg.LearningRate = 0
	if _, err := Train(gridExamples(10), cfg); err == nil {
		t.Error("expected error for zero learning rate")
	}

	bad := gridExamples(10)
	bad[3].RaceSeconds = math.NaN()
	if _, err := Train(bad, DefaultTrainConfig()); err == nil {
		t.Error("expected error for NaN target")
	}
}

func TestTrain_LinearKind(t *testing.T) {
	cfg := DefaultTrainConfig()
	cfg.Kind = KindLinear

	examples := make([]features.TrainingExample, 10)
	for i := range examples {
		q := 76 + 0.5*float64(i)
		examples[i] = features.TrainingExample{DriverID: string(rune('A' + i)), QualifyingSeconds: q, RaceSeconds: 1.02*q + 2}
	}
	res, err := Train(examples, cfg)
	if err != nil {
		t.Fatalf("Train() error: %v", err)
	}
	if res.HeldOutMAE > 1e-6 {
		t.Errorf("linear model should recover a linear relation, MAE = %v", res.HeldOutMAE)
	}

	cfg.Kind = "random_forest"
	if _, err := Train(examples, cfg); err == nil {
		t.Error("expected error for unknown model kind")
	}
}

func TestTrain_InjectedModel(t *testing.T) {
	fake := &offsetModel{offset: 3}
	cfg := DefaultTrainConfig()
	cfg.NewModel = func() model.Regressor { return fake }

	examples := []features.TrainingExample{
		{DriverID: "A", QualifyingSeconds: 90, RaceSeconds: 93},
		{DriverID: "B", QualifyingSeconds: 91, RaceSeconds: 95},
		{DriverID: "C", QualifyingSeconds: 92, RaceSeconds: 95},
		{DriverID: "D", QualifyingSeconds: 93, RaceSeconds: 96},
		{DriverID: "E", QualifyingSeconds: 94, RaceSeconds: 97},
	}
	res, err := Train(examples, cfg)
	if err != nil {
		t.Fatalf("Train() error: %v", err)
	}
	if fake.fitCalls != 1 || fake.fitRows != 4 {
		t.Errorf("fit calls %d on %d rows, want 1 on 4", fake.fitCalls, fake.fitRows)
	}

	held := examples[res.Split.TestIndices[0]]
	want := math.Abs(held.QualifyingSeconds + 3 - held.RaceSeconds)
	if res.HeldOutMAE != want {
		t.Errorf("HeldOutMAE = %v, want %v", res.HeldOutMAE, want)
	}
}

func TestPredict(t *testing.T) {
	m := &offsetModel{offset: 4.5}
	got, err := Predict(m, []features.DriverFastestLap{{DriverID: "VER", Seconds: 75.5}, {DriverID: "NOR", Seconds: 75.25}})
	if err != nil {
		t.Fatalf("Predict() error: %v", err)
	}
	want := []PredictionRecord{
		{DriverID: "VER", QualifyingSeconds: 75.5, PredictedRaceSeconds: 80},
		{DriverID: "NOR", QualifyingSeconds: 75.25, PredictedRaceSeconds: 79.75},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Predict() mismatch (-want +got):\n%s", diff)
	}

	empty, err := Predict(m, nil)
	if err != nil || empty == nil || len(empty) != 0 {
		t.Errorf("Predict(nil) = %v, %v", empty, err)
	}
	if m.fitCalls != 0 {
		t.Error("Predict must not refit the model")
	}

	_, err = Predict(&offsetModel{offset: math.Inf(1)}, []features.DriverFastestLap{{DriverID: "VER", Seconds: 75.5}})
	var unstable *errors.NumericalInstabilityError
	if !errors.As(err, &unstable) {
		t.Errorf("Predict() with an infinite prediction: got %v, want NumericalInstabilityError", err)
	}
}

func TestCompare(t *testing.T) {
	predictions := []PredictionRecord{
		{DriverID: "LEC", QualifyingSeconds: 76.0, PredictedRaceSeconds: 80.5},
		{DriverID: "VER", QualifyingSeconds: 75.5, PredictedRaceSeconds: 80.0},
		{DriverID: "STR", QualifyingSeconds: 77.0, PredictedRaceSeconds: 81.0},
		{DriverID: "NOR", QualifyingSeconds: 75.7, PredictedRaceSeconds: 80.25},
	}
	actual := []features.DriverFastestLap{
		{DriverID: "VER", Seconds: 80.5}, {DriverID: "LEC", Seconds: 80.0}, {DriverID: "NOR", Seconds: 80.25}, {DriverID: "HAM", Seconds: 81.0},
	}

	got, err := Compare(predictions, actual)
	if err != nil {
		t.Fatalf("Compare() error: %v", err)
	}

	want := []ComparisonRecord{
		{DriverID: "VER", QualifyingSeconds: 75.5, PredictedRaceSeconds: 80.0, ActualRaceSeconds: 80.5, ErrorSeconds: -0.5},
		{DriverID: "NOR", QualifyingSeconds: 75.7, PredictedRaceSeconds: 80.25, ActualRaceSeconds: 80.25, ErrorSeconds: 0},
		{DriverID: "LEC", QualifyingSeconds: 76.0, PredictedRaceSeconds: 80.5, ActualRaceSeconds: 80.0, ErrorSeconds: 0.5},
	}
	if diff := cmp.Diff(want, got.Records, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
		t.Errorf("Compare() records mismatch (-want +got):\n%s", diff)
	}
	for i := 1; i < len(got.Records); i++ {
		if got.Records[i-1].PredictedRaceSeconds > got.Records[i].PredictedRaceSeconds {
			t.Fatalf("records not sorted at %d", i)
		}
	}
	if math.Abs(got.MAE-1.0/3.0) > 1e-9 {
		t.Errorf("MAE = %v, want 1/3", got.MAE)
	}
	if math.Abs(got.MaxAbsError-0.5) > 1e-9 {
		t.Errorf("MaxAbsError = %v, want 0.5", got.MaxAbsError)
	}
	if diff := cmp.Diff([]string{"STR"}, got.Unmatched); diff != "" {
		t.Errorf("Unmatched mismatch (-want +got):\n%s", diff)
	}
}

func TestCompare_NoOverlap(t *testing.T) {
	_, err := Compare(
		[]PredictionRecord{{DriverID: "A", PredictedRaceSeconds: 95}},
		[]features.DriverFastestLap{{DriverID: "B", Seconds: 94}},
	)
	if !errors.Is(err, ErrNoOverlap) {
		t.Errorf("expected ErrNoOverlap, got %v", err)
	}
}

func TestEndToEndScenario(t *testing.T) {
	qualifying := []features.DriverFastestLap{{DriverID: "A", Seconds: 90.0}, {DriverID: "B", Seconds: 91.0}}
	race := []features.DriverFastestLap{{DriverID: "A", Seconds: 95.0}, {DriverID: "B", Seconds: 94.0}}
	examples := features.Join(qualifying, race)

	predictOnce := func() float64 {
		res, err := Train(examples, DefaultTrainConfig())
		if err != nil {
			t.Fatalf("Train() error: %v", err)
		}
		preds, err := Predict(res.Model, []features.DriverFastestLap{{DriverID: "A", Seconds: 90.5}})
		if err != nil {
			t.Fatalf("Predict() error: %v", err)
		}
		if len(preds) != 1 {
			t.Fatalf("got %d predictions, want 1", len(preds))
		}
		return preds[0].PredictedRaceSeconds
	}

	predicted := predictOnce()
	if math.IsNaN(predicted) || math.IsInf(predicted, 0) {
		t.Fatalf("prediction is not finite: %v", predicted)
	}
	if again := predictOnce(); math.Float64bits(again) != math.Float64bits(predicted) {
		t.Errorf("prediction not deterministic: %v vs %v", predicted, again)
	}

	c, err := Compare(
		[]PredictionRecord{{DriverID: "A", QualifyingSeconds: 90.5, PredictedRaceSeconds: predicted}},
		[]features.DriverFastestLap{{DriverID: "A", Seconds: 95.2}},
	)
	if err != nil {
		t.Fatalf("Compare() error: %v", err)
	}
	if len(c.Records) != 1 {
		t.Fatalf("got %d rows, want 1", len(c.Records))
	}
	if c.Records[0].ErrorSeconds != predicted-95.2 {
		t.Errorf("ErrorSeconds = %v, want %v", c.Records[0].ErrorSeconds, predicted-95.2)
	}
	if math.Abs(c.MAE-math.Abs(predicted-95.2)) > 1e-12 {
		t.Errorf("MAE = %v", c.MAE)
	}
}

type sessionKey struct {
	year int
	typ  session.SessionType
}

type fakeSource struct {
	laps map[sessionKey][]session.LapRecord
}

func (f *fakeSource) GetSession(_ context.Context, year, round int, t session.SessionType) (*session.Session, error) {
	if _, ok := f.laps[sessionKey{year, t}]; !ok {
		return nil, errors.Newf("no %s in %d", t, year)
	}
	return &session.Session{Year: year, Round: round, Type: t}, nil
}

func (f *fakeSource) LoadLaps(_ context.Context, s *session.Session) ([]session.LapRecord, error) {
	return f.laps[sessionKey{s.Year, s.Type}], nil
}

func laps(times map[string]float64, order ...string) []session.LapRecord {
	var out []session.LapRecord
	for _, id := range order {
		sec, ok := times[id]
		if !ok {
			out = append(out, session.LapRecord{DriverID: id})
			continue
		}
		out = append(out,
			session.LapRecord{DriverID: id, Duration: time.Duration((sec + 1.5) * float64(time.Second)), Timed: true},
			session.LapRecord{DriverID: id, Duration: time.Duration(sec * float64(time.Second)), Timed: true},
		)
	}
	return out
}

type recordingObserver struct {
	trained  *TrainResult
	compared *Comparison
}

func (o *recordingObserver) Trained(_ Event, res *TrainResult) error {
	o.trained = res
	return nil
}

func (o *recordingObserver) Compared(_ Event, c *Comparison) error {
	o.compared = c
	return nil
}

func TestTrain_UndefinedR2Warns(t *testing.T) {
	var warnings []error
	errors.SetWarningHandler(func(w error) { warnings = append(warnings, w) })
	defer errors.SetWarningHandler(nil)

	// One training row leaves R2 without variance to explain.
	examples := features.Join(
		[]features.DriverFastestLap{{DriverID: "A", Seconds: 90}, {DriverID: "B", Seconds: 91}},
		[]features.DriverFastestLap{{DriverID: "A", Seconds: 95}, {DriverID: "B", Seconds: 94}},
	)
	if _, err := Train(examples, DefaultTrainConfig()); err != nil {
		t.Fatalf("Train() error: %v", err)
	}

	if len(warnings) != 1 {
		t.Fatalf("got %d warnings, want 1: %v", len(warnings), warnings)
	}
	var undef *errors.UndefinedMetricWarning
	if !errors.As(warnings[0], &undef) || undef.Metric != "r2_score" {
		t.Errorf("warning = %v, want an r2_score UndefinedMetricWarning", warnings[0])
	}
}

func TestRunner_Run(t *testing.T) {
	provider, logger := log.NewTestLoggerProvider(log.LevelDebug)
	log.SetProvider(provider)

	drivers := []string{"VER", "PER", "LEC", "SAI", "NOR", "PIA", "HAM", "RUS", "ALO", "STR"}
	trainQuali := map[string]float64{}
	trainRace := map[string]float64{}
	targetQuali := map[string]float64{}
	targetRace := map[string]float64{}
	for i, id := range drivers {
		q := 76.0 + 0.2*float64(i)
		trainQuali[id] = q
		trainRace[id] = q + 3.5
		targetQuali[id] = q - 0.4
		targetRace[id] = q + 3.0
	}
	delete(trainRace, "STR")  // DNF in the training race
	delete(targetRace, "PER") // DNF in the target race

	src := &fakeSource{laps: map[sessionKey][]session.LapRecord{
		{2024, session.Qualifying}: laps(trainQuali, drivers...),
		{2024, session.Race}:       laps(trainRace, append(drivers, "BOT")...),
		{2025, session.Qualifying}: laps(targetQuali, drivers...),
		{2025, session.Race}:       laps(targetRace, drivers...),
	}}

	cfg := RunConfig{
		Train:  Event{Year: 2024, Round: 3},
		Target: Event{Year: 2025, Round: 3},
		Model:  DefaultTrainConfig(),
	}
	obs := &recordingObserver{}

	res, err := NewRunner(session.NewLoader(src)).Run(context.Background(), cfg, obs)
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	if obs.trained != res.Training || obs.compared != res.Comparison {
		t.Error("observer did not receive the stage results")
	}
	if len(res.Training.Split.TrainIndices)+len(res.Training.Split.TestIndices) != 9 {
		t.Errorf("training set should hold the 9 classified drivers")
	}
	if len(res.Predictions) != 10 {
		t.Errorf("got %d predictions, want 10", len(res.Predictions))
	}
	if len(res.Comparison.Records) != 9 {
		t.Errorf("got %d compared rows, want 9", len(res.Comparison.Records))
	}
	if diff := cmp.Diff([]string{"PER"}, res.Comparison.Unmatched); diff != "" {
		t.Errorf("Unmatched mismatch (-want +got):\n%s", diff)
	}

	for _, msg := range []string{
		"Drivers missing from the training race",
		"Drivers without a timed lap",
		"Predicted drivers without a race lap",
	} {
		if !logger.ContainsMessage(msg) {
			t.Errorf("expected warning %q", msg)
		}
	}
}

type failingObserver struct{ recordingObserver }

func (o *failingObserver) Trained(Event, *TrainResult) error {
	return errors.New("stdout closed")
}

func TestRunner_RunStopsOnError(t *testing.T) {
	src := &fakeSource{laps: map[sessionKey][]session.LapRecord{
		{2024, session.Qualifying}: laps(map[string]float64{"A": 90, "B": 91, "C": 92}, "A", "B", "C"),
		{2024, session.Race}:       laps(map[string]float64{"A": 95, "B": 94, "C": 96}, "A", "B", "C"),
	}}
	cfg := RunConfig{
		Train:  Event{Year: 2024, Round: 3},
		Target: Event{Year: 2025, Round: 3},
		Model:  DefaultTrainConfig(),
	}

	obs := &recordingObserver{}
	res, err := NewRunner(session.NewLoader(src)).Run(context.Background(), cfg, obs)
	if err == nil {
		t.Fatal("expected error for missing target session")
	}
	if res == nil || res.Training == nil || obs.trained == nil {
		t.Error("training result should be reported before the failure")
	}
	if obs.compared != nil {
		t.Error("comparison must not be reported")
	}

	if _, err := NewRunner(session.NewLoader(src)).Run(context.Background(), cfg, &failingObserver{}); err == nil {
		t.Error("expected observer error to abort the run")
	}
}
