package orrery

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"os"
	"strconv"
	"strings"
	"testing"

	"gonum.org/v1/gonum/floats/scalar"
)

type nopCloser struct {
	bytes.Buffer
	closed bool
}

func (n *nopCloser) Close() error {
	n.closed = true
	return nil
}

func TestCSVExporter(t *testing.T) {
	sim := earthMoon(t, DefaultConfig())
	out := &nopCloser{}
	rec := NewRecorder(NewCSVExporter(out), 10)
	if err := rec.Record(sim); err != nil {
		t.Fatal(err)
	}
	sim.observers = append(sim.observers, rec)
	if err := sim.StepN(25); err != nil {
		t.Fatal(err)
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	if !out.closed {
		t.Fatal("the writer should be closed")
	}
	rows, err := csv.NewReader(&out.Buffer).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// Header, then three snapshots (steps 0, 10 and 20) of three bodies.
	if len(rows) != 1+3*3 {
		t.Fatalf("expected 10 rows, got %d", len(rows))
	}
	if rows[0][0] != "jd" || rows[0][7] != "vz" {
		t.Fatalf("unexpected header %v", rows[0])
	}
	last := rows[len(rows)-1]
	if last[1] != "Moon" {
		t.Fatalf("unexpected last row %v", last)
	}
	jd, _ := strconv.ParseFloat(last[0], 64)
	if !scalar.EqualWithinAbs(jd, J2000+20.0/24, 1e-8) {
		t.Fatalf("unexpected date %f", jd)
	}
	x, _ := strconv.ParseFloat(rows[2][2], 64)
	if rows[2][1] != "Earth" || x == 0 {
		t.Fatalf("unexpected Earth row %v", rows[2])
	}
}

type failingSink struct{ calls int }

func (f *failingSink) WriteStates(float64, []NamedState) error {
	f.calls++
	return errors.New("disk full")
}

func (f *failingSink) Close() error { return nil }

func TestRecorderStopsOnError(t *testing.T) {
	sim := earthMoon(t, DefaultConfig())
	sink := &failingSink{}
	rec := NewRecorder(sink, 0)
	sim.observers = append(sim.observers, rec)
	if err := sim.StepN(5); err != nil {
		t.Fatal(err)
	}
	if sink.calls != 1 || rec.Err() == nil || rec.Close() == nil {
		t.Fatalf("recorder should stop at the first error (%d calls)", sink.calls)
	}
}

func TestCosmographiaExporter(t *testing.T) {
	dir := t.TempDir()
	sim := earthMoon(t, DefaultConfig())
	exp := NewCosmographiaExporter(dir, "test", "Sun")
	rec := NewRecorder(exp, 24)
	sim.observers = append(sim.observers, rec)
	if err := sim.StepN(24 * 3); err != nil {
		t.Fatal(err)
	}
	if err := rec.Close(); err != nil {
		t.Fatal(err)
	}
	if err := exp.Close(); err != nil {
		t.Fatal("Close should be idempotent")
	}
	if err := exp.WriteStates(J2000, nil); err == nil {
		t.Fatal("expected an error after Close")
	}
	if _, err := os.Stat(exp.TrajectoryPath("Sun")); !os.IsNotExist(err) {
		t.Fatal("the center should not have a trajectory")
	}
	content, err := os.ReadFile(exp.TrajectoryPath("Earth"))
	if err != nil {
		t.Fatal(err)
	}
	states, err := ParseInterpolatedStates(string(content))
	if err != nil {
		t.Fatal(err)
	}
	if len(states) != 3 {
		t.Fatalf("expected 3 records, got %d", len(states))
	}
	earth, _ := sim.State("Earth")
	if final := states[2]; !scalar.EqualWithinAbs(final.JD, J2000+3, 1e-6) || !scalar.EqualWithinAbs(final.Position[0], earth.Position.X/1e3, 1e-3) || !scalar.EqualWithinAbs(final.Velocity[1], earth.Velocity.Y/1e3, 1e-5) {
		t.Fatalf("unexpected final record %s", final.ToText())
	}

	raw, err := os.ReadFile(exp.CatalogPath())
	if err != nil {
		t.Fatal(err)
	}
	var catalog CgCatalog
	if err := json.Unmarshal(raw, &catalog); err != nil {
		t.Fatal(err)
	}
	if len(catalog.Items) != 2 || catalog.Items[0].Name != "Earth" || catalog.Items[1].Name != "Moon" {
		t.Fatalf("unexpected catalog %s", raw)
	}
	for _, item := range catalog.Items {
		if err := item.Trajectory.Validate(); err != nil {
			t.Fatal(err)
		}
		if item.Center != "Sun" || item.TrajectoryPlot.Duration != "3 d" {
			t.Fatalf("unexpected item %+v", item)
		}
	}
}

func TestCosmographiaExporterCloseErrors(t *testing.T) {
	dir := t.TempDir()
	sim := earthMoon(t, DefaultConfig())
	exp := NewCosmographiaExporter(dir, "test", "Sun")
	if err := exp.WriteStates(sim.Epoch(), sim.Snapshot()); err != nil {
		t.Fatal(err)
	}
	// The Earth file can no longer be written nor closed.
	exp.files["Earth"].Close()
	err := exp.Close()
	if err == nil || !strings.Contains(err.Error(), "Earth") {
		t.Fatalf("expected the Earth errors, got %v", err)
	}
	if strings.Contains(err.Error(), "Moon") {
		t.Fatalf("the Moon file should close cleanly: %v", err)
	}
	content, err := os.ReadFile(exp.TrajectoryPath("Moon"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(content), "# Simulation time end") {
		t.Fatalf("the Moon file was not ended:\n%s", content)
	}
	if _, err := os.Stat(exp.CatalogPath()); err != nil {
		t.Fatalf("the catalog should be written anyway: %s", err)
	}
}

func TestInterpolatedStates(t *testing.T) {
	var st CgInterpolatedState
	if err := st.FromText([]string{"2451545", "1", "2", "3", "4", "5", "6"}); err != nil {
		t.Fatal(err)
	}
	if st.JD != J2000 || st.Position[2] != 3 || st.Velocity[0] != 4 {
		t.Fatalf("unexpected state %+v", st)
	}
	if err := st.FromText([]string{"1", "2"}); err == nil {
		t.Fatal("expected an error on missing fields")
	}
	if err := st.FromText([]string{"a", "2", "3", "4", "5", "6", "7"}); err == nil {
		t.Fatal("expected an error on invalid fields")
	}
	if _, err := ParseInterpolatedStates("# comment\n1 2 3\n"); err == nil {
		t.Fatal("expected an error on short records")
	}
	if (&CgTrajectory{Type: "Spice", Source: "x.bsp"}).Validate() == nil {
		t.Fatal("only interpolated states are supported")
	}
}
