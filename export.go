package orrery

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/soniakeys/meeus/v3/julian"
)

// StateSink receives snapshots of the simulation.
type StateSink interface {
	WriteStates(jd float64, states []NamedState) error
	Close() error
}

// Recorder writes the simulation states to a sink every few steps.
type Recorder struct {
	sink  StateSink
	every uint64
	err   error
}

// NewRecorder returns a recorder writing one snapshot every `every` steps (every step if not positive).
func NewRecorder(sink StateSink, every int) *Recorder {
	if every < 1 {
		every = 1
	}
	return &Recorder{sink: sink, every: uint64(every)}
}

// Record writes the current states of the simulation. Once an error occurred, it is returned
// and nothing else is written.
func (r *Recorder) Record(sim *Simulation) error {
	if r.err != nil {
		return r.err
	}
	r.err = r.sink.WriteStates(sim.Epoch(), sim.Snapshot())
	return r.err
}

// ObserveStep implements StepObserver.
func (r *Recorder) ObserveStep(sim *Simulation, info StepInfo) {
	if info.Step%r.every == 0 {
		r.Record(sim)
	}
}

// Err returns the first error encountered while recording.
func (r *Recorder) Err() error {
	return r.err
}

// Close closes the underlying sink.
func (r *Recorder) Close() error {
	if err := r.sink.Close(); err != nil {
		return err
	}
	return r.err
}

// CSVExporter writes one `jd,body,x,y,z,vx,vy,vz` row per body and snapshot, in SI units.
type CSVExporter struct {
	w      *csv.Writer
	closer io.Closer
	header bool
}

// NewCSVExporter returns an exporter writing to w, which is closed with the exporter if it is an io.Closer.
func NewCSVExporter(w io.Writer) *CSVExporter {
	exp := &CSVExporter{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		exp.closer = c
	}
	return exp
}

// WriteStates implements StateSink.
func (e *CSVExporter) WriteStates(jd float64, states []NamedState) error {
	if !e.header {
		if err := e.w.Write([]string{"jd", "body", "x", "y", "z", "vx", "vy", "vz"}); err != nil {
			return err
		}
		e.header = true
	}
	for _, st := range states {
		row := []string{strconv.FormatFloat(jd, 'f', 8, 64), st.Name}
		for _, val := range []float64{st.Position.X, st.Position.Y, st.Position.Z, st.Velocity.X, st.Velocity.Y, st.Velocity.Z} {
			row = append(row, strconv.FormatFloat(val, 'g', -1, 64))
		}
		if err := e.w.Write(row); err != nil {
			return err
		}
	}
	e.w.Flush()
	return e.w.Error()
}

// Close implements StateSink.
func (e *CSVExporter) Close() error {
	e.w.Flush()
	if err := e.w.Error(); err != nil {
		return err
	}
	if e.closer != nil {
		return e.closer.Close()
	}
	return nil
}

// CgCatalog definition.
type CgCatalog struct {
	Version string     `json:"version"`
	Name    string     `json:"name"`
	Items   []*CgItems `json:"items"`
	Require []string   `json:"require,omitempty"`
}

// CgItems definition.
type CgItems struct {
	Class           string            `json:"class"`
	Name            string            `json:"name"`
	StartTime       string            `json:"startTime"`
	EndTime         string            `json:"endTime"`
	Center          string            `json:"center"`
	TrajectoryFrame string            `json:"trajectoryFrame"`
	Trajectory      *CgTrajectory     `json:"trajectory,omitempty"`
	Label           *CgLabel          `json:"label,omitempty"`
	TrajectoryPlot  *CgTrajectoryPlot `json:"trajectoryPlot,omitempty"`
}

// CgTrajectory definition.
type CgTrajectory struct {
	Type   string `json:"type,omitempty"`
	Source string `json:"source,omitempty"`
}

// Validate validates a CgTrajectory.
func (t *CgTrajectory) Validate() error {
	if t.Type != "InterpolatedStates" || !strings.HasSuffix(t.Source, "xyzv") {
		return errors.New("only InterpolatedStates are currently supported in Cosmographia trajectory types")
	}
	return nil
}

// CgLabel definition.
type CgLabel struct {
	Color    []float64 `json:"color,omitempty"`
	FadeSize int       `json:"fadeSize,omitempty"`
	ShowText bool      `json:"showText,omitempty"`
}

// CgTrajectoryPlot definition.
type CgTrajectoryPlot struct {
	Color       []float64 `json:"color,omitempty"`
	LineWidth   int       `json:"lineWidth,omitempty"`
	Duration    string    `json:"duration,omitempty"`
	Lead        string    `json:"lead,omitempty"`
	Fade        int       `json:"fade,omitempty"`
	SampleCount int       `json:"sampleCount,omitempty"`
}

// CgInterpolatedState is one record of an xyzv file, in km and km/s.
type CgInterpolatedState struct {
	JD       float64
	Position [3]float64
	Velocity [3]float64
}

// FromText initializes from a record of seven fields.
func (i *CgInterpolatedState) FromText(record []string) error {
	if len(record) != 7 {
		return fmt.Errorf("expected 7 fields, got %d", len(record))
	}
	vals := make([]float64, 7)
	for k, field := range record {
		val, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return err
		}
		vals[k] = val
	}
	i.JD = vals[0]
	copy(i.Position[:], vals[1:4])
	copy(i.Velocity[:], vals[4:7])
	return nil
}

// ToText converts to text for written output.
func (i *CgInterpolatedState) ToText() string {
	return fmt.Sprintf("%f %f %f %f %f %f %f", i.JD, i.Position[0], i.Position[1], i.Position[2], i.Velocity[0], i.Velocity[1], i.Velocity[2])
}

// ParseInterpolatedStates parses the content of an xyzv file.
func ParseInterpolatedStates(s string) ([]*CgInterpolatedState, error) {
	var states = []*CgInterpolatedState{}
	r := csv.NewReader(strings.NewReader(s))
	r.Comma = ' '
	r.Comment = '#'
	for {
		record, err := r.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		state := CgInterpolatedState{}
		if err := state.FromText(record); err != nil {
			return nil, err
		}
		states = append(states, &state)
	}
	return states, nil
}

// CosmographiaExporter writes one interpolated states file per body and, when closed,
// the catalog which loads all of them in Cosmographia.
type CosmographiaExporter struct {
	dir, name, center string
	files             map[string]*os.File
	items             map[string]*CgItems
	order             []string
	firstJD, lastJD   float64
	started, closed   bool
}

// NewCosmographiaExporter returns an exporter writing into dir. The trajectories are
// defined around the center body, which is typically the Sun.
func NewCosmographiaExporter(dir, name, center string) *CosmographiaExporter {
	return &CosmographiaExporter{dir: dir, name: name, center: center, files: make(map[string]*os.File), items: make(map[string]*CgItems)}
}

// TrajectoryPath returns the path of the xyzv file of the provided body.
func (e *CosmographiaExporter) TrajectoryPath(body string) string {
	return filepath.Join(e.dir, e.trajectoryFile(body))
}

// CatalogPath returns the path of the catalog written on Close.
func (e *CosmographiaExporter) CatalogPath() string {
	return filepath.Join(e.dir, fmt.Sprintf("catalog-%s.json", e.name))
}

func (e *CosmographiaExporter) trajectoryFile(body string) string {
	return fmt.Sprintf("prop-%s-%s.xyzv", e.name, strings.ReplaceAll(body, " ", "_"))
}

// WriteStates implements StateSink. States are written relative to the center body,
// which is skipped.
func (e *CosmographiaExporter) WriteStates(jd float64, states []NamedState) error {
	if e.closed {
		return errors.New("cosmographia exporter is closed")
	}
	var origin NamedState
	for _, st := range states {
		if st.Name == e.center {
			origin = st
		}
	}
	if !e.started {
		e.firstJD, e.started = jd, true
	}
	e.lastJD = jd
	for _, st := range states {
		if st.Name == e.center {
			continue
		}
		f, err := e.file(st.Name, jd)
		if err != nil {
			return err
		}
		rel := st.Sub(origin.StateVector)
		asTxt := CgInterpolatedState{
			JD:       jd,
			Position: [3]float64{rel.Position.X / 1e3, rel.Position.Y / 1e3, rel.Position.Z / 1e3},
			Velocity: [3]float64{rel.Velocity.X / 1e3, rel.Velocity.Y / 1e3, rel.Velocity.Z / 1e3},
		}
		if _, err := f.WriteString("\n" + asTxt.ToText()); err != nil {
			return err
		}
	}
	return nil
}

// file returns the xyzv file of the body, creating it with its header on first use.
func (e *CosmographiaExporter) file(body string, jd float64) (*os.File, error) {
	if f, ok := e.files[body]; ok {
		return f, nil
	}
	f, err := os.Create(e.TrajectoryPath(body))
	if err != nil {
		return nil, err
	}
	// Header
	if _, err := f.WriteString(fmt.Sprintf(`# Creation date (UTC): %s
# Records are <jd> <x> <y> <z> <vel x> <vel y> <vel z>
#   Time is a TDB Julian date
#   Position in km
#   Velocity in km/sec
#   Simulation time start (UTC): %s`, time.Now().UTC(), cgTime(jd))); err != nil {
		f.Close()
		return nil, err
	}
	e.files[body] = f
	e.order = append(e.order, body)
	color := []float64{0.6, 1, 1}
	e.items[body] = &CgItems{
		Class:           "spacecraft",
		Name:            body,
		StartTime:       cgTime(jd),
		Center:          e.center,
		TrajectoryFrame: "EclipticJ2000",
		Trajectory:      &CgTrajectory{Type: "InterpolatedStates", Source: e.trajectoryFile(body)},
		Label:           &CgLabel{Color: color, FadeSize: 1000000, ShowText: true},
		TrajectoryPlot:  &CgTrajectoryPlot{Color: color, LineWidth: 1, Lead: "0 d", SampleCount: 100},
	}
	return f, nil
}

// Close ends every trajectory file and writes the catalog. Every file is closed
// even if some of them fail, and the errors are joined.
func (e *CosmographiaExporter) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	c := CgCatalog{Version: "1.0", Name: e.name}
	var errs []error
	for _, body := range e.order {
		f := e.files[body]
		if _, err := f.WriteString(fmt.Sprintf("\n# Simulation time end (UTC): %s\n", cgTime(e.lastJD))); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", body, err))
		}
		if err := f.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", body, err))
		}
		item := e.items[body]
		item.EndTime = cgTime(e.lastJD)
		item.TrajectoryPlot.Duration = fmt.Sprintf("%d d", int(e.lastJD-e.firstJD)+1)
		c.Items = append(c.Items, item)
	}
	marsh, err := json.Marshal(c)
	if err == nil {
		err = os.WriteFile(e.CatalogPath(), marsh, 0644)
	}
	return errors.Join(append(errs, err)...)
}

func cgTime(jd float64) string {
	return julian.JDToTime(jd).UTC().Format("2006-01-02 15:04:05 UTC")
}
