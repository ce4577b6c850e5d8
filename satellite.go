package orrery

// SatelliteLink ties a satellite to the parent its elements are defined around.
type SatelliteLink struct {
	Name       string
	Index      int // Index of the satellite in the System.
	Parent     int // Index of the parent in the System, or -1 if not registered yet.
	ParentMass float64
	Elements   OrbitalElements // Elements with a resolved epoch.
}

// OverrideSatellites replaces the state of every linked satellite with its analytic
// state at the Julian date jd, relative to the current state of its parent. Links are
// processed in order so that a parent listed first is updated before its own satellites.
// The names of the satellites whose parent is unresolved or massless are returned and
// left untouched.
func OverrideSatellites(sys *System, links []SatelliteLink, jd float64) (skipped []string) {
	for _, l := range links {
		if l.Parent < 0 || l.Parent >= sys.Len() || !(l.ParentMass > 0) {
			skipped = append(skipped, l.Name)
			continue
		}
		parent := StateVector{sys.Pos[l.Parent], sys.Vel[l.Parent]}
		st := l.Elements.StateAtJD(l.ParentMass, jd, &parent)
		sys.Pos[l.Index], sys.Vel[l.Index] = st.Position, st.Velocity
	}
	return
}
