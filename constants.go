package orrery

const (
	// AU is the astronomical unit in meters (IAU 2012).
	AU = 1.495978707e11
	// G is the Newtonian gravitational constant in m^3 kg^-1 s^-2 (CODATA 2018).
	G = 6.6743e-11
	// Day is the length of a day in seconds.
	Day = 86400.0
	// J2000 is the Julian date of the J2000.0 epoch.
	J2000 = 2451545.0
)
