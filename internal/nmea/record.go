package nmea

// Record holds the most recent value of every decoded field. A sentence only
// touches the fields it carries.
type Record struct {
	Time TimeOfDay
	Date Date

	Latitude  Coord
	Longitude Coord

	Fix          bool
	FixQuality   int // 0 invalid, 1 GPS, 2 DGPS, ...
	FixQuality3D int // 1 none, 2 2D, 3 3D
	Satellites   int

	HDOP float64
	VDOP float64
	PDOP float64

	Altitude    float64 // metres above MSL
	GeoidHeight float64

	Speed  float64 // knots over ground
	Course float64 // degrees true

	MagVariation    float64
	MagVariationDir byte

	// Antenna is 1 for an antenna fault, 2 internal, 3 external.
	Antenna int

	ToWaypoint   string
	FromWaypoint string

	TxtTotal  int
	TxtNumber int
	TxtID     int
	Txt       string
}

const (
	maxWaypointID = 20
	maxTxtLength  = 61
)
