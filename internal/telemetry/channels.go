package telemetry

import "time"

// ID indexes a channel in a Store.
type ID int

// Channel IDs of the default table. Angles smoothed through sin/cos occupy
// three slots: the angle and its two companions.
const (
	HDOP ID = iota
	Lat
	Lon
	LatWP
	LonWP
	SOG
	COG
	cogSin
	cogCos
	COGWP
	XTE
	DistWP
	AWA
	awaSin
	awaCos
	AWS
	TWA
	twaSin
	twaCos
	TWD
	twdSin
	twdCos
	TWS
	VMG
	VMGWP
	Heel
	Pitch
	HDG
	hdgSin
	hdgCos
	HDT
	hdtSin
	hdtCos
	VTW
	Log
	LogR
	Depth
	RPMM1
	TempM1
	PressureM1
	VoltageM1
	CurrentM1
	RPMM2
	TempM2
	PressureM2
	VoltageM2
	CurrentM2
	TempAir
	TempWater
	Humidity
	Barometer
	User0
	User1
	User2
	User3
	User4
	User5
	User6
	User7
	User8
	User9
	User10
	User11
	User12

	NumChannels
)

type channelDef struct {
	id     ID
	label  string
	format string
	unit   string
	kind   Kind
}

const (
	latFmt     = "%9.4f"
	latUnit    = "DDD.dddd"
	angleFmt   = "%6.0f"
	speedFmt   = "%6.2f"
	windFmt    = "%6.1f"
	speedUnit  = "knots"
	trueUnit   = "Deg True"
	magUnit    = "Deg Mag"
	degreeUnit = "Degrees"
)

var defaultChannels = []channelDef{
	{HDOP, "HDOP", "%6.2f", "", Simple},
	{Lat, "Lat", latFmt, latUnit, BoatAngle},
	{Lon, "Lon", latFmt, latUnit, BoatAngle},
	{LatWP, "WP Lat", latFmt, latUnit, BoatAngle},
	{LonWP, "WP Lon", latFmt, latUnit, BoatAngle},
	{SOG, "SOG", speedFmt, speedUnit, Simple},
	{COG, "COG", angleFmt, trueUnit, CompassAngleSin},
	{COGWP, "WP COG", angleFmt, trueUnit, CompassAngle},
	{XTE, "XTE", "%6.2f", "NM", Simple},
	{DistWP, "WP Dist", "%6.2f", "NM", Simple},
	{AWA, "AWA", angleFmt, degreeUnit, BoatAngleSin},
	{AWS, "AWS", windFmt, speedUnit, Simple},
	{TWA, "TWA", angleFmt, degreeUnit, BoatAngleSin},
	{TWD, "TWD", angleFmt, trueUnit, CompassAngleSin},
	{TWS, "TWS", windFmt, speedUnit, Simple},
	{VMG, "VMG", speedFmt, speedUnit, Simple},
	{VMGWP, "WP VMG", speedFmt, speedUnit, Simple},
	{Heel, "Heel", angleFmt, "Deg Stbd", BoatAngle},
	{Pitch, "Pitch", angleFmt, "Deg Bow Up", BoatAngle},
	{HDG, "HDG", angleFmt, magUnit, CompassAngleSin},
	{HDT, "HDT", angleFmt, trueUnit, CompassAngleSin},
	{VTW, "VTW", speedFmt, speedUnit, Simple},
	{Log, "Log", "%6.0f", "NM", Simple},
	{LogR, "Trip", "%6.2f", "NM", Simple},
	{Depth, "Depth", "%6.1f", "m", Simple},
	{RPMM1, "Motor 1 RPM", "%6.0f", "RPM", Simple},
	{TempM1, "Temp 1", "%6.0f", "Deg C", Simple},
	{PressureM1, "Oil 1", "%6.0f", "kPa", Simple},
	{VoltageM1, "Motor 1 Volts", "%6.2f", "Volts", Simple},
	{CurrentM1, "Motor 1 Amps", "%6.1f", "Amps", Simple},
	{RPMM2, "Motor 2 RPM", "%6.0f", "RPM", Simple},
	{TempM2, "Temp 2", "%6.0f", "Deg C", Simple},
	{PressureM2, "Oil 2", "%6.0f", "kPa", Simple},
	{VoltageM2, "Motor 2 Volts", "%6.2f", "Volts", Simple},
	{CurrentM2, "Motor 2 Amps", "%6.1f", "Amps", Simple},
	{TempAir, "Air", "%6.1f", "Deg C", Simple},
	{TempWater, "Water", "%6.1f", "Deg C", Simple},
	{Humidity, "Humidity", "%6.0f", "% RH", Simple},
	{Barometer, "Barometer", "%6.0f", "Pa", Simple},
}

// HistoryDefaults are the history settings used when none are given.
var HistoryDefaults = struct {
	Scale    float64
	Offset   float64
	Interval time.Duration
	Size     int
}{Scale: 10, Offset: 0, Interval: 20 * time.Second, Size: 192}

// NewDefaultStore returns a store with every channel of the default table
// declared. User channels are left as plain unlabeled slots.
func NewDefaultStore(response time.Duration, opts ...Option) *Store {
	s := NewStore(int(NumChannels), opts...)
	for _, d := range defaultChannels {
		// The table is static and in range.
		_ = s.Declare(d.id, d.label, d.format, d.unit, d.kind, response)
	}
	return s
}
