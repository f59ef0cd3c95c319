package nmea

import "gpslink/internal/telemetry"

// Unit conversions used by the instrument sentences.
const (
	feetToMetres     = 0.3048
	fathomsToMetres  = 6 * feetToMetres
	inHgToPa         = 3386.39
	barToPa          = 100000
	msToKnots        = 3600.0 / 1852.0
	kmhToKnots       = 1000.0 / 1852.0
	mphToKnots       = 1609.344 / 1852.0
	maxPlausibleWind = 1000
)

func fahrenheitToCelsius(f float64) float64 { return (f - 32) / 1.8 }

// speedToKnots converts a value tagged with an NMEA speed unit letter.
func speedToKnots(v float64, unit byte) (float64, bool) {
	switch unit {
	case 'N':
		return v, true
	case 'M':
		return v * msToKnots, true
	case 'K':
		return v * kmhToKnots, true
	case 'S':
		return v * mphToKnots, true
	}
	return 0, false
}

// $SDDBT,feet,f,metres,M,fathoms,F
func decodeDBT(s *decodeState) error {
	ft, okFt := s.c.float()
	s.c.skip()
	m, okM := s.c.float()
	s.c.skip()
	fa, okFa := s.c.float()
	switch {
	case okM:
		s.push(telemetry.Depth, m+s.depth)
	case okFt:
		s.push(telemetry.Depth, ft*feetToMetres+s.depth)
	case okFa:
		s.push(telemetry.Depth, fa*fathomsToMetres+s.depth)
	}
	return nil
}

func decodeHDM(s *decodeState) error {
	if v, ok := s.c.float(); ok {
		s.push(telemetry.HDG, v)
	}
	return nil
}

func decodeHDT(s *decodeState) error {
	if v, ok := s.c.float(); ok {
		s.push(telemetry.HDT, v)
	}
	return nil
}

// temperature reads a value and unit pair and returns Celsius.
func (s *decodeState) temperature() (float64, bool) {
	t, ok := s.c.float()
	u := s.c.char('C')
	if !ok {
		return 0, false
	}
	if u == 'F' {
		t = fahrenheitToCelsius(t)
	}
	return t, true
}

// $WIMDA,inHg,I,bar,B,air,C,water,C,humidity,...
func decodeMDA(s *decodeState) error {
	inHg, okIn := s.c.float()
	s.c.skip()
	bar, okBar := s.c.float()
	s.c.skip()
	switch {
	case okBar:
		s.push(telemetry.Barometer, bar*barToPa)
	case okIn:
		s.push(telemetry.Barometer, inHg*inHgToPa)
	}
	if t, ok := s.temperature(); ok {
		s.push(telemetry.TempAir, t)
	}
	if t, ok := s.temperature(); ok {
		s.push(telemetry.TempWater, t)
	}
	if v, ok := s.c.float(); ok {
		s.push(telemetry.Humidity, v)
	}
	return nil
}

// $YXMTW,temp,C
func decodeMTW(s *decodeState) error {
	if t, ok := s.temperature(); ok {
		s.push(telemetry.TempWater, t)
	}
	return nil
}

// $WIMWV,angle,R|T,speed,unit,status
func decodeMWV(s *decodeState) error {
	ang, okAng := s.c.float()
	ref := s.c.char('T')
	spd, okSpd := s.c.float()
	unit := s.c.char('N')
	status := s.c.char('A')
	if status != 'A' {
		return nil
	}
	if ang > 180 {
		ang -= 360
	}
	angleID, speedID := telemetry.TWA, telemetry.TWS
	if ref == 'R' {
		angleID, speedID = telemetry.AWA, telemetry.AWS
	}
	if okAng && ang < maxPlausibleWind {
		s.push(angleID, ang)
	}
	if okSpd {
		if kn, ok := speedToKnots(spd, unit); ok && kn < maxPlausibleWind {
			s.push(speedID, kn)
		}
	}
	return nil
}

// $GPRMB,status,xte,L|R,to,from,lat,N,lon,W,range,bearing,closing,arrival
func decodeRMB(s *decodeState) error {
	s.c.skip()
	s.crossTrack()
	if id, ok := s.c.str(maxWaypointID); ok {
		s.rec.ToWaypoint = id
	}
	if id, ok := s.c.str(maxWaypointID); ok {
		s.rec.FromWaypoint = id
	}
	lat, ok, err := s.axisCoord("waypoint latitude", 'N', 'S')
	if err != nil {
		return err
	}
	if ok {
		s.push(telemetry.LatWP, lat.Degrees)
	}
	lon, ok, err := s.axisCoord("waypoint longitude", 'E', 'W')
	if err != nil {
		return err
	}
	if ok {
		s.push(telemetry.LonWP, lon.Degrees)
	}
	if v, ok := s.c.float(); ok {
		s.push(telemetry.DistWP, v)
	}
	if v, ok := s.c.float(); ok {
		s.push(telemetry.COGWP, v)
	}
	if v, ok := s.c.float(); ok {
		s.push(telemetry.VMGWP, v)
	}
	return nil
}

// crossTrack reads an error magnitude and L/R steer direction; left is
// negative.
func (s *decodeState) crossTrack() {
	xte, ok := s.c.float()
	dir := s.c.char('X')
	if !ok || dir == 'X' || xte >= 10000 {
		return
	}
	if dir == 'L' {
		xte = -xte
	}
	s.push(telemetry.XTE, xte)
}

// $GPTXT,total,number,id,text
func decodeTXT(s *decodeState) error {
	if v, ok := s.c.int(); ok {
		s.rec.TxtTotal = v
	}
	if v, ok := s.c.int(); ok {
		s.rec.TxtNumber = v
	}
	if v, ok := s.c.int(); ok {
		s.rec.TxtID = v
	}
	if t, ok := s.c.str(maxTxtLength); ok {
		s.rec.Txt = t
	}
	return nil
}

// $VWVHW,true,T,mag,M,knots,N,kmh,K
func decodeVHW(s *decodeState) error {
	if v, ok := s.c.float(); ok {
		s.push(telemetry.HDT, v)
	}
	s.c.skip()
	if v, ok := s.c.float(); ok {
		s.push(telemetry.HDG, v)
	}
	s.c.skip()
	if v, ok := s.c.float(); ok {
		s.push(telemetry.VTW, v)
	}
	return nil
}

// $VWVLW,total,N,trip,N
func decodeVLW(s *decodeState) error {
	if v, ok := s.c.float(); ok {
		s.push(telemetry.Log, v)
	}
	s.c.skip()
	if v, ok := s.c.float(); ok {
		s.push(telemetry.LogR, v)
	}
	return nil
}

// $VWVPW,knots,N,ms,M
func decodeVPW(s *decodeState) error {
	kn, okKn := s.c.float()
	s.c.skip()
	ms, okMs := s.c.float()
	switch {
	case okKn && kn < maxPlausibleWind:
		s.push(telemetry.VMG, kn)
	case okMs:
		if v := ms * msToKnots; v < maxPlausibleWind {
			s.push(telemetry.VMG, v)
		}
	}
	return nil
}

// $WIVWR,angle,L|R,knots,N,ms,M,kmh,K
func decodeVWR(s *decodeState) error {
	ang, okAng := s.c.float()
	side := s.c.char(' ')
	if okAng && ang < maxPlausibleWind {
		if side == 'L' {
			ang = -ang
		}
		s.push(telemetry.AWA, ang)
	}
	// The last speed present wins, converted from its own unit.
	var (
		speed float64
		have  bool
	)
	for i := 0; i < 3; i++ {
		v, ok := s.c.float()
		unit := s.c.char(0)
		if !ok {
			continue
		}
		if kn, ok := speedToKnots(v, unit); ok {
			speed, have = kn, true
		}
	}
	if have {
		s.push(telemetry.AWS, speed)
	}
	return nil
}

// $GPWCV,knots,N,id
func decodeWCV(s *decodeState) error {
	if v, ok := s.c.float(); ok {
		s.push(telemetry.VMGWP, v)
	}
	return nil
}

// $GPXTE,status,status,xte,L|R,N
func decodeXTE(s *decodeState) error {
	s.c.skipN(2)
	s.crossTrack()
	return nil
}
