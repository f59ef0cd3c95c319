package nmea

import "gpslink/internal/telemetry"

type decoder func(*decodeState) error

var decoders = map[string]decoder{
	"GGA": decodeGGA,
	"RMC": decodeRMC,
	"GLL": decodeGLL,
	"GSA": decodeGSA,
	"TOP": decodeAntenna,
	"CD":  decodeAntenna,

	"DBT": decodeDBT,
	"HDM": decodeHDM,
	"HDT": decodeHDT,
	"MDA": decodeMDA,
	"MTW": decodeMTW,
	"MWV": decodeMWV,
	"RMB": decodeRMB,
	"TXT": decodeTXT,
	"VHW": decodeVHW,
	"VLW": decodeVLW,
	"VPW": decodeVPW,
	"VWR": decodeVWR,
	"WCV": decodeWCV,
	"XTE": decodeXTE,
}

// $GPGGA,time,lat,N,lon,E,quality,sats,hdop,alt,M,geoid,M,age,station
func decodeGGA(s *decodeState) error {
	s.time()
	if err := s.latLon(); err != nil {
		return err
	}
	if q, ok := s.c.int(); ok {
		s.rec.FixQuality = q
		s.rec.Fix = q > 0
		s.sawFix = q > 0
	}
	if n, ok := s.c.int(); ok {
		s.rec.Satellites = n
	}
	if v, ok := s.c.float(); ok {
		s.rec.HDOP = v
		s.push(telemetry.HDOP, v)
	}
	if v, ok := s.c.float(); ok {
		s.rec.Altitude = v
	}
	s.c.skip()
	if v, ok := s.c.float(); ok {
		s.rec.GeoidHeight = v
	}
	return nil
}

// $GPRMC,time,status,lat,N,lon,E,sog,cog,ddmmyy,magvar,E
func decodeRMC(s *decodeState) error {
	s.time()
	if err := s.fixStatus(); err != nil {
		return err
	}
	if err := s.latLon(); err != nil {
		return err
	}
	if v, ok := s.c.float(); ok {
		s.rec.Speed = v
		s.push(telemetry.SOG, v)
	}
	if v, ok := s.c.float(); ok {
		s.rec.Course = v
		s.push(telemetry.COG, v)
	}
	if !s.c.empty() {
		if d, ok := DecodeDate(s.c.next()); ok {
			s.rec.Date = d
			s.sawDate = true
		}
	} else {
		s.c.skip()
	}
	if v, ok := s.c.float(); ok {
		dir := s.c.char(0)
		if dir == 'E' || dir == 'W' {
			s.rec.MagVariation = v
			s.rec.MagVariationDir = dir
		}
	}
	return nil
}

// $GPGLL,lat,N,lon,E,time,status
func decodeGLL(s *decodeState) error {
	if err := s.latLon(); err != nil {
		return err
	}
	s.time()
	return s.fixStatus()
}

// $GPGSA,mode,fix3d,prn*12,pdop,hdop,vdop
func decodeGSA(s *decodeState) error {
	s.c.skip()
	if v, ok := s.c.int(); ok {
		s.rec.FixQuality3D = v
	}
	s.c.skipN(12)
	if v, ok := s.c.float(); ok {
		s.rec.PDOP = v
	}
	if v, ok := s.c.float(); ok {
		s.rec.HDOP = v
		s.push(telemetry.HDOP, v)
	}
	if v, ok := s.c.float(); ok {
		s.rec.VDOP = v
	}
	return nil
}

// $PGTOP,11,status or $PCD,11,status
func decodeAntenna(s *decodeState) error {
	s.c.skip()
	if v, ok := s.c.int(); ok && v >= 1 && v <= 3 {
		s.rec.Antenna = v
	}
	return nil
}
