package nmea

import (
	"fmt"
	"math"

	"gpslink/internal/telemetry"
)

// BuildOptions tunes Build.
type BuildOptions struct {
	// Ref selects relative (R) or true (T) wind for MWV.
	Ref byte
	// NoCRLF leaves off the trailing "\r\n".
	NoCRLF bool
	// DepthToTransducer is subtracted from the stored depth for DBT.
	DepthToTransducer float64
}

// Build renders a sentence of the given type from a record and a telemetry
// store. Supported types are GGA, GLL, RMC, DBT, HDM, HDT, MWV, RMB, TXT, VHW,
// VPW and WCV.
func Build(source, typ string, rec Record, store *telemetry.Store, opt BuildOptions) (string, error) {
	if store == nil && typ != "GGA" && typ != "GLL" && typ != "RMC" && typ != "TXT" {
		return "", fmt.Errorf("nmea: build %s: no telemetry store", typ)
	}
	var body string
	switch typ {
	case "GGA":
		body = fmt.Sprintf("%09.2f,%09.4f,%c,%010.4f,%c,%d,%02d,%f,%f,M,%f,M,,",
			timeField(rec.Time), rec.Latitude.Raw, hemi(rec.Latitude, 'N'), rec.Longitude.Raw, hemi(rec.Longitude, 'E'),
			rec.FixQuality, rec.Satellites, rec.HDOP, rec.Altitude, rec.GeoidHeight)
	case "GLL":
		body = fmt.Sprintf("%09.4f,%c,%010.4f,%c,%09.2f,A",
			rec.Latitude.Raw, hemi(rec.Latitude, 'N'), rec.Longitude.Raw, hemi(rec.Longitude, 'E'), timeField(rec.Time))
	case "RMC":
		mag := rec.MagVariationDir
		if mag == 0 {
			mag = 'E'
		}
		body = fmt.Sprintf("%09.2f,A,%09.4f,%c,%010.4f,%c,%f,%f,%06d,%f,%c",
			timeField(rec.Time), rec.Latitude.Raw, hemi(rec.Latitude, 'N'), rec.Longitude.Raw, hemi(rec.Longitude, 'E'),
			rec.Speed, rec.Course, rec.Date.Day*10000+rec.Date.Month*100+rec.Date.Year, rec.MagVariation, mag)
	case "DBT":
		d := store.Get(telemetry.Depth) - opt.DepthToTransducer
		body = fmt.Sprintf("%f,f,%f,M,,", d/feetToMetres, d)
	case "HDM":
		body = fmt.Sprintf("%f,M", store.Get(telemetry.HDG))
	case "HDT":
		body = fmt.Sprintf("%f,T", store.Get(telemetry.HDT))
	case "MWV":
		if opt.Ref == 'R' {
			body = fmt.Sprintf("%f,R,%f,N,A", store.Get(telemetry.AWA), store.Get(telemetry.AWS))
		} else {
			body = fmt.Sprintf("%f,T,%f,N,A", store.Get(telemetry.TWA), store.Get(telemetry.TWS))
		}
	case "RMB":
		body = fmt.Sprintf(",,,,,,,,,,,%f,A", store.Get(telemetry.VMGWP))
	case "TXT":
		body = fmt.Sprintf("%02d,%02d,%02d,%s", rec.TxtTotal, rec.TxtNumber, rec.TxtID, rec.Txt)
	case "VHW":
		vtw := store.Get(telemetry.VTW)
		body = fmt.Sprintf("%f,T,%f,M,%f,N,%f,K", store.Get(telemetry.HDT), store.Get(telemetry.HDG), vtw, vtw/kmhToKnots)
	case "VPW":
		vmg := store.Get(telemetry.VMG)
		body = fmt.Sprintf("%f,N,%f,M", vmg, vmg/msToKnots)
	case "WCV":
		body = fmt.Sprintf("%f,N,,A", store.Get(telemetry.VMGWP))
	default:
		return "", fmt.Errorf("nmea: build %s: unsupported sentence", typ)
	}
	s := AddChecksum("$" + source + typ + "," + body)
	if !opt.NoCRLF {
		s += "\r\n"
	}
	return s, nil
}

func timeField(t TimeOfDay) float64 {
	return float64(t.Hour*10000+t.Minute*100+t.Second) + float64(t.Millisecond)/1000
}

func hemi(c Coord, def byte) byte {
	if c.Hemisphere == 0 {
		return def
	}
	return c.Hemisphere
}

// EncodeCoord converts signed decimal degrees to a Coord carrying the
// DDDMM.MMMM form used on the wire.
func EncodeCoord(deg float64, latitude bool) Coord {
	h := byte('N')
	if !latitude {
		h = 'E'
	}
	abs := deg
	if deg < 0 {
		abs = -deg
		h = 'S'
		if !latitude {
			h = 'W'
		}
	}
	whole := math.Floor(abs)
	minutes := (abs - whole) * 60
	return Coord{
		Raw:        whole*100 + minutes,
		Degrees:    deg,
		Fixed:      int32(math.Round(deg * 10_000_000)),
		Hemisphere: h,
	}
}
