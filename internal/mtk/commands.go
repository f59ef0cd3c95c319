package mtk

import "gpslink/internal/nmea"

// Command frames a PMTK text body as a full sentence with its checksum,
// without the line ending. Command("PMTK220,100") is "$PMTK220,100*2F".
func Command(body string) string {
	return nmea.AddChecksum("$" + body)
}

// Update rates.
const (
	UpdateRate1Hz  = "PMTK220,1000"
	UpdateRate5Hz  = "PMTK220,200"
	UpdateRate10Hz = "PMTK220,100"
)

// Serial baud rates.
const (
	Baud9600   = "PMTK251,9600"
	Baud57600  = "PMTK251,57600"
	Baud115200 = "PMTK251,115200"
)

// Sentence output selection.
const (
	OutputRMCOnly = "PMTK314,0,1,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0"
	OutputRMCGGA  = "PMTK314,0,1,0,1,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0"
	OutputAllData = "PMTK314,1,1,1,1,1,1,0,0,0,0,0,0,0,0,0,0,0,0,0"
	OutputOff     = "PMTK314,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0,0"
	OutputDefault = "PMTK314,-1"
)

// LOCUS logger.
const (
	LocusStartLog  = "PMTK185,0"
	LocusStopLog   = "PMTK185,1"
	LocusQuery     = "PMTK183"
	LocusEraseLog  = "PMTK184,1"
	LocusStatusTag = "$PMTKLOG"
	LocusAck       = "$PMTK001,185,3"
)

// Standby and wake.
const (
	Standby        = "PMTK161,0"
	StandbySuccess = "$PMTK001,161,3*36"
	AwakeReply     = "$PMTK010,002*2D"
)

// Miscellaneous.
const (
	QueryFirmware  = "PMTK605"
	EnableSBAS     = "PMTK313,1"
	EnableWAAS     = "PMTK301,2"
	AntennaOn      = "PGCMD,33,1"
	AntennaOff     = "PGCMD,33,0"
	HotStart       = "PMTK101"
	ColdStart      = "PMTK103"
	ClearEPO       = "PMTK127"
	QueryEPOStatus = "PMTK607"
)
