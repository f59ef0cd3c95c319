package gps

import (
	"fmt"
	"strconv"
	"strings"
)

// LocusStatus is the reply to a LOCUS query:
//
//	$PMTKLOG,serial,type,mode,content,interval,distance,speed,status,records,percent*CS
type LocusStatus struct {
	Serial int
	// Type is 0 for overlap and 1 for stop when full.
	Type int
	// Mode is a bit mask: 0x01 always locate, 0x02 fix only, 0x04 normal,
	// 0x08 interval, 0x10 distance, 0x20 speed.
	Mode     int
	Config   int
	Interval int
	Distance int
	Speed    int
	Logging  bool
	Records  int
	// Percent of the flash in use.
	Percent int
}

// ParseLocusStatus decodes a $PMTKLOG line.
func ParseLocusStatus(line string) (LocusStatus, error) {
	line = strings.TrimSpace(line)
	if i := strings.LastIndexByte(line, '*'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Split(line, ",")
	if len(fields) != 11 || fields[0] != "$PMTKLOG" {
		return LocusStatus{}, fmt.Errorf("gps: not a LOCUS status: %q", line)
	}
	var v [10]int
	for i, f := range fields[1:] {
		base := 10
		if i == 2 {
			base = 16
		}
		n, err := strconv.ParseInt(f, base, 32)
		if err != nil {
			return LocusStatus{}, fmt.Errorf("gps: LOCUS field %d: %w", i+1, err)
		}
		v[i] = int(n)
	}
	return LocusStatus{
		Serial:   v[0],
		Type:     v[1],
		Mode:     v[2],
		Config:   v[3],
		Interval: v[4],
		Distance: v[5],
		Speed:    v[6],
		Logging:  v[7] == 0,
		Records:  v[8],
		Percent:  v[9],
	}, nil
}
