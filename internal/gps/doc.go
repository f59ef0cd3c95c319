// Package gps drives a MediaTek GPS receiver over a transport: it assembles
// and parses the sentence stream, sends PMTK commands, runs the LOCUS logger
// and standby helpers, uploads EPO data, and offers a background Service that
// publishes snapshots for consumers.
package gps
