// Package domain models daily aircraft position history as published by
// readsb-based aggregators (globe_history archives).
//
// # Data Source
//
// Each day is published as a tar archive split into parts (".aa", ".ab", ...)
// that are concatenated in suffix order. Inside the archive, every aircraft
// seen that day has one gzip-compressed JSON trace file under traces/<xx>/,
// where <xx> is the last two hex digits of its ICAO address.
//
// # Trace Document
//
//	{
//	  "icao": "48ae04",        transponder address, lowercase hex
//	  "t": "B738",             aircraft type designator, optional
//	  "timestamp": 1714089600, base time in unix seconds (may be fractional)
//	  "trace": [[...], ...]    position samples
//	}
//
// Each trace element is a positional array. The fields used here are:
//
//	[0]  seconds since the base timestamp
//	[1]  latitude
//	[2]  longitude
//	[10] geometric altitude in feet, or null
//
// Remaining fields (ground speed, track, flags, vertical rate, aircraft
// details) are ignored.
//
// # Output
//
// Samples outside the configured Boundary are dropped. A trace with no
// remaining samples produces no output. Survivors are written as one JSON
// object per aircraft at <root>/<last two chars of ICAO>/<ICAO>.json with
// the ICAO uppercased.
package domain
