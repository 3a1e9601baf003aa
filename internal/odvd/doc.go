// Package odvd parses ODVD message specifications into descriptors.
//
// An ODVD file declares messages with a numeric identifier and an ordered list
// of typed fields:
//
//	package opendlv.proxy;
//
//	message GroundSpeedReading [id = 1046] {
//	    float groundSpeed [id = 1];
//	}
//
// Parse and ParseFile return a Registry that maps data type identifiers (and
// message names) to Descriptors. The decoder package consumes descriptors to
// turn envelope payloads into named field values; the registry resolves nested
// message types for it.
package odvd
