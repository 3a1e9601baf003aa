// Command rec2vtt converts libcluon recordings into WebVTT cue tracks.
//
// The track is written to standard output unless --output is given; logs and
// progress go to standard error. Running rec2vtt with --rec and --odvd and no
// subcommand behaves like "rec2vtt convert".
package main
