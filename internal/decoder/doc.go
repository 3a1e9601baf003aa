// Package decoder turns libcluon message payloads into named field values
// using descriptors parsed from an ODVD specification.
//
// Payloads follow protobuf wire rules with libcluon's type mapping: signed
// integers are zig-zag varints, unsigned integers, bool and char are plain
// varints, float and double are fixed32 and fixed64, and string, bytes and
// nested messages are length-delimited.
package decoder
