// Package command defines the harness command set and its wire codec.
//
// Every command is a value type implementing Command and exactly one reply
// marker interface (BoolCommand, StateInfoCommand, ...). Encoding writes the
// variant's stable message type plus its TLV fields; decoding dispatches on the
// message type and validates fields against the variant's schema. Replies are
// decoded with the DecodeXReply function matching the shape the caller
// expects.
package command
