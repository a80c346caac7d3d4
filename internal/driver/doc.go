// Package driver is the client for the game-control harness.
//
// A Client owns one transport.Conn and exposes one method per command. Every
// method holds the client mutex for its whole exchange, so callers on any
// number of goroutines see strict command/reply pairing. Methods that wait on
// the game (ZoomOut, MakeMove) keep the lock through the settle delay.
package driver
