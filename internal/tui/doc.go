// Package tui renders live capture progress with bubbletea. It consumes the
// same engine events the plain renderer does, so --tui changes presentation
// only, never capture semantics.
package tui
