// Package events defines the dispatch related events emitted on the event bus.
//
// Available event types:
//   - DispatchEvent: a dispatch started collecting responses
//   - ResponseEvent: one device response was folded into the aggregate
package events
