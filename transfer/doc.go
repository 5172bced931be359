// Package transfer implements warm call handoffs between operators.
//
// A transfer moves a live call from a source operator to a target
// operator through a short private briefing: a side room is created, an
// automatic summary of the call is generated and shared there, both
// operators talk, and on completion the target takes over the original
// room while the source leaves it.
//
// The Orchestrator drives the state machine
// (awaiting_agents -> briefing -> completing -> completed, with failed
// and cancelled as the other terminal phases) against pluggable
// collaborators: a RoomGateway for media rooms, a Summarizer for
// briefing material, a Notifier for event fan-out, a Directory for
// operator capacity, and a Recorder for durable history. Each live
// transfer owns a timeout timer; expiry cancels it through the same
// path as an explicit cancel.
package transfer
