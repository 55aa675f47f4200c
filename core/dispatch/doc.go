// Package dispatch implements the command fan-out and response aggregation
// engine. A Runner publishes one command to a set of testbed devices over an
// MQTT session, collects the asynchronous responses delivered by the broker
// until all expected devices answered or a fixed deadline elapses, and renders
// a per-device report. The Command interface captures what varies between the
// testbed operations (discover, echo, program, changesoftware): the request
// payload, the response interpretation and the report shape.
package dispatch
