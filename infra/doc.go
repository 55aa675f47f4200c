// Package infra contains technical adapters such as the MQTT session,
// the zerolog logger and the data recorder sinks. These packages should
// depend only on the interfaces defined in the core packages.
package infra
