package testbed

import (
	"fmt"
	"strings"
)

// Topic prefixes, one per device class. The testbed gateway routes on the
// deviceType segment.
const (
	boxTopicBase  = "opentestbed/deviceType/box/deviceId"
	moteTopicBase = "opentestbed/deviceType/mote/deviceId"
)

// CommandKind is the command segment of publish and response topics.
type CommandKind string

// Command kinds understood by the testbed firmware.
const (
	KindDiscover       CommandKind = "discovermotes"
	KindEcho           CommandKind = "echo"
	KindProgram        CommandKind = "program"
	KindChangeSoftware CommandKind = "changesoftware"
)

// TopicBase returns the topic prefix of the given device class.
func TopicBase(c DeviceClass) string {
	if c == ClassMote {
		return moteTopicBase
	}
	return boxTopicBase
}

// CommandTopic returns the topic a command for dev is published to. The
// wildcard maps to the literal broadcast id: MQTT forbids wildcards in
// publish topics, so every device subscribes to the "all" address itself.
func CommandTopic(c DeviceClass, dev DeviceID, kind CommandKind) string {
	return fmt.Sprintf("%s/%s/cmd/%s", TopicBase(c), dev, kind)
}

// ResponseTopic returns the subscription filter for dev's responses. The
// wildcard maps to the broker's single-level "+" filter.
func ResponseTopic(c DeviceClass, dev DeviceID, kind CommandKind) string {
	id := string(dev)
	if id == Wildcard {
		id = "+"
	}
	return fmt.Sprintf("%s/%s/resp/%s", TopicBase(c), id, kind)
}

// DeviceFromResponseTopic recovers the responding device id from an inbound
// topic. It is the exact inverse of ResponseTopic for well-formed topics; an
// error means the message does not belong to this dispatch and must be
// dropped.
func DeviceFromResponseTopic(c DeviceClass, kind CommandKind, topic string) (DeviceID, error) {
	prefix := TopicBase(c) + "/"
	suffix := "/resp/" + string(kind)
	if !strings.HasPrefix(topic, prefix) || !strings.HasSuffix(topic, suffix) {
		return "", fmt.Errorf("topic %q does not match %s+%s", topic, prefix, suffix)
	}
	dev := strings.TrimSuffix(strings.TrimPrefix(topic, prefix), suffix)
	if dev == "" || strings.ContainsAny(dev, "/+#") {
		return "", fmt.Errorf("topic %q carries no device id", topic)
	}
	return DeviceID(dev), nil
}
