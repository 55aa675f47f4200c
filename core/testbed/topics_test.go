package testbed

import "testing"

func TestCommandTopic(t *testing.T) {
	cases := []struct {
		name  string
		class DeviceClass
		dev   DeviceID
		kind  CommandKind
		want  string
	}{
		{
			"box echo",
			ClassBox, "otbox05", KindEcho,
			"opentestbed/deviceType/box/deviceId/otbox05/cmd/echo",
		},
		{
			"mote program",
			ClassMote, "00-12-4b-00-14-b5-b6-44", KindProgram,
			"opentestbed/deviceType/mote/deviceId/00-12-4b-00-14-b5-b6-44/cmd/program",
		},
		{
			"wildcard publishes to the literal broadcast id",
			ClassBox, Wildcard, KindDiscover,
			"opentestbed/deviceType/box/deviceId/all/cmd/discovermotes",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CommandTopic(tc.class, tc.dev, tc.kind); got != tc.want {
				t.Errorf("topic = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestResponseTopic(t *testing.T) {
	got := ResponseTopic(ClassBox, "otbox05", KindEcho)
	if got != "opentestbed/deviceType/box/deviceId/otbox05/resp/echo" {
		t.Errorf("topic = %q", got)
	}

	// The wildcard becomes the broker filter, one level only.
	got = ResponseTopic(ClassMote, Wildcard, KindProgram)
	if got != "opentestbed/deviceType/mote/deviceId/+/resp/program" {
		t.Errorf("wildcard topic = %q", got)
	}
}

func TestDeviceFromResponseTopic(t *testing.T) {
	dev, err := DeviceFromResponseTopic(ClassBox, KindEcho,
		"opentestbed/deviceType/box/deviceId/otbox05/resp/echo")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if dev != "otbox05" {
		t.Errorf("device = %q, want otbox05", dev)
	}
}

func TestDeviceFromResponseTopicInvertsResponseTopic(t *testing.T) {
	for _, class := range []DeviceClass{ClassBox, ClassMote} {
		for _, kind := range []CommandKind{KindDiscover, KindEcho, KindProgram, KindChangeSoftware} {
			topic := ResponseTopic(class, "dev42", kind)
			dev, err := DeviceFromResponseTopic(class, kind, topic)
			if err != nil {
				t.Fatalf("%s/%s: %v", class, kind, err)
			}
			if dev != "dev42" {
				t.Errorf("%s/%s: device = %q", class, kind, dev)
			}
		}
	}
}

func TestDeviceFromResponseTopicRejectsForeignTopics(t *testing.T) {
	cases := []struct {
		name  string
		topic string
	}{
		{"wrong class", "opentestbed/deviceType/mote/deviceId/otbox05/resp/echo"},
		{"wrong kind", "opentestbed/deviceType/box/deviceId/otbox05/resp/discovermotes"},
		{"command topic", "opentestbed/deviceType/box/deviceId/otbox05/cmd/echo"},
		{"empty device id", "opentestbed/deviceType/box/deviceId//resp/echo"},
		{"nested device id", "opentestbed/deviceType/box/deviceId/a/b/resp/echo"},
		{"wildcard in device id", "opentestbed/deviceType/box/deviceId/+/resp/echo"},
		{"unrelated", "opentestbed/uinject/arrived"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := DeviceFromResponseTopic(ClassBox, KindEcho, tc.topic); err == nil {
				t.Errorf("expected rejection of %q", tc.topic)
			}
		})
	}
}
