package testbed

import "strings"

// DeviceClass selects which kind of testbed device a command addresses.
type DeviceClass int

const (
	// ClassBox addresses otbox hosts, each managing zero or more motes.
	ClassBox DeviceClass = iota
	// ClassMote addresses individual motes by hardware address.
	ClassMote
)

// String returns a human-readable representation of the device class.
func (c DeviceClass) String() string {
	switch c {
	case ClassBox:
		return "box"
	case ClassMote:
		return "mote"
	default:
		return "unknown"
	}
}

// DeviceID identifies a single device: an otbox name for box-class commands
// or a mote EUI-64 address for mote-class commands. Comparison is exact.
type DeviceID string

// Wildcard is the device token addressing every device of a class. It is
// resolved to a broadcast topic at dispatch time, never expanded to a list.
const Wildcard = "all"

// Deployed fleet sizes. A wildcard dispatch expects one response per deployed
// device of the command's class.
const (
	DefaultMotes = 76
	DefaultBoxes = 19
)

// FleetSize holds the number of deployed devices per class.
type FleetSize struct {
	Motes int
	Boxes int
}

// DefaultFleetSize returns the deployed testbed dimensions.
func DefaultFleetSize() FleetSize {
	return FleetSize{Motes: DefaultMotes, Boxes: DefaultBoxes}
}

// ForClass returns the fleet size of the given class.
func (f FleetSize) ForClass(c DeviceClass) int {
	if c == ClassMote {
		return f.Motes
	}
	return f.Boxes
}

// TargetSet is the set of devices one dispatch addresses: either an explicit
// ordered list or the class wildcard.
type TargetSet struct {
	devices  []DeviceID
	wildcard bool
}

// NewTargetSet builds a target set from raw device identifiers. Duplicates
// are dropped, order is preserved. The Wildcard token anywhere in the list,
// or an empty list, selects every device of the class.
func NewTargetSet(ids ...string) TargetSet {
	if len(ids) == 0 {
		return TargetSet{wildcard: true}
	}
	seen := make(map[DeviceID]bool, len(ids))
	var devices []DeviceID
	for _, id := range ids {
		if id == Wildcard {
			return TargetSet{wildcard: true}
		}
		dev := DeviceID(id)
		if seen[dev] {
			continue
		}
		seen[dev] = true
		devices = append(devices, dev)
	}
	return TargetSet{devices: devices}
}

// Wildcard reports whether the set addresses the whole class.
func (t TargetSet) Wildcard() bool { return t.wildcard }

// Devices returns the explicit device list, nil for a wildcard set.
func (t TargetSet) Devices() []DeviceID { return t.devices }

// Len returns the number of explicit devices, 0 for a wildcard set.
func (t TargetSet) Len() int { return len(t.devices) }

// ExpectedResponses returns how many responses a dispatch to this set should
// collect: the explicit device count, or the deployed fleet size of the
// class for a wildcard set.
func (t TargetSet) ExpectedResponses(c DeviceClass, fleet FleetSize) int {
	if t.wildcard {
		return fleet.ForClass(c)
	}
	return len(t.devices)
}

// Missing returns the explicit targets absent from responded, preserving
// request order. For a wildcard set the unresponsive devices cannot be
// named and the result is nil.
func (t TargetSet) Missing(responded map[DeviceID]bool) []DeviceID {
	if t.wildcard {
		return nil
	}
	var missing []DeviceID
	for _, dev := range t.devices {
		if !responded[dev] {
			missing = append(missing, dev)
		}
	}
	return missing
}

// String renders the set for log output.
func (t TargetSet) String() string {
	if t.wildcard {
		return Wildcard
	}
	parts := make([]string, len(t.devices))
	for i, dev := range t.devices {
		parts[i] = string(dev)
	}
	return strings.Join(parts, ",")
}
