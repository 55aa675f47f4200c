package main

import "fmt"

// FleetConfig describes the simulated deployment.
type FleetConfig struct {
	Boxes       int
	MotesPerBox int
}

// GenerateFleet builds the boxes with their hosted motes. Box names and mote
// addresses are deterministic so repeated runs address the same devices.
func GenerateFleet(cfg FleetConfig) []*SimulatedBox {
	boxes := make([]*SimulatedBox, 0, cfg.Boxes)
	for i := 0; i < cfg.Boxes; i++ {
		box := &SimulatedBox{ID: fmt.Sprintf("otbox%02d", i+1)}
		for j := 0; j < cfg.MotesPerBox; j++ {
			box.Motes = append(box.Motes, SimulatedMote{
				EUI64:      fmt.Sprintf("00-12-4b-00-14-b5-%02x-%02x", i+1, j+1),
				SerialPort: fmt.Sprintf("/dev/ttyUSB%d", j),
			})
		}
		boxes = append(boxes, box)
	}
	return boxes
}
