package main

import (
	"encoding/json"
	"log"
)

// Response payloads mirror what the otbox agent publishes. Marshalling plain
// maps of bools and strings cannot fail, the error checks guard refactors.

func buildEchoResponse(request []byte) []byte {
	var req struct {
		Payload string `json:"payload"`
	}
	if err := json.Unmarshal(request, &req); err != nil {
		log.Printf("decode echo request: %v", err)
	}
	return mustMarshal(map[string]any{
		"success":   true,
		"returnVal": map[string]string{"payload": req.Payload},
	})
}

func buildDiscoverResponse(motes []SimulatedMote) []byte {
	entries := make([]map[string]any, 0, len(motes))
	for _, m := range motes {
		entries = append(entries, map[string]any{
			"serialport":       m.SerialPort,
			"EUI64":            m.EUI64,
			"bootload_success": true,
		})
	}
	return mustMarshal(map[string]any{
		"success":   true,
		"returnVal": map[string]any{"motes": entries},
	})
}

func buildCountedResponse() []byte {
	return mustMarshal(map[string]any{"success": true})
}

func mustMarshal(v any) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		log.Printf("marshal response: %v", err)
		return []byte(`{"success": false}`)
	}
	return payload
}
