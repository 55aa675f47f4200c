package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/openwsn-berkeley/opentb/core/firmware"
	"github.com/openwsn-berkeley/opentb/core/testbed"
)

type programRequest struct {
	Token       int    `json:"token"`
	Description string `json:"description"`
	Hex         string `json:"hex"`
}

// ProgramCommand flashes a firmware image onto each target mote.
type ProgramCommand struct {
	image *firmware.Image
}

// NewProgramCommand wraps a loaded image, refusing one that failed the
// bootloader backdoor check. The verdict is enforced here so that an unsafe
// image can never reach a publish.
func NewProgramCommand(img *firmware.Image) (*ProgramCommand, error) {
	if img == nil {
		return nil, fmt.Errorf("program: no image provided")
	}
	if err := img.Verdict(); err != nil {
		return nil, err
	}
	return &ProgramCommand{image: img}, nil
}

func (*ProgramCommand) Kind() testbed.CommandKind  { return testbed.KindProgram }
func (*ProgramCommand) Class() testbed.DeviceClass { return testbed.ClassMote }

func (c *ProgramCommand) RequestPayload(token int) ([]byte, error) {
	return json.Marshal(programRequest{
		Token:       token,
		Description: c.image.Name(),
		Hex:         c.image.Base64(),
	})
}

func (*ProgramCommand) ParseResponse(dev testbed.DeviceID, payload []byte) (Record, bool) {
	return parseCountedResponse(dev, payload)
}

func (*ProgramCommand) Report(st *State) []string {
	return tallyLines(st, "motes")
}
