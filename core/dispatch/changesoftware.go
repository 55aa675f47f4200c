package dispatch

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/openwsn-berkeley/opentb/core/testbed"
)

type changeSoftwareRequest struct {
	Token   int    `json:"token"`
	Version string `json:"version"`
	URL     string `json:"url"`
}

// probeClient performs the pre-dispatch reachability check of the bundle URL.
var probeClient = &http.Client{Timeout: 10 * time.Second}

// ChangeSoftwareCommand tells each target box to fetch and install a new
// testbed software bundle.
type ChangeSoftwareCommand struct {
	url     string
	version string
}

// NewChangeSoftwareCommand probes the bundle URL with a dummy request before
// accepting it, so a mistyped URL fails the dispatch before anything is
// published. Only reachability is checked; the boxes validate the bundle
// themselves.
func NewChangeSoftwareCommand(url, version string) (*ChangeSoftwareCommand, error) {
	if url == "" {
		return nil, fmt.Errorf("changesoftware: url is required")
	}
	resp, err := probeClient.Get(url)
	if err != nil {
		return nil, fmt.Errorf("verify url %s: %w", url, err)
	}
	resp.Body.Close()
	return &ChangeSoftwareCommand{url: url, version: version}, nil
}

func (*ChangeSoftwareCommand) Kind() testbed.CommandKind  { return testbed.KindChangeSoftware }
func (*ChangeSoftwareCommand) Class() testbed.DeviceClass { return testbed.ClassBox }

func (c *ChangeSoftwareCommand) RequestPayload(token int) ([]byte, error) {
	return json.Marshal(changeSoftwareRequest{
		Token:   token,
		Version: c.version,
		URL:     c.url,
	})
}

func (*ChangeSoftwareCommand) ParseResponse(dev testbed.DeviceID, payload []byte) (Record, bool) {
	return parseCountedResponse(dev, payload)
}

func (*ChangeSoftwareCommand) Report(st *State) []string {
	return tallyLines(st, "otboxes")
}
