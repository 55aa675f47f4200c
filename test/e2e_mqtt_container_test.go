package test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/openwsn-berkeley/opentb/core/dispatch"
	"github.com/openwsn-berkeley/opentb/core/firmware"
	"github.com/openwsn-berkeley/opentb/core/testbed"
	"github.com/openwsn-berkeley/opentb/infra/logger"
	"github.com/openwsn-berkeley/opentb/infra/mqtt"
	"github.com/openwsn-berkeley/opentb/internal/eventbus"
)

func waitForMQTTReady(broker string, timeout time.Duration) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		lastErr = token.Error()
		time.Sleep(100 * time.Millisecond)
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("timeout waiting for broker")
	}
	return lastErr
}

func startMosquitto(ctx context.Context, t *testing.T) (tc.Container, string) {
	t.Helper()
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
log_type notice
log_type information
connection_messages true
log_timestamp true
`
	dir := t.TempDir()
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		t.Fatalf("write conf: %v", err)
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		t.Fatalf("container start: %v", err)
	}
	host, err := cont.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())
	if err := waitForMQTTReady(broker, 5*time.Second); err != nil {
		t.Logf("mosquitto not ready at %s: %v", broker, err)
		t.Skip("Mosquitto not ready after retries")
	}
	return cont, broker
}

// connectDeviceSim starts a paho client impersonating testbed devices: for
// every subscribed command topic it answers on the matching response topic
// with the payload produced by respond. A nil respond leaves the device mute.
func connectDeviceSim(t *testing.T, broker, clientID string, topics map[string]func(request []byte) []byte) paho.Client {
	t.Helper()
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	cli := paho.NewClient(opts)
	var connErr error
	for i := 0; i < 5; i++ {
		token := cli.Connect()
		token.Wait()
		connErr = token.Error()
		if connErr == nil {
			break
		}
		t.Logf("device sim connect attempt %d: %v", i+1, connErr)
		time.Sleep(time.Duration(i+1) * 100 * time.Millisecond)
	}
	if connErr != nil {
		t.Logf("device sim connect failed: %v", connErr)
		t.Skip("Mosquitto not ready after retries")
	}
	for cmdTopic, respond := range topics {
		respond := respond
		respTopic := strings.Replace(cmdTopic, "/cmd/", "/resp/", 1)
		if token := cli.Subscribe(cmdTopic, 0, func(_ paho.Client, m paho.Message) {
			if respond == nil {
				return
			}
			cli.Publish(respTopic, 0, false, respond(m.Payload()))
		}); token.Wait() && token.Error() != nil {
			t.Fatalf("subscribe %s: %v", cmdTopic, token.Error())
		}
	}
	return cli
}

func echoResponder(request []byte) []byte {
	var req struct {
		Payload string `json:"payload"`
	}
	_ = json.Unmarshal(request, &req)
	payload, _ := json.Marshal(map[string]any{
		"success":   true,
		"returnVal": map[string]string{"payload": req.Payload},
	})
	return payload
}

func TestEchoDispatchWithMQTTContainer(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()

	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	base := testbed.TopicBase(testbed.ClassBox)
	sim := connectDeviceSim(t, broker, "box-sim", map[string]func([]byte) []byte{
		base + "/otbox02/cmd/echo": echoResponder,
		base + "/otbox10/cmd/echo": echoResponder,
	})
	defer sim.Disconnect(100)

	session, err := mqtt.Dial(mqtt.Config{Broker: broker, ClientID: "opentb-e2e"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	runner, err := dispatch.NewRunner(session, 10*time.Second, testbed.DefaultFleetSize(), logger.NopLogger{}, eventbus.New())
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	st, err := runner.Run(ctx, dispatch.EchoCommand{}, testbed.NewTargetSet("otbox02", "otbox10"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if st.Responded() != 2 {
		t.Errorf("responded = %d, want 2", st.Responded())
	}
	if got := st.Succeeded(); !reflect.DeepEqual(got, []testbed.DeviceID{"otbox02", "otbox10"}) &&
		!reflect.DeepEqual(got, []testbed.DeviceID{"otbox10", "otbox02"}) {
		t.Errorf("succeeded = %v", got)
	}
	if len(st.Failed()) != 0 || len(st.Missing()) != 0 {
		t.Errorf("failed = %v, missing = %v", st.Failed(), st.Missing())
	}
	if st.TimedOut {
		t.Error("dispatch must complete before the deadline")
	}
	if got := st.Detail("otbox02"); got != dispatch.EchoTestString {
		t.Errorf("otbox02 echoed %q", got)
	}

	report := dispatch.EchoCommand{}.Report(st)
	var okLines int
	for _, line := range report {
		if strings.Contains(line, "OK") {
			okLines++
		}
		if strings.Contains(line, "FAIL") || strings.Contains(line, "MUTE") {
			t.Errorf("unexpected outcome line %q", line)
		}
	}
	if okLines != 2 {
		t.Errorf("report has %d OK lines, want 2:\n%s", okLines, strings.Join(report, "\n"))
	}
}

func TestProgramDispatchReportsMuteMote(t *testing.T) {
	if _, err := exec.LookPath("docker"); err != nil {
		t.Skip("docker not installed")
	}
	ctx := context.Background()

	cont, broker := startMosquitto(ctx, t)
	defer func() { _ = cont.Terminate(ctx) }()

	base := testbed.TopicBase(testbed.ClassMote)
	sim := connectDeviceSim(t, broker, "mote-sim", map[string]func([]byte) []byte{
		base + "/devA/cmd/program": func([]byte) []byte {
			return []byte(`{"success": true}`)
		},
		base + "/devB/cmd/program": nil,
	})
	defer sim.Disconnect(100)

	img := firmware.New("main.ihex", []byte(":020000040027D3\n:00000001FF\n"), firmware.FormatHex)
	command, err := dispatch.NewProgramCommand(img)
	if err != nil {
		t.Fatalf("program command: %v", err)
	}

	session, err := mqtt.Dial(mqtt.Config{Broker: broker, ClientID: "opentb-e2e"})
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	runner, err := dispatch.NewRunner(session, 3*time.Second, testbed.DefaultFleetSize(), logger.NopLogger{}, eventbus.New())
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	st, err := runner.Run(ctx, command, testbed.NewTargetSet("devA", "devB"))
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	if st.MsgCount != 1 || st.SuccessCount != 1 {
		t.Errorf("msg_count = %d, success_count = %d, want 1 and 1", st.MsgCount, st.SuccessCount)
	}
	if !st.TimedOut {
		t.Error("devB is silent, the deadline must elapse")
	}
	if got := st.Missing(); !reflect.DeepEqual(got, []testbed.DeviceID{"devB"}) {
		t.Errorf("missing = %v, want [devB]", got)
	}

	report := command.Report(st)
	joined := strings.Join(report, "\n")
	if !strings.Contains(joined, "devA OK") {
		t.Errorf("report misses devA OK:\n%s", joined)
	}
	if !strings.Contains(joined, "devB MUTE") {
		t.Errorf("report misses devB MUTE:\n%s", joined)
	}
}
