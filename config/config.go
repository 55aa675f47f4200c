package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/openwsn-berkeley/opentb/core/dispatch"
	"github.com/openwsn-berkeley/opentb/infra/datalog"
	"github.com/openwsn-berkeley/opentb/infra/mqtt"
)

// Config is the full configuration of the opentb tools.
type Config struct {
	MQTT     mqtt.Config     `json:"mqtt"`
	Dispatch dispatch.Config `json:"dispatch"`
	Record   RecordConfig    `json:"record"`
}

// RecordConfig holds the data recorder settings.
type RecordConfig struct {
	// Directory receives the .jsonl capture files.
	Directory string `json:"directory"`
	// Name is the capture file base name.
	Name string `json:"name"`
	// DataTopic is the topic filter to capture.
	DataTopic string `json:"data_topic"`
	// MetricsAddr exposes recorder metrics over HTTP when set.
	MetricsAddr string `json:"metrics_addr"`
	// Influx optionally mirrors captured records to InfluxDB.
	Influx datalog.InfluxConfig `json:"influx"`
}

// SetDefaults fills the unset recorder fields.
func (c *RecordConfig) SetDefaults() {
	if c.Directory == "" {
		c.Directory = "logs"
	}
	if c.Name == "" {
		c.Name = "opentestbed"
	}
	if c.DataTopic == "" {
		c.DataTopic = datalog.UDPInjectTopic
	}
}

// Load reads the configuration file at path and applies OTB_ environment
// overrides (OTB_MQTT__BROKER maps to mqtt.broker). An empty path yields the
// built-in defaults, with the environment still applied.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	if path != "" {
		ext := strings.ToLower(filepath.Ext(path))
		var parser koanf.Parser
		switch ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, err
		}
	}
	if err := k.Load(env.Provider("OTB_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "otb_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.MQTT.SetDefaults()
	cfg.Dispatch.SetDefaults()
	cfg.Record.SetDefaults()
	if err := cfg.Dispatch.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
