// Package config loads and validates the YAML configuration for a
// goroutercore server process: ports, TLS identity, connection timeouts
// and worker pool sizing. It is grounded on config.Config in the teacher,
// keeping the same DefaultConfig/Process/InitConfigFromFile shape and YAML
// struct-tag conventions while dropping everything specific to backend
// routing (NATS mbus, route registry pruning, load-balancing strategy,
// route services), which this library does not implement.
package config

import (
	"crypto/tls"
	"fmt"
	"os"
	"runtime"
	"time"

	"code.cloudfoundry.org/localip"
	"gopkg.in/yaml.v2"
)

// LogLevel mirrors the teacher's string-valued log level configuration.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

// LoggingConfig configures the zap-backed logger every component in the
// process shares.
type LoggingConfig struct {
	Level   LogLevel `yaml:"level"`
	JobName string   `yaml:"job_name,omitempty"`
}

var defaultLoggingConfig = LoggingConfig{
	Level:   LogLevelInfo,
	JobName: "goroutercore",
}

// TLSConfig configures the optional TLS listener.
type TLSConfig struct {
	Enable        bool   `yaml:"enable"`
	Port          uint16 `yaml:"port"`
	CertChain     string `yaml:"cert_chain,omitempty"`
	PrivateKey    string `yaml:"private_key,omitempty"`
	CACerts       string `yaml:"ca_certs,omitempty"`
	ClientAuth    bool   `yaml:"client_auth,omitempty"`
	MinTLSVersion uint16 `yaml:"-"`

	// CertPath/KeyPath/CAPath are the file paths the TLS listener loads its
	// certificate, key and client CA bundle from. Process does not resolve
	// them, and the inline PEM fields above (CertChain/PrivateKey/CACerts)
	// are not read by Process or by the TLS listener.
	CertPath string `yaml:"cert_path,omitempty"`
	KeyPath  string `yaml:"key_path,omitempty"`
	CAPath   string `yaml:"ca_path,omitempty"`
}

// StatusConfig configures the operational health/metrics listener, kept
// separate from the main traffic port the way the teacher separates
// StatusConfig from the router's own Port.
type StatusConfig struct {
	Host string `yaml:"host"`
	Port uint16 `yaml:"port"`
}

var defaultStatusConfig = StatusConfig{
	Host: "0.0.0.0",
	Port: 8080,
}

// Config is the root configuration for a goroutercore server process.
type Config struct {
	Status  StatusConfig  `yaml:"status"`
	Logging LoggingConfig `yaml:"logging"`
	TLS     TLSConfig     `yaml:"tls"`

	Port         uint16 `yaml:"port"`
	Index        uint   `yaml:"index"`
	GoMaxProcs   int    `yaml:"go_max_procs"`
	EnablePROXY  bool   `yaml:"enable_proxy,omitempty"`
	DisableHTTP  bool   `yaml:"disable_http,omitempty"`
	WorkerCount  int    `yaml:"worker_count"`

	FrontendIdleTimeout time.Duration `yaml:"frontend_idle_timeout,omitempty"`
	DrainWait           time.Duration `yaml:"drain_wait,omitempty"`
	DrainTimeout        time.Duration `yaml:"drain_timeout,omitempty"`

	HTMLErrorTemplateFile string `yaml:"html_error_template_file,omitempty"`

	// Ip is resolved at Process time via code.cloudfoundry.org/localip,
	// not read from YAML, for the same reason the teacher resolves it
	// rather than taking an operator-supplied value: the outbound
	// interface address is what actually gets advertised.
	Ip string `yaml:"-"`
}

var defaultConfig = Config{
	Status:      defaultStatusConfig,
	Logging:     defaultLoggingConfig,
	Port:        8081,
	Index:       0,
	GoMaxProcs:  -1,
	EnablePROXY: false,
	DisableHTTP: false,
	WorkerCount: 0,

	FrontendIdleTimeout: 900 * time.Second,
	DrainWait:           0 * time.Second,
	DrainTimeout:        60 * time.Second,

	TLS: TLSConfig{
		Port:          443,
		MinTLSVersion: tls.VersionTLS12,
	},
}

// DefaultConfig returns a Config populated with the same defaults the
// teacher ships, before any operator YAML is applied.
func DefaultConfig() (*Config, error) {
	c := defaultConfig
	return &c, nil
}

// Process fills in values that cannot come from YAML (the outbound IP,
// GOMAXPROCS when left at auto) and validates cross-field constraints, the
// same role the teacher's Config.Process plays.
func (c *Config) Process() error {
	if c.GoMaxProcs == -1 {
		c.GoMaxProcs = runtime.NumCPU()
	}
	if c.WorkerCount <= 0 {
		c.WorkerCount = runtime.NumCPU() * 4
	}

	c.Logging.JobName = "goroutercore"

	if c.DrainTimeout == 0 {
		c.DrainTimeout = 60 * time.Second
	}

	var err error
	c.Ip, err = localip.LocalIP()
	if err != nil {
		return err
	}

	if c.DisableHTTP && !c.TLS.Enable {
		return fmt.Errorf("neither http nor tls listener is enabled: tls.enable: %t, disable_http: %t", c.TLS.Enable, c.DisableHTTP)
	}

	return nil
}

// Initialize unmarshals configYAML on top of the receiver's current
// values, so callers typically start from DefaultConfig and layer operator
// YAML over it.
func (c *Config) Initialize(configYAML []byte) error {
	return yaml.Unmarshal(configYAML, c)
}

// InitConfigFromFile reads, unmarshals and processes the YAML config file
// at path, returning a ready-to-use Config.
func InitConfigFromFile(path string) (*Config, error) {
	c, err := DefaultConfig()
	if err != nil {
		return nil, err
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if err := c.Initialize(b); err != nil {
		return nil, err
	}

	if err := c.Process(); err != nil {
		return nil, err
	}

	return c, nil
}
