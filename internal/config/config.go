// Package config parses the process-level YAML configuration document
// and applies command-line overrides on top of it.
package config

import (
	"errors"
	"fmt"
	"runtime"

	"gopkg.in/yaml.v2"
)

// AdapterConfig is the {enabled, host, port, optional TLS cert/key}
// shape shared by the three protocol adapters.
type AdapterConfig struct {
	Enabled     bool
	Host        string
	Port        int
	TLSCertFile string
	TLSKeyFile  string
}

// Config is the fully resolved process configuration: data_directory,
// thread_pool_size, and one AdapterConfig per wire protocol.
type Config struct {
	DataDirectory  string
	ThreadPoolSize int

	TCP  AdapterConfig
	HTTP AdapterConfig
	WS   AdapterConfig
}

// Default returns a Config with every adapter disabled and a thread pool
// sized to the host's hardware parallelism — the state a process would
// have with no config file and no overriding flags at all.
func Default() *Config {
	return &Config{
		DataDirectory:  "./data",
		ThreadPoolSize: runtime.NumCPU(),
	}
}

// Parse decodes a YAML configuration document into a Config, applying
// the same "0 thread_pool_size means auto-detect" and string-default
// conventions as the teacher's own Parse method.
func Parse(data []byte) (*Config, error) {
	var aux struct {
		DataDirectory  string `yaml:"data_directory"`
		ThreadPoolSize int    `yaml:"thread_pool_size"`
		TCP            struct {
			Enabled bool   `yaml:"enabled"`
			Host    string `yaml:"host"`
			Port    int    `yaml:"port"`
			TLSCert string `yaml:"tls_cert"`
			TLSKey  string `yaml:"tls_key"`
		} `yaml:"tcp"`
		HTTP struct {
			Enabled bool   `yaml:"enabled"`
			Host    string `yaml:"host"`
			Port    int    `yaml:"port"`
			TLSCert string `yaml:"tls_cert"`
			TLSKey  string `yaml:"tls_key"`
		} `yaml:"http"`
		WS struct {
			Enabled bool   `yaml:"enabled"`
			Host    string `yaml:"host"`
			Port    int    `yaml:"port"`
			TLSCert string `yaml:"tls_cert"`
			TLSKey  string `yaml:"tls_key"`
		} `yaml:"ws"`
	}

	if err := yaml.Unmarshal(data, &aux); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if aux.DataDirectory == "" {
		return nil, errors.New("config: data_directory must be set")
	}

	cfg := Default()
	cfg.DataDirectory = aux.DataDirectory
	if aux.ThreadPoolSize > 0 {
		cfg.ThreadPoolSize = aux.ThreadPoolSize
	}

	cfg.TCP = AdapterConfig{Enabled: aux.TCP.Enabled, Host: aux.TCP.Host, Port: aux.TCP.Port, TLSCertFile: aux.TCP.TLSCert, TLSKeyFile: aux.TCP.TLSKey}
	cfg.HTTP = AdapterConfig{Enabled: aux.HTTP.Enabled, Host: aux.HTTP.Host, Port: aux.HTTP.Port, TLSCertFile: aux.HTTP.TLSCert, TLSKeyFile: aux.HTTP.TLSKey}
	cfg.WS = AdapterConfig{Enabled: aux.WS.Enabled, Host: aux.WS.Host, Port: aux.WS.Port, TLSCertFile: aux.WS.TLSCert, TLSKeyFile: aux.WS.TLSKey}

	return cfg, nil
}

// Overrides carries the command-line flag values that take precedence
// over whatever the YAML document said. A zero Port means "flag not
// given" — any port-override flag implies enabling that adapter, per
// spec.md §6.
type Overrides struct {
	DataDirectory string
	TCPPort       int
	HTTPPort      int
	WSPort        int
}

// Apply layers o onto cfg in place, following "any port-override flag
// implies enabling the corresponding adapter."
func (o Overrides) Apply(cfg *Config) {
	if o.DataDirectory != "" {
		cfg.DataDirectory = o.DataDirectory
	}
	if o.TCPPort != 0 {
		cfg.TCP.Port = o.TCPPort
		cfg.TCP.Enabled = true
	}
	if o.HTTPPort != 0 {
		cfg.HTTP.Port = o.HTTPPort
		cfg.HTTP.Enabled = true
	}
	if o.WSPort != 0 {
		cfg.WS.Port = o.WSPort
		cfg.WS.Enabled = true
	}
}
