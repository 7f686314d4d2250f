// Package config defines the playground configuration structure.
package config

// Config represents the complete playground configuration loaded from YAML.
type Config struct {
	Net struct {
		Host        string `yaml:"host,omitempty"`         // default 127.0.0.1; peers are loopback only
		ConnTimeout int    `yaml:"conn_timeout,omitempty"` // seconds; default 5
		PingPeriod  int    `yaml:"ping_period,omitempty"`  // seconds; default 2
		Transport   string `yaml:"transport,omitempty"`    // "tcp" | "dtls"; default tcp
		DTLS        struct {
			Certs struct {
				Mode string `yaml:"mode,omitempty"` // "self_signed" | "files"
				Path string `yaml:"path,omitempty"` // for mode=files
				Cert string `yaml:"cert,omitempty"`
				Key  string `yaml:"key,omitempty"`
				CA   string `yaml:"ca,omitempty"` // optional, for ClientCAs when client_auth requires it
			} `yaml:"certs"`
			Security struct {
				ClientAuth           string   `yaml:"client_auth,omitempty"`            // no_client_cert | request_client_cert | require_any_client_cert | verify_client_cert_if_given | require_and_verify_client_cert
				CipherSuites         []string `yaml:"cipher_suites,omitempty"`          // optional, nil/empty = Pion default
				ExtendedMasterSecret string   `yaml:"extended_master_secret,omitempty"` // request | require | disable
			} `yaml:"security"`
			Tuning struct {
				MTU                    int `yaml:"mtu,omitempty"`                      // default 1200
				ReplayProtectionWindow int `yaml:"replay_protection_window,omitempty"` // default 64
			} `yaml:"tuning"`
		} `yaml:"dtls"`
	} `yaml:"net"`
}
