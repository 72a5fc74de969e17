package security

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

var tlsVersions = map[string]uint16{
	"1.2": tls.VersionTLS12,
	"1.3": tls.VersionTLS13,
}

// TLSConfig holds client TLS settings. Nothing is built unless Enabled is set.
type TLSConfig struct {
	Enabled bool `mapstructure:"enabled"`

	// SkipVerify disables server certificate verification.
	SkipVerify bool `mapstructure:"skip_verify"`

	// CAFile verifies the server instead of the system pool.
	CAFile string `mapstructure:"ca_file"`

	// CertFile and KeyFile enable mutual TLS and must be set together.
	CertFile string `mapstructure:"cert_file"`
	KeyFile  string `mapstructure:"key_file"`

	ServerName string `mapstructure:"server_name"`

	// MinVersion is "1.2" (default) or "1.3".
	MinVersion string `mapstructure:"min_version" validate:"omitempty,oneof=1.2 1.3"`
}

// Build returns the *tls.Config to dial with, or nil when TLS is off.
func (c *TLSConfig) Build() (*tls.Config, error) {
	if c == nil || !c.Enabled {
		return nil, nil
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	minVersion := uint16(tls.VersionTLS12)
	if c.MinVersion != "" {
		minVersion = tlsVersions[c.MinVersion]
	}
	cfg := &tls.Config{
		InsecureSkipVerify: c.SkipVerify, //nolint:gosec // opt-in for test clusters
		ServerName:         c.ServerName,
		MinVersion:         minVersion,
	}
	if err := c.loadCA(cfg); err != nil {
		return nil, err
	}
	if err := c.loadClientCert(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings that can be judged without touching the files.
func (c *TLSConfig) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	if (c.CertFile != "") != (c.KeyFile != "") {
		return fmt.Errorf("tls: cert_file and key_file must be set together")
	}
	if _, ok := tlsVersions[c.MinVersion]; c.MinVersion != "" && !ok {
		return fmt.Errorf("tls: unsupported min_version %q", c.MinVersion)
	}
	return nil
}

// IsEnabled reports whether connections should use TLS.
func (c *TLSConfig) IsEnabled() bool {
	return c != nil && c.Enabled
}

func (c *TLSConfig) loadCA(cfg *tls.Config) error {
	if c.CAFile == "" {
		return nil
	}
	pem, err := os.ReadFile(c.CAFile)
	if err != nil {
		return fmt.Errorf("tls: read ca_file: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return fmt.Errorf("tls: no certificates in %s", c.CAFile)
	}
	cfg.RootCAs = pool
	return nil
}

func (c *TLSConfig) loadClientCert(cfg *tls.Config) error {
	if c.CertFile == "" {
		return nil
	}
	cert, err := tls.LoadX509KeyPair(c.CertFile, c.KeyFile)
	if err != nil {
		return fmt.Errorf("tls: load client certificate: %w", err)
	}
	cfg.Certificates = []tls.Certificate{cert}
	return nil
}
