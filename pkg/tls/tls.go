// Package tls builds TLS configurations for the prediction server and for the
// outbound connection to an external (byom) model service.
//
// Both sides enforce TLS 1.3. A CA file turns on peer verification: the
// server then requires client certificates (mTLS), and the client verifies the
// model service against that CA instead of the system roots.
package tls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// Config holds TLS file paths for one side of a connection.
type Config struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
	CAFile   string `yaml:"ca_file"`
}

// Validate checks that every configured file exists.
//
// A server needs a certificate and key; the CA is optional and enables mTLS.
// A client may run with only a CA, but a certificate requires its key.
func (c Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if (c.CertFile == "") != (c.KeyFile == "") {
		return errors.New("tls cert and key files must be set together")
	}

	for _, path := range []string{c.CertFile, c.KeyFile, c.CAFile} {
		if path == "" {
			continue
		}
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("tls file %q: %w", path, err)
		}
	}

	return nil
}

// NewServerTLSConfig creates the HTTPS configuration for the prediction server.
// The key pair is loaded into the config, so the server can be started with
// empty cert and key arguments. When CAFile is set, clients must present a
// certificate signed by it.
func NewServerTLSConfig(cfg Config) (*tls.Config, error) {
	if cfg.CertFile == "" || cfg.KeyFile == "" {
		return nil, errors.New("server tls requires cert and key files")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	if err != nil {
		return nil, fmt.Errorf("load server certificate: %w", err)
	}

	tlsCfg := &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS13,
	}

	if cfg.CAFile != "" {
		pool, err := loadCertPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		tlsCfg.ClientCAs = pool
		tlsCfg.ClientAuth = tls.RequireAndVerifyClientCert
	}

	return tlsCfg, nil
}

// NewClientTLSConfig creates the configuration used to reach a byom model
// service. CAFile replaces the system roots; CertFile and KeyFile, when set,
// are presented as the client certificate.
func NewClientTLSConfig(cfg Config) (*tls.Config, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	tlsCfg := &tls.Config{
		MinVersion: tls.VersionTLS13,
	}

	if cfg.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		tlsCfg.Certificates = []tls.Certificate{cert}
	}

	if cfg.CAFile != "" {
		pool, err := loadCertPool(cfg.CAFile)
		if err != nil {
			return nil, err
		}
		tlsCfg.RootCAs = pool
	}

	return tlsCfg, nil
}

func loadCertPool(caFile string) (*x509.CertPool, error) {
	caCert, err := os.ReadFile(caFile)
	if err != nil {
		return nil, fmt.Errorf("read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caCert) {
		return nil, errors.New("failed to parse CA certificate")
	}
	return pool, nil
}
