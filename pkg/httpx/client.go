package httpx

import (
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	autompgtls "github.com/HatiCode/autompg/pkg/tls"
)

// NewClient creates the client used to call an external model service.
// With tlsCfg enabled the client verifies the service against the configured
// CA and presents its certificate when one is set. Timeouts are left to the
// caller's context.
func NewClient(tlsCfg autompgtls.Config) (*http.Client, error) {
	var cryptoTLSConfig *tls.Config
	if tlsCfg.Enabled {
		var err error
		cryptoTLSConfig, err = autompgtls.NewClientTLSConfig(tlsCfg)
		if err != nil {
			return nil, fmt.Errorf("create TLS config: %w", err)
		}
	}

	return &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 5 * time.Second,
			TLSClientConfig:     cryptoTLSConfig,
		},
	}, nil
}
