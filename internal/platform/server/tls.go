package server

import (
	"crypto/tls"
	"fmt"

	"cyborg-vpn/internal/platform/config"
)

// LoadTLSConfig 載入 HTTPS 憑證
func LoadTLSConfig(cfg config.ServerConfig) (*tls.Config, error) {
	if cfg.CertPath == "" || cfg.KeyPath == "" {
		return nil, fmt.Errorf("cert_path and key_path are required when use_https is enabled")
	}

	serverCert, err := tls.LoadX509KeyPair(cfg.CertPath, cfg.KeyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load server certificate: %w", err)
	}

	return &tls.Config{
		Certificates: []tls.Certificate{serverCert},
		MinVersion:   tls.VersionTLS12,
	}, nil
}
