// Package dtls builds Pion DTLS configuration from playground config.
package dtls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"path/filepath"

	"github.com/peerlab/playground/internal/config"
	"github.com/pion/dtls/v3"
	"github.com/pion/dtls/v3/pkg/crypto/selfsign"
)

var (
	cipherSuiteMap = map[string]dtls.CipherSuiteID{
		"TLS_ECDHE_ECDSA_WITH_AES_128_CCM":        dtls.TLS_ECDHE_ECDSA_WITH_AES_128_CCM,
		"TLS_ECDHE_ECDSA_WITH_AES_128_CCM_8":      dtls.TLS_ECDHE_ECDSA_WITH_AES_128_CCM_8,
		"TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256": dtls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
		"TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256":   dtls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
		"TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384": dtls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
		"TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384":   dtls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
	}

	clientAuthMap = map[string]dtls.ClientAuthType{
		"no_client_cert":                 dtls.NoClientCert,
		"request_client_cert":            dtls.RequestClientCert,
		"require_any_client_cert":        dtls.RequireAnyClientCert,
		"verify_client_cert_if_given":    dtls.VerifyClientCertIfGiven,
		"require_and_verify_client_cert": dtls.RequireAndVerifyClientCert,
	}

	extendedMasterSecretMap = map[string]dtls.ExtendedMasterSecretType{
		"request": dtls.RequestExtendedMasterSecret,
		"require": dtls.RequireExtendedMasterSecret,
		"disable": dtls.DisableExtendedMasterSecret,
	}
)

func clientAuthRequiresClientCAs(t dtls.ClientAuthType) bool {
	return t != dtls.NoClientCert
}

// NewDTLSConfig builds a Pion DTLS Config from cfg.Net.DTLS. If certs.mode
// is empty it defaults to "self_signed", which is the playground posture:
// every node shares the same self-signed identity and dial sides skip
// verification, since all traffic stays on loopback.
func NewDTLSConfig(cfg *config.Config) (*dtls.Config, error) {
	d := &cfg.Net.DTLS
	mode := d.Certs.Mode
	if mode == "" {
		mode = "self_signed"
	}

	var certs []tls.Certificate
	var clientCAs *x509.CertPool
	insecureSkipVerify := false

	switch mode {
	case "self_signed":
		cert, err := selfsign.GenerateSelfSigned()
		if err != nil {
			return nil, fmt.Errorf("dtls.certs: self_signed: %w", err)
		}
		certs = []tls.Certificate{cert}
		insecureSkipVerify = true
	case "files":
		if d.Certs.Path == "" || d.Certs.Cert == "" || d.Certs.Key == "" {
			return nil, fmt.Errorf("dtls.certs: mode=files requires path, cert and key")
		}
		cert, err := tls.LoadX509KeyPair(
			filepath.Join(d.Certs.Path, d.Certs.Cert),
			filepath.Join(d.Certs.Path, d.Certs.Key),
		)
		if err != nil {
			return nil, fmt.Errorf("dtls.certs: load keypair: %w", err)
		}
		certs = []tls.Certificate{cert}

		if clientAuthRequiresClientCAs(resolveClientAuth(d.Security.ClientAuth)) {
			if d.Certs.CA == "" {
				return nil, fmt.Errorf("dtls.certs: client_auth %q requires ca", d.Security.ClientAuth)
			}
			pem, err := os.ReadFile(filepath.Join(d.Certs.Path, d.Certs.CA))
			if err != nil {
				return nil, fmt.Errorf("dtls.certs: read ca: %w", err)
			}
			pool := x509.NewCertPool()
			if !pool.AppendCertsFromPEM(pem) {
				return nil, fmt.Errorf("dtls.certs: failed to append ca")
			}
			clientCAs = pool
		}
	default:
		return nil, fmt.Errorf("dtls.certs: unknown mode %q", mode)
	}

	clientAuth := resolveClientAuth(d.Security.ClientAuth)
	if mode == "self_signed" && clientAuthRequiresClientCAs(clientAuth) {
		return nil, fmt.Errorf("dtls.certs: in self_signed mode client_auth must be no_client_cert; use mode=files with ca for client verification")
	}

	cipherSuites, err := resolveCipherSuites(d.Security.CipherSuites)
	if err != nil {
		return nil, err
	}

	mtu := d.Tuning.MTU
	if mtu <= 0 {
		mtu = 1200
	}
	rpw := d.Tuning.ReplayProtectionWindow
	if rpw <= 0 {
		rpw = 64
	}

	return &dtls.Config{
		Certificates:           certs,
		ClientAuth:             clientAuth,
		ClientCAs:              clientCAs,
		CipherSuites:           cipherSuites,
		ExtendedMasterSecret:   resolveExtendedMasterSecret(d.Security.ExtendedMasterSecret),
		MTU:                    mtu,
		ReplayProtectionWindow: rpw,
		InsecureSkipVerify:     insecureSkipVerify,
	}, nil
}

func resolveClientAuth(s string) dtls.ClientAuthType {
	if v, ok := clientAuthMap[s]; ok {
		return v
	}
	return dtls.NoClientCert
}

func resolveCipherSuites(ids []string) ([]dtls.CipherSuiteID, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	out := make([]dtls.CipherSuiteID, 0, len(ids))
	for _, id := range ids {
		v, ok := cipherSuiteMap[id]
		if !ok {
			return nil, fmt.Errorf("dtls.security: unknown cipher_suite %q", id)
		}
		out = append(out, v)
	}
	return out, nil
}

func resolveExtendedMasterSecret(s string) dtls.ExtendedMasterSecretType {
	if v, ok := extendedMasterSecretMap[s]; ok {
		return v
	}
	return dtls.RequestExtendedMasterSecret
}
