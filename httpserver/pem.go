package httpserver

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"go.step.sm/crypto/pemutil"
)

// loadIdentity reads a PEM certificate and key pair from disk, grounded
// on the teacher's tls.X509KeyPair usage for every identity it loads
// (backends, route services, the routing API client, NATS).
func loadIdentity(certPath, keyPath string) (tls.Certificate, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return tls.Certificate{}, err
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return tls.Certificate{}, err
	}
	return tls.X509KeyPair(certPEM, keyPEM)
}

// loadCAPool reads a PEM CA bundle from disk into a cert pool, grounded on
// the teacher's pemutil.ParseCertificateBundle usage for its client CA
// metadata rules.
func loadCAPool(caPath string) (*x509.CertPool, error) {
	raw, err := os.ReadFile(caPath)
	if err != nil {
		return nil, err
	}
	certs, err := pemutil.ParseCertificateBundle(raw)
	if err != nil {
		return nil, err
	}
	pool := x509.NewCertPool()
	for _, c := range certs {
		pool.AddCert(c)
	}
	return pool, nil
}
