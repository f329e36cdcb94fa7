package httpserver

import (
	"crypto/tls"
	"net"

	"github.com/armon/go-proxyproto"
	tlsconfig "code.cloudfoundry.org/tlsconfig"
)

// TLSOptions configures ListenTLS. CertPath/KeyPath are loaded with
// tls.X509KeyPair and CAPath with go.step.sm/crypto/pemutil (see pem.go)
// before being handed to tlsconfig.Build, matching how the teacher
// constructs its server-identity TLS config.
type TLSOptions struct {
	CertPath string
	KeyPath  string
	CAPath   string

	// ClientAuth requests and verifies a client certificate when true.
	ClientAuth bool
}

// BuildServerTLSConfig constructs a *tls.Config from opts using
// tlsconfig's identity/authority builders, the same construction style
// the teacher uses for its internal service TLS.
func BuildServerTLSConfig(opts TLSOptions) (*tls.Config, error) {
	identity, err := loadIdentity(opts.CertPath, opts.KeyPath)
	if err != nil {
		return nil, err
	}

	builderOpts := []tlsconfig.TLSOption{
		tlsconfig.WithInternalServiceDefaults(),
		tlsconfig.WithIdentity(identity),
	}

	builder := tlsconfig.Build(builderOpts...)

	if opts.CAPath != "" && opts.ClientAuth {
		pool, err := loadCAPool(opts.CAPath)
		if err != nil {
			return nil, err
		}
		return builder.Server(tlsconfig.WithClientAuthentication(pool))
	}

	return builder.Server()
}

// ListenTLS wraps a raw TCP listener with TLS using the config built from
// opts, optionally wrapping it with the PROXY protocol first (same order
// the teacher applies the two: PROXY header, then TLS handshake).
func ListenTLS(addr string, opts TLSOptions, enablePROXY bool) (net.Listener, error) {
	raw, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, err
	}

	tlsConfig, err := BuildServerTLSConfig(opts)
	if err != nil {
		raw.Close()
		return nil, err
	}

	var ln net.Listener = raw
	if enablePROXY {
		ln = &proxyproto.Listener{
			Listener:           raw,
			ProxyHeaderTimeout: proxyProtocolHeaderTimeout,
		}
	}
	return tls.NewListener(ln, tlsConfig), nil
}
