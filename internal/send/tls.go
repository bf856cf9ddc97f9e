package send

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"

	"go.followtheprocess.codes/snip/internal/model"
	"golang.org/x/crypto/pkcs12"
)

// tlsConfig builds the TLS configuration for sending options to host, proxy is the
// resolved proxy whose trusted CAs are also needed to reach it.
func (c *Client) tlsConfig(options model.RequestOptions, proxy resolvedProxy, host string) (*tls.Config, error) {
	config := &tls.Config{MinVersion: tls.VersionTLS12}

	cas := options.TrustAdditionalCAs
	if proxy.setting != nil {
		cas = append(cas[:len(cas):len(cas)], proxy.setting.TrustedCAs...)
	}

	if len(cas) != 0 {
		roots, err := x509.SystemCertPool()
		if err != nil {
			c.logger.Debug("System cert pool unavailable, using an empty one", slog.String("error", err.Error()))

			roots = x509.NewCertPool()
		}

		for i, ca := range cas {
			if !roots.AppendCertsFromPEM([]byte(ca.Cert)) {
				return nil, fmt.Errorf("additional CA %d is not a valid PEM certificate", i)
			}
		}

		config.RootCAs = roots
	}

	if options.ClientCertificate != nil {
		cert, err := clientCertificate(*options.ClientCertificate)
		if err != nil {
			return nil, err
		}

		config.Certificates = []tls.Certificate{cert}
	}

	if policy := options.IgnoreHostHTTPSErrors; !policy.IsZero() {
		c.logger.Debug("Ignoring HTTPS errors", slog.Bool("all", policy.All), slog.Any("hosts", policy.Hosts))

		// Standard verification is switched off and redone here for every
		// host the policy doesn't cover
		config.InsecureSkipVerify = true
		config.VerifyConnection = func(state tls.ConnectionState) error {
			// No SNI is sent for IP addresses
			name := state.ServerName
			if name == "" {
				name = host
			}

			if policy.Ignores(name) {
				return nil
			}

			return verify(state, name, config.RootCAs)
		}
	}

	return config, nil
}

// verify performs the standard verification of the peer's certificate chain.
func verify(state tls.ConnectionState, name string, roots *x509.CertPool) error {
	if len(state.PeerCertificates) == 0 {
		return errors.New("server presented no certificates")
	}

	intermediates := x509.NewCertPool()
	for _, cert := range state.PeerCertificates[1:] {
		intermediates.AddCert(cert)
	}

	_, err := state.PeerCertificates[0].Verify(x509.VerifyOptions{
		DNSName:       name,
		Roots:         roots,
		Intermediates: intermediates,
	})

	return err
}

// clientCertificate decodes a PKCS#12 client certificate.
func clientCertificate(cert model.ClientCertificate) (tls.Certificate, error) {
	key, leaf, err := pkcs12.Decode(cert.PFX, cert.Passphrase)
	if err != nil {
		return tls.Certificate{}, fmt.Errorf("could not decode client certificate: %w", err)
	}

	return tls.Certificate{
		Certificate: [][]byte{leaf.Raw},
		PrivateKey:  key,
		Leaf:        leaf,
	}, nil
}
