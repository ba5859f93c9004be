package pki

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
)

// NewRequest builds a certificate signing request for the server identity. The
// request is self-signed with the leaf key purely to prove possession.
func (i *Issuer) NewRequest(kp *Keypair) (*x509.CertificateRequest, error) {
	template := &x509.CertificateRequest{
		Subject: pkix.Name{
			Country:      []string{Country},
			Organization: []string{i.Product},
			CommonName:   fmt.Sprintf("%s Server Certificate %d", i.Product, i.now().Unix()),
		},
		SignatureAlgorithm: x509.SHA256WithRSA,
	}

	der, err := x509.CreateCertificateRequest(i.random(), template, kp.Private)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestSign, err)
	}

	req, err := x509.ParseCertificateRequest(der)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse request: %v", ErrRequestSign, err)
	}

	if err := req.CheckSignature(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestSign, err)
	}

	return req, nil
}
