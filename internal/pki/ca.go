package pki

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
)

// IssueCA builds a version 3 root certificate for kp and self-signs it with SHA-256.
// Subject and issuer are identical; the certificate is valid for CALifetimeDays.
func (i *Issuer) IssueCA(kp *Keypair) (*Pair, error) {
	serial, err := randomSerial(i.random())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCASign, err)
	}

	bc, err := basicConstraintsExtension(true, true)
	if err != nil {
		return nil, err
	}
	ku, err := keyUsageExtension(x509.KeyUsageCertSign|x509.KeyUsageCRLSign, true)
	if err != nil {
		return nil, err
	}

	now := i.now()
	subject := pkix.Name{
		Country:      []string{Country},
		Organization: []string{i.Product},
		CommonName:   fmt.Sprintf("%s CA %d", i.Product, now.Unix()),
	}

	template := &x509.Certificate{
		SerialNumber:          serial,
		Subject:               subject,
		Issuer:                subject,
		NotBefore:             now,
		NotAfter:              now.Add(days(CALifetimeDays)),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SignatureAlgorithm:    x509.SHA256WithRSA,
		ExtraExtensions:       []pkix.Extension{bc, ku},
	}

	// Self-sign the CA certificate
	der, err := x509.CreateCertificate(i.random(), template, template, kp.Public(), kp.Private)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCASign, err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse CA certificate: %v", ErrCASign, err)
	}

	return &Pair{Key: kp, Cert: cert}, nil
}
