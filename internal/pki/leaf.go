package pki

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
)

// leafKeyUsage is digitalSignature, keyEncipherment and dataEncipherment.
const leafKeyUsage = x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageDataEncipherment

// SignRequest issues a server certificate for req, signed by the CA behind signer.
// The subject and public key are copied from the request without further checks,
// requests are always generated locally by NewRequest.
func (i *Issuer) SignRequest(signer CASigner, req *x509.CertificateRequest, san string) (*x509.Certificate, error) {
	caCert, err := signer.GetCACertificate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLeafSign, err)
	}

	sans, err := ParseSANList(san)
	if err != nil {
		return nil, err
	}

	extensions, err := leafExtensions(sans)
	if err != nil {
		return nil, err
	}

	serial, err := randomSerial(i.random())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLeafSign, err)
	}

	now := i.now()
	template := &x509.Certificate{
		SerialNumber:          serial,
		RawSubject:            req.RawSubject,
		Subject:               req.Subject,
		Issuer:                caCert.Subject,
		PublicKey:             req.PublicKey,
		NotBefore:             now,
		NotAfter:              now.Add(days(LeafLifetimeDays)),
		KeyUsage:              leafKeyUsage,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  false,
		DNSNames:              sans.DNSNames(),
		IPAddresses:           sans.IPAddresses(),
		SignatureAlgorithm:    x509.SHA256WithRSA,
		ExtraExtensions:       extensions,
	}

	der, err := signer.SignCertificate(template)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLeafSign, err)
	}

	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse server certificate: %v", ErrLeafSign, err)
	}

	return cert, nil
}

// IssueLeaf creates a request for kp and has the CA sign it. The request never
// outlives this call.
func (i *Issuer) IssueLeaf(signer CASigner, kp *Keypair, san string) (*Pair, error) {
	req, err := i.NewRequest(kp)
	if err != nil {
		return nil, err
	}

	cert, err := i.SignRequest(signer, req, san)
	if err != nil {
		return nil, err
	}

	return &Pair{Key: kp, Cert: cert}, nil
}

func leafExtensions(sans SANList) ([]pkix.Extension, error) {
	bc, err := basicConstraintsExtension(false, false)
	if err != nil {
		return nil, err
	}
	ku, err := keyUsageExtension(leafKeyUsage, false)
	if err != nil {
		return nil, err
	}
	eku, err := extKeyUsageExtension(OIDExtKeyUsageServerAuth)
	if err != nil {
		return nil, err
	}
	sanExt, err := subjectAltNameExtension(sans)
	if err != nil {
		return nil, err
	}
	return []pkix.Extension{bc, ku, eku, sanExt}, nil
}
