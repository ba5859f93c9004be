package pki

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
)

// ASN.1 context-specific tags for GeneralName choices.
const (
	generalNameDNS = 2
	generalNameIP  = 7
)

type basicConstraints struct {
	IsCA bool `asn1:"optional"`
}

// basicConstraintsExtension encodes basicConstraints. cA=FALSE is the DER default and
// is therefore omitted, leaving an empty SEQUENCE.
func basicConstraintsExtension(isCA, critical bool) (pkix.Extension, error) {
	value, err := asn1.Marshal(basicConstraints{IsCA: isCA})
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("%w: basicConstraints: %v", ErrExtensionBuild, err)
	}
	return pkix.Extension{Id: OIDExtensionBasicConstraints, Critical: critical, Value: value}, nil
}

// keyUsageExtension encodes keyUsage as a named BIT STRING with trailing zero bits removed.
func keyUsageExtension(usage x509.KeyUsage, critical bool) (pkix.Extension, error) {
	if usage == 0 {
		return pkix.Extension{}, fmt.Errorf("%w: keyUsage: no usage bits set", ErrExtensionBuild)
	}

	var bits [2]byte
	bitLength := 0
	for i := 0; i < 9; i++ {
		if usage&(1<<i) != 0 {
			bits[i/8] |= 0x80 >> (i % 8)
			bitLength = i + 1
		}
	}

	value, err := asn1.Marshal(asn1.BitString{
		Bytes:     bits[:(bitLength+7)/8],
		BitLength: bitLength,
	})
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("%w: keyUsage: %v", ErrExtensionBuild, err)
	}
	return pkix.Extension{Id: OIDExtensionKeyUsage, Critical: critical, Value: value}, nil
}

func extKeyUsageExtension(purposes ...asn1.ObjectIdentifier) (pkix.Extension, error) {
	value, err := asn1.Marshal(purposes)
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("%w: extKeyUsage: %v", ErrExtensionBuild, err)
	}
	return pkix.Extension{Id: OIDExtensionExtKeyUsage, Value: value}, nil
}

func subjectAltNameExtension(sans SANList) (pkix.Extension, error) {
	if len(sans) == 0 {
		return pkix.Extension{}, fmt.Errorf("%w: subjectAltName: empty name list", ErrExtensionBuild)
	}

	names := make([]asn1.RawValue, 0, len(sans))
	for _, entry := range sans {
		switch entry.Type {
		case SANTypeDNS:
			names = append(names, asn1.RawValue{
				Class: asn1.ClassContextSpecific,
				Tag:   generalNameDNS,
				Bytes: []byte(entry.Value),
			})
		case SANTypeIP:
			ip := entry.IP()
			if ip == nil {
				return pkix.Extension{}, fmt.Errorf("%w: subjectAltName: invalid IP %q", ErrExtensionBuild, entry.Value)
			}
			names = append(names, asn1.RawValue{
				Class: asn1.ClassContextSpecific,
				Tag:   generalNameIP,
				Bytes: ip,
			})
		default:
			return pkix.Extension{}, fmt.Errorf("%w: subjectAltName: unsupported type %q", ErrExtensionBuild, entry.Type)
		}
	}

	value, err := asn1.Marshal(names)
	if err != nil {
		return pkix.Extension{}, fmt.Errorf("%w: subjectAltName: %v", ErrExtensionBuild, err)
	}
	return pkix.Extension{Id: OIDExtensionSubjectAltName, Value: value}, nil
}
