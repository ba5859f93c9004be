package pki

import (
	"fmt"
	"io"
	"math/big"
)

// serialLength is the number of random bytes in a certificate serial.
const serialLength = 20

// randomSerial returns a 20 byte random serial with the sign bit cleared so the
// DER INTEGER is always positive.
func randomSerial(random io.Reader) (*big.Int, error) {
	buf := make([]byte, serialLength)
	if _, err := io.ReadFull(random, buf); err != nil {
		return nil, fmt.Errorf("failed to read random serial: %w", err)
	}

	buf[0] &= 0x7f

	return new(big.Int).SetBytes(buf), nil
}
