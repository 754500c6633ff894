package utils

import (
	"crypto/rand"
	"encoding/hex"
	"math/big"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// RandomHex returns n random bytes hex encoded.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

// RandomBase36 returns n uniformly chosen characters from 0-9A-Z.
func RandomBase36(n int) (string, error) {
	out := make([]byte, n)
	max := big.NewInt(int64(len(base36)))
	for i := range out {
		v, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = base36[v.Int64()]
	}
	return string(out), nil
}

// RandomPassword returns a throwaway password for accounts created on
// a customer's behalf.  The customer sets a real one through a reset.
func RandomPassword() (string, error) {
	return RandomHex(24)
}
