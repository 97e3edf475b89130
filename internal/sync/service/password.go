package service

import (
	"crypto/rand"
	"math/big"
)

const (
	passwordLower   = "abcdefghijklmnopqrstuvwxyz"
	passwordUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordDigits  = "0123456789"
	passwordSymbols = "!@#$%&*-_=+"
	passwordLength  = 24
)

// RandomPassword generates the throwaway credential sent with each
// remote registration. At least one character of every class is
// guaranteed so remote password policies cannot reject it.
func RandomPassword() string {
	alphabet := passwordLower + passwordUpper + passwordDigits + passwordSymbols
	buf := make([]byte, passwordLength)
	buf[0] = randomChar(passwordLower)
	buf[1] = randomChar(passwordUpper)
	buf[2] = randomChar(passwordDigits)
	buf[3] = randomChar(passwordSymbols)
	for i := 4; i < passwordLength; i++ {
		buf[i] = randomChar(alphabet)
	}
	shuffle(buf)
	return string(buf)
}

func randomChar(alphabet string) byte {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
	if err != nil {
		// crypto/rand only fails when the platform source is broken.
		panic(err)
	}
	return alphabet[n.Int64()]
}

func shuffle(buf []byte) {
	for i := len(buf) - 1; i > 0; i-- {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(i+1)))
		if err != nil {
			panic(err)
		}
		j := n.Int64()
		buf[i], buf[j] = buf[j], buf[i]
	}
}
