package service

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
)

const (
	codeMin = 100000
	codeMax = 999999
)

// newVerificationCode возвращает шестизначный код из диапазона 100000–999999.
func newVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeMax-codeMin+1))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin), nil
}

// newWalletAddress возвращает адрес кошелька вида 0x + 40 hex-символов.
func newWalletAddress() (string, error) {
	s, err := randomHex(20)
	if err != nil {
		return "", fmt.Errorf("generate wallet address: %w", err)
	}
	return "0x" + s, nil
}

// newDownloadToken возвращает непрозрачный токен из 40 hex-символов.
func newDownloadToken() (string, error) {
	s, err := randomHex(20)
	if err != nil {
		return "", fmt.Errorf("generate download token: %w", err)
	}
	return s, nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
