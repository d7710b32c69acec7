package util

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"io"
	"strings"
)

const b64Prefix = "b64:"

// Decode는 "b64:" 접두어가 붙은 값을 제자리에서 base64 복호화한다.
// 접두어가 없으면 그대로 둔다.
func Decode(s *string) error {
	if s == nil || !strings.HasPrefix(*s, b64Prefix) {
		return nil
	}
	d, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(*s, b64Prefix))
	if err != nil {
		return err
	}
	*s = string(d)
	return nil
}

// AES 복호화 함수
func Decrypt(key []byte, cryptoText string) (string, error) {
	ciphertext, err := hex.DecodeString(cryptoText)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	if len(ciphertext) < aes.BlockSize {
		return "", errors.New("ciphertext too short")
	}

	iv := ciphertext[:aes.BlockSize]
	ciphertext = ciphertext[aes.BlockSize:]

	stream := cipher.NewCFBDecrypter(block, iv)
	stream.XORKeyStream(ciphertext, ciphertext)

	return string(ciphertext), nil
}

// Encrypt function corresponding to decrypt
func Encrypt(key []byte, plaintext string) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	// Generate a random IV (Initialization Vector)
	ciphertext := make([]byte, aes.BlockSize+len(plaintext))
	iv := ciphertext[:aes.BlockSize]
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	// Encrypt using CFB mode
	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], []byte(plaintext))

	// Convert to hex string
	return hex.EncodeToString(ciphertext), nil
}
