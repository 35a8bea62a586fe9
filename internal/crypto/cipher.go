package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

var (
	errInvalidPadding   = errors.New("invalid PKCS7 padding")
	errInvalidBlockSize = errors.New("ciphertext is not a multiple of the block size")
)

// EncryptionError wraps any failure while encrypting a credential.
type EncryptionError struct {
	Err error
}

func (e *EncryptionError) Error() string { return "encrypt credential: " + e.Err.Error() }
func (e *EncryptionError) Unwrap() error { return e.Err }

// DecryptionError wraps any failure while decrypting a credential.
type DecryptionError struct {
	Err error
}

func (e *DecryptionError) Error() string { return "decrypt credential: " + e.Err.Error() }
func (e *DecryptionError) Unwrap() error { return e.Err }

// Service is the credential protection contract used by the credential store.
type Service interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Cipher encrypts short secrets with AES in CBC mode under a fixed key and IV.
// The same plaintext always yields the same ciphertext.
type Cipher struct {
	block cipher.Block
	iv    []byte
}

var _ Service = (*Cipher)(nil)

// NewCipher accepts a 16, 24 or 32 byte key and a 16 byte IV.
func NewCipher(key, iv []byte) (*Cipher, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, &EncryptionError{Err: fmt.Errorf("create cipher: %w", err)}
	}
	if len(iv) != block.BlockSize() {
		return nil, &EncryptionError{Err: fmt.Errorf("iv must be %d bytes, got %d", block.BlockSize(), len(iv))}
	}

	return &Cipher{block: block, iv: bytes.Clone(iv)}, nil
}

func (c *Cipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	padded := pkcs7Pad([]byte(plaintext), c.block.BlockSize())
	out := make([]byte, len(padded))
	cipher.NewCBCEncrypter(c.block, c.iv).CryptBlocks(out, padded)

	return base64.StdEncoding.EncodeToString(out), nil
}

func (c *Cipher) Decrypt(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", nil
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", &DecryptionError{Err: fmt.Errorf("decode base64: %w", err)}
	}
	if len(raw) == 0 || len(raw)%c.block.BlockSize() != 0 {
		return "", &DecryptionError{Err: errInvalidBlockSize}
	}

	out := make([]byte, len(raw))
	cipher.NewCBCDecrypter(c.block, c.iv).CryptBlocks(out, raw)

	plain, err := pkcs7Unpad(out, c.block.BlockSize())
	if err != nil {
		return "", &DecryptionError{Err: err}
	}
	return string(plain), nil
}

func pkcs7Pad(data []byte, blockSize int) []byte {
	n := blockSize - len(data)%blockSize
	return append(data, bytes.Repeat([]byte{byte(n)}, n)...)
}

func pkcs7Unpad(data []byte, blockSize int) ([]byte, error) {
	if len(data) == 0 {
		return nil, errInvalidPadding
	}
	n := int(data[len(data)-1])
	if n == 0 || n > blockSize || n > len(data) {
		return nil, errInvalidPadding
	}
	for _, b := range data[len(data)-n:] {
		if int(b) != n {
			return nil, errInvalidPadding
		}
	}
	return data[:len(data)-n], nil
}
