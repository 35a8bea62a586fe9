package crypto

import (
	"bytes"
	"encoding/base64"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestCipher(t *testing.T) *Cipher {
	t.Helper()
	c, err := NewCipher([]byte("0123456789abcdef0123456789abcdef"), []byte("abcdef9876543210"))
	require.NoError(t, err)
	return c
}

func TestCipherRoundTrip(t *testing.T) {
	c := newTestCipher(t)

	inputs := []string{
		"a",
		"sk-abcdefghijklmnopqrstuvwxyz",
		"exactly16bytes!!",
		strings.Repeat("long key material ", 20),
		"密钥-ключ-🔑",
	}

	for _, in := range inputs {
		enc, err := c.Encrypt(in)
		require.NoError(t, err)
		assert.NotEqual(t, in, enc)

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		assert.Equal(t, in, dec)
	}
}

func TestCipherEmptyInput(t *testing.T) {
	c := newTestCipher(t)

	enc, err := c.Encrypt("")
	assert.NoError(t, err)
	assert.Equal(t, "", enc)

	dec, err := c.Decrypt("")
	assert.NoError(t, err)
	assert.Equal(t, "", dec)
}

func TestCipherIsDeterministic(t *testing.T) {
	c := newTestCipher(t)

	a, err := c.Encrypt("same-key-value")
	require.NoError(t, err)
	b, err := c.Encrypt("same-key-value")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestDecryptFailures(t *testing.T) {
	c := newTestCipher(t)

	// A block that decrypts to all zero bytes, which is never valid padding.
	zeroBlock := make([]byte, 16)
	c.block.Encrypt(zeroBlock, c.iv)
	badPadding := base64.StdEncoding.EncodeToString(zeroBlock)

	tests := []struct {
		name  string
		input string
	}{
		{name: "invalid base64", input: "not base64 !!"},
		{name: "short block", input: "YWJj"},
		{name: "bad padding", input: badPadding},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := c.Decrypt(tt.input)
			require.Error(t, err)

			var decErr *DecryptionError
			assert.True(t, errors.As(err, &decErr))
			assert.Contains(t, err.Error(), "decrypt credential")
		})
	}
}

func TestNewCipherRejectsBadMaterial(t *testing.T) {
	_, err := NewCipher([]byte("short"), bytes.Repeat([]byte{1}, 16))
	var encErr *EncryptionError
	assert.True(t, errors.As(err, &encErr))

	_, err = NewCipher(bytes.Repeat([]byte{1}, 16), []byte("tiny"))
	assert.True(t, errors.As(err, &encErr))
}

func TestPKCS7Unpad(t *testing.T) {
	_, err := pkcs7Unpad([]byte{1, 2, 3, 0}, 16)
	assert.ErrorIs(t, err, errInvalidPadding)

	_, err = pkcs7Unpad([]byte{1, 2, 2, 3}, 16)
	assert.ErrorIs(t, err, errInvalidPadding)

	out, err := pkcs7Unpad([]byte{'h', 'i', 2, 2}, 16)
	assert.NoError(t, err)
	assert.Equal(t, []byte("hi"), out)
}
