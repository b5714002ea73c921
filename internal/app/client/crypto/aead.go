// internal/app/client/crypto/aead.go
package crypto

import (
	"errors"
	"fmt"

	"gophistory/internal/domain/record"

	"golang.org/x/crypto/chacha20poly1305"
)

// KeySize размер ключа XChaCha20-Poly1305
const KeySize = chacha20poly1305.KeySize

var (
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrInvalidNonce         = errors.New("invalid nonce size")
)

// Key симметричный ключ аккаунта, на relay никогда не передаётся
type Key [KeySize]byte

// Error ошибка шифрования, относится к одной записи
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("crypto: %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Seal шифрует plaintext со свежим случайным 24-байтовым nonce.
// ad аутентифицируется, но не шифруется.
func Seal(key *Key, plaintext, ad []byte) (record.EncryptedData, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return record.EncryptedData{}, &Error{Op: "seal", Err: err}
	}

	nonce, err := GenerateRandomBytes(aead.NonceSize())
	if err != nil {
		return record.EncryptedData{}, &Error{Op: "seal", Err: err}
	}

	return record.EncryptedData{
		Ciphertext: aead.Seal(nil, nonce, plaintext, ad),
		Nonce:      nonce,
	}, nil
}

// Open расшифровывает данные. Изменённый шифртекст, nonce, ad или чужой ключ
// дают ErrAuthenticationFailed.
func Open(key *Key, data record.EncryptedData, ad []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(key[:])
	if err != nil {
		return nil, &Error{Op: "open", Err: err}
	}

	if len(data.Nonce) != aead.NonceSize() {
		return nil, &Error{Op: "open", Err: ErrInvalidNonce}
	}

	plaintext, err := aead.Open(nil, data.Nonce, data.Ciphertext, ad)
	if err != nil {
		return nil, &Error{Op: "open", Err: ErrAuthenticationFailed}
	}

	return plaintext, nil
}
