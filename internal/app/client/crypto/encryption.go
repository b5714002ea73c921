// internal/app/client/crypto/encryption.go
package crypto

import (
	"fmt"

	"gophistory/internal/domain/record"
)

// RecordEncryptor шифрует содержимое записей ключом из KeyManager
type RecordEncryptor struct {
	keys *KeyManager
}

// NewRecordEncryptor создаёт новый шифровальщик записей
func NewRecordEncryptor(keys *KeyManager) *RecordEncryptor {
	return &RecordEncryptor{
		keys: keys,
	}
}

// Seal шифрует данные записи
func (e *RecordEncryptor) Seal(plaintext, ad []byte) (record.EncryptedData, error) {
	key, err := e.key()
	if err != nil {
		return record.EncryptedData{}, err
	}

	return Seal(key, plaintext, ad)
}

// Open расшифровывает данные записи
func (e *RecordEncryptor) Open(data record.EncryptedData, ad []byte) ([]byte, error) {
	key, err := e.key()
	if err != nil {
		return nil, err
	}

	return Open(key, data, ad)
}

func (e *RecordEncryptor) key() (*Key, error) {
	if e.keys == nil {
		return nil, fmt.Errorf("ключ не инициализирован")
	}

	return e.keys.Key()
}
