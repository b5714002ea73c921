// internal/app/client/crypto/key.go
package crypto

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gophistory/internal/domain/record"

	"golang.org/x/crypto/argon2"
)

const (
	// Параметры Argon2id для ключа, защищённого паролем
	argon2Time    = 1
	argon2Memory  = 64 * 1024
	argon2Threads = 4
	saltLength    = 16

	keyFileVersion = 1
	keyPermissions = 0600

	AlgorithmRaw      = "raw"
	AlgorithmArgon2id = "argon2id-xchacha20poly1305"
)

var (
	ErrKeyNotFound     = errors.New("key file not found")
	ErrKeyExists       = errors.New("key file already exists")
	ErrKeyLocked       = errors.New("key is not loaded")
	ErrWrongPassphrase = errors.New("wrong passphrase")
	ErrPassphrase      = errors.New("key is protected by a passphrase")
)

var wrapAD = []byte("gophistory key")

// keyFile формат файла ключа на диске
type keyFile struct {
	Version   int       `json:"version"`
	Algorithm string    `json:"key_algorithm"`
	Salt      string    `json:"salt,omitempty"`
	Nonce     string    `json:"nonce,omitempty"`
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
}

// KeyManager загружает ключ из файла один раз и держит его только в памяти процесса
type KeyManager struct {
	key      *Key
	header   keyFile
	keyPath  string
	isLoaded bool
	mu       sync.RWMutex
}

// NewKeyManager создаёт менеджер ключа для указанного файла
func NewKeyManager(keyPath string) (*KeyManager, error) {
	absPath, err := filepath.Abs(keyPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка определения пути: %w", err)
	}

	return &KeyManager{keyPath: absPath}, nil
}

// Exists проверяет наличие файла ключа
func (m *KeyManager) Exists() bool {
	_, err := os.Stat(m.keyPath)
	return err == nil
}

// Path путь к файлу ключа
func (m *KeyManager) Path() string {
	return m.keyPath
}

// Generate создаёт новый ключ и сохраняет его. Пустой passphrase сохраняет ключ как есть.
func (m *KeyManager) Generate(passphrase string) error {
	raw, err := GenerateRandomBytes(KeySize)
	if err != nil {
		return err
	}
	defer clearMemory(raw)

	var key Key
	copy(key[:], raw)

	return m.store(&key, passphrase)
}

// Import сохраняет ключ, экспортированный на другом устройстве
func (m *KeyManager) Import(encoded, passphrase string) error {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return fmt.Errorf("decode key: %w", err)
	}
	defer clearMemory(raw)

	if len(raw) != KeySize {
		return fmt.Errorf("decode key: expected %d bytes, got %d", KeySize, len(raw))
	}

	var key Key
	copy(key[:], raw)

	return m.store(&key, passphrase)
}

// Load читает ключ с диска в память. passphrase нужен только для защищённого ключа.
func (m *KeyManager) Load(passphrase string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := os.ReadFile(m.keyPath)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrKeyNotFound
		}
		return fmt.Errorf("read key file: %w", err)
	}

	var header keyFile
	if err := json.Unmarshal(data, &header); err != nil {
		return fmt.Errorf("parse key file: %w", err)
	}

	key, err := unwrap(header, passphrase)
	if err != nil {
		return err
	}

	m.clearKey()
	m.key = key
	m.header = header
	m.isLoaded = true

	return nil
}

// LoadOrGenerate загружает ключ, создавая его при первом запуске
func (m *KeyManager) LoadOrGenerate(passphrase string) error {
	err := m.Load(passphrase)
	if !errors.Is(err, ErrKeyNotFound) {
		return err
	}

	if err := m.Generate(passphrase); err != nil {
		return err
	}

	return m.Load(passphrase)
}

// Key возвращает загруженный ключ
func (m *KeyManager) Key() (*Key, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if !m.isLoaded {
		return nil, ErrKeyLocked
	}

	return m.key, nil
}

// Export кодирует ключ для переноса на другое устройство
func (m *KeyManager) Export() (string, error) {
	key, err := m.Key()
	if err != nil {
		return "", err
	}

	return base64.StdEncoding.EncodeToString(key[:]), nil
}

// IsLoaded загружен ли ключ в память
func (m *KeyManager) IsLoaded() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.isLoaded
}

// IsProtected защищён ли ключ паролем
func (m *KeyManager) IsProtected() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.header.Algorithm == AlgorithmArgon2id
}

// Lock затирает ключ в памяти
func (m *KeyManager) Lock() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.clearKey()
	m.isLoaded = false
}

func (m *KeyManager) clearKey() {
	if m.key != nil {
		clearMemory(m.key[:])
		m.key = nil
	}
}

func (m *KeyManager) store(key *Key, passphrase string) error {
	header, err := wrap(key, passphrase)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(header, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key file: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.keyPath), 0700); err != nil {
		return fmt.Errorf("create key dir: %w", err)
	}

	tmp := m.keyPath + ".tmp"
	if err := os.WriteFile(tmp, data, keyPermissions); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}

	if err := os.Rename(tmp, m.keyPath); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}

	return nil
}

func deriveKey(passphrase string, salt []byte) *Key {
	var kek Key
	derived := argon2.IDKey([]byte(passphrase), salt, argon2Time, argon2Memory, argon2Threads, KeySize)
	copy(kek[:], derived)
	clearMemory(derived)
	return &kek
}

func wrap(key *Key, passphrase string) (keyFile, error) {
	header := keyFile{
		Version:   keyFileVersion,
		Algorithm: AlgorithmRaw,
		CreatedAt: time.Now().UTC(),
	}

	if passphrase == "" {
		header.Key = base64.StdEncoding.EncodeToString(key[:])
		return header, nil
	}

	salt, err := GenerateRandomBytes(saltLength)
	if err != nil {
		return header, err
	}

	kek := deriveKey(passphrase, salt)
	defer clearMemory(kek[:])

	sealed, err := Seal(kek, key[:], wrapAD)
	if err != nil {
		return header, err
	}

	header.Algorithm = AlgorithmArgon2id
	header.Salt = base64.StdEncoding.EncodeToString(salt)
	header.Nonce = base64.StdEncoding.EncodeToString(sealed.Nonce)
	header.Key = base64.StdEncoding.EncodeToString(sealed.Ciphertext)

	return header, nil
}

func unwrap(header keyFile, passphrase string) (*Key, error) {
	if header.Version != keyFileVersion {
		return nil, fmt.Errorf("unsupported key file version %d", header.Version)
	}

	raw, err := base64.StdEncoding.DecodeString(header.Key)
	if err != nil {
		return nil, fmt.Errorf("decode key: %w", err)
	}
	defer clearMemory(raw)

	switch header.Algorithm {
	case AlgorithmRaw:
	case AlgorithmArgon2id:
		if passphrase == "" {
			return nil, ErrPassphrase
		}

		salt, err := base64.StdEncoding.DecodeString(header.Salt)
		if err != nil {
			return nil, fmt.Errorf("decode salt: %w", err)
		}
		nonce, err := base64.StdEncoding.DecodeString(header.Nonce)
		if err != nil {
			return nil, fmt.Errorf("decode nonce: %w", err)
		}

		kek := deriveKey(passphrase, salt)
		defer clearMemory(kek[:])

		opened, err := Open(kek, record.EncryptedData{Ciphertext: raw, Nonce: nonce}, wrapAD)
		if err != nil {
			if errors.Is(err, ErrAuthenticationFailed) {
				return nil, ErrWrongPassphrase
			}
			return nil, err
		}
		defer clearMemory(opened)
		raw = append(raw[:0], opened...)
	default:
		return nil, fmt.Errorf("unsupported key algorithm %q", header.Algorithm)
	}

	if len(raw) != KeySize {
		return nil, fmt.Errorf("invalid key size %d", len(raw))
	}

	var key Key
	copy(key[:], raw)

	return &key, nil
}
