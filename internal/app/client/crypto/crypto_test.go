package crypto

import (
	"os"
	"path/filepath"
	"testing"

	"gophistory/internal/domain/record"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func newKey(t require.TestingT) *Key {
	raw, err := GenerateRandomBytes(KeySize)
	require.NoError(t, err)

	var key Key
	copy(key[:], raw)
	return &key
}

func TestSealOpen_RoundTrip(t *testing.T) {
	key := newKey(t)

	rapid.Check(t, func(rt *rapid.T) {
		plaintext := rapid.SliceOfN(rapid.Byte(), 0, 512).Draw(rt, "plaintext")
		ad := rapid.SliceOfN(rapid.Byte(), 0, 32).Draw(rt, "ad")

		sealed, err := Seal(key, plaintext, ad)
		require.NoError(rt, err)
		require.Len(rt, sealed.Nonce, 24)

		opened, err := Open(key, sealed, ad)
		require.NoError(rt, err)
		assert.Equal(rt, len(plaintext), len(opened))
		assert.Equal(rt, string(plaintext), string(opened))
	})
}

func TestOpen_TamperedFails(t *testing.T) {
	key := newKey(t)

	rapid.Check(t, func(rt *rapid.T) {
		plaintext := rapid.SliceOfN(rapid.Byte(), 1, 256).Draw(rt, "plaintext")
		ad := []byte("host\x00history\x00v0")

		sealed, err := Seal(key, plaintext, ad)
		require.NoError(rt, err)

		target := rapid.SampledFrom([]string{"ciphertext", "nonce", "ad"}).Draw(rt, "target")
		bit := rapid.IntRange(0, 7).Draw(rt, "bit")

		tampered := record.EncryptedData{
			Ciphertext: append([]byte(nil), sealed.Ciphertext...),
			Nonce:      append([]byte(nil), sealed.Nonce...),
		}
		tamperedAD := append([]byte(nil), ad...)

		switch target {
		case "ciphertext":
			pos := rapid.IntRange(0, len(tampered.Ciphertext)-1).Draw(rt, "pos")
			tampered.Ciphertext[pos] ^= 1 << bit
		case "nonce":
			pos := rapid.IntRange(0, len(tampered.Nonce)-1).Draw(rt, "pos")
			tampered.Nonce[pos] ^= 1 << bit
		case "ad":
			pos := rapid.IntRange(0, len(tamperedAD)-1).Draw(rt, "pos")
			tamperedAD[pos] ^= 1 << bit
		}

		_, err = Open(key, tampered, tamperedAD)
		assert.ErrorIs(rt, err, ErrAuthenticationFailed)
	})
}

func TestOpen_WrongKey(t *testing.T) {
	sealed, err := Seal(newKey(t), []byte("ls -la"), nil)
	require.NoError(t, err)

	_, err = Open(newKey(t), sealed, nil)

	var cryptoErr *Error
	require.ErrorAs(t, err, &cryptoErr)
	assert.Equal(t, "open", cryptoErr.Op)
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestOpen_InvalidNonce(t *testing.T) {
	key := newKey(t)

	_, err := Open(key, record.EncryptedData{Ciphertext: []byte{1, 2, 3}, Nonce: []byte{1}}, nil)

	assert.ErrorIs(t, err, ErrInvalidNonce)
}

func TestSeal_FreshNonce(t *testing.T) {
	key := newKey(t)

	a, err := Seal(key, []byte("same"), nil)
	require.NoError(t, err)
	b, err := Seal(key, []byte("same"), nil)
	require.NoError(t, err)

	assert.NotEqual(t, a.Nonce, b.Nonce)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestKeyManager(t *testing.T) {
	tests := []struct {
		name       string
		passphrase string
		protected  bool
	}{
		{name: "raw key", passphrase: "", protected: false},
		{name: "passphrase protected key", passphrase: "correct horse", protected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Arrange
			path := filepath.Join(t.TempDir(), "key")
			mgr, err := NewKeyManager(path)
			require.NoError(t, err)
			assert.False(t, mgr.Exists())

			// Act
			require.NoError(t, mgr.LoadOrGenerate(tt.passphrase))

			// Assert
			assert.True(t, mgr.Exists())
			assert.True(t, mgr.IsLoaded())
			assert.Equal(t, tt.protected, mgr.IsProtected())

			info, err := os.Stat(path)
			require.NoError(t, err)
			assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

			key, err := mgr.Key()
			require.NoError(t, err)
			sealed, err := Seal(key, []byte("git status"), nil)
			require.NoError(t, err)

			// Повторная загрузка даёт тот же ключ
			other, err := NewKeyManager(path)
			require.NoError(t, err)
			require.NoError(t, other.Load(tt.passphrase))
			otherKey, err := other.Key()
			require.NoError(t, err)
			opened, err := Open(otherKey, sealed, nil)
			require.NoError(t, err)
			assert.Equal(t, "git status", string(opened))

			// Lock затирает ключ
			mgr.Lock()
			assert.False(t, mgr.IsLoaded())
			_, err = mgr.Key()
			assert.ErrorIs(t, err, ErrKeyLocked)
		})
	}
}

func TestKeyManager_WrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "key")
	mgr, err := NewKeyManager(path)
	require.NoError(t, err)
	require.NoError(t, mgr.Generate("secret"))

	assert.ErrorIs(t, mgr.Load("not the secret"), ErrWrongPassphrase)
	assert.ErrorIs(t, mgr.Load(""), ErrPassphrase)
	assert.False(t, mgr.IsLoaded())
}

func TestKeyManager_ExportImport(t *testing.T) {
	dir := t.TempDir()

	src, err := NewKeyManager(filepath.Join(dir, "a"))
	require.NoError(t, err)
	require.NoError(t, src.LoadOrGenerate(""))
	exported, err := src.Export()
	require.NoError(t, err)

	dst, err := NewKeyManager(filepath.Join(dir, "b"))
	require.NoError(t, err)
	require.NoError(t, dst.Import(exported, "pass"))
	require.NoError(t, dst.Load("pass"))

	reexported, err := dst.Export()
	require.NoError(t, err)
	assert.Equal(t, exported, reexported)

	assert.Error(t, dst.Import("bm90IGEga2V5", ""))
	assert.Error(t, dst.Import("%%%", ""))
}

func TestKeyManager_LoadMissing(t *testing.T) {
	mgr, err := NewKeyManager(filepath.Join(t.TempDir(), "missing"))
	require.NoError(t, err)

	assert.ErrorIs(t, mgr.Load(""), ErrKeyNotFound)
}

func TestRecordEncryptor(t *testing.T) {
	mgr, err := NewKeyManager(filepath.Join(t.TempDir(), "key"))
	require.NoError(t, err)
	enc := NewRecordEncryptor(mgr)

	_, err = enc.Seal([]byte("x"), nil)
	assert.ErrorIs(t, err, ErrKeyLocked)

	require.NoError(t, mgr.LoadOrGenerate(""))
	ad := record.AdditionalData("host", "history", "v0")

	sealed, err := enc.Seal([]byte("echo hi"), ad)
	require.NoError(t, err)

	opened, err := enc.Open(sealed, ad)
	require.NoError(t, err)
	assert.Equal(t, "echo hi", string(opened))

	_, err = enc.Open(sealed, record.AdditionalData("other", "history", "v0"))
	assert.ErrorIs(t, err, ErrAuthenticationFailed)
}
