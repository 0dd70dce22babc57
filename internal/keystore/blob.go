package keystore

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"

	"github.com/dkurguzov/betkeeper/internal/common"
	"golang.org/x/crypto/scrypt"
)

// scrypt parameters for the wallet-encryption key. Deliberately slow and
// memory-hard so a stolen blob cannot be brute-forced cheaply. N=2^15
// (~32 MB, tens of ms) keeps per-request decryption tolerable on the server;
// raise ScryptN for offline/cold wallets.
const (
	DefaultScryptN = 1 << 15
	scryptR        = 8
	scryptP        = 1
	scryptKeyLen   = 32

	blobSaltLen  = 32
	gcmNonceLen  = 12
	gcmTagLen    = 16
	blobKDFName  = "scrypt"
	blobVersion  = 1
)

// Blob is the serialized encrypted-at-rest envelope for a private key:
// KDF parameters, salt, nonce, and AES-256-GCM ciphertext. The salt is
// generated fresh per encryption and is independent of the login salt.
type Blob struct {
	Version    int    `json:"version"`
	KDF        string `json:"kdf"`
	N          int    `json:"n"`
	R          int    `json:"r"`
	P          int    `json:"p"`
	Salt       string `json:"salt"`
	Nonce      string `json:"nonce"`
	CipherText string `json:"cipherText"`
}

// Params tunes the work factor of the wallet KDF. The zero value selects
// the package defaults.
type Params struct {
	ScryptN int
}

func (p Params) n() int {
	if p.ScryptN == 0 {
		return DefaultScryptN
	}
	return p.ScryptN
}

// EncryptKey derives an encryption key from the password with a fresh salt
// and seals the private key with AES-256-GCM. The returned bytes are the
// JSON-serialized Blob.
func EncryptKey(privateKey, password []byte, params Params) ([]byte, error) {
	salt := make([]byte, blobSaltLen)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	nonce := make([]byte, gcmNonceLen)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	key, err := scrypt.Key(password, salt, params.n(), scryptR, scryptP, scryptKeyLen)
	if err != nil {
		return nil, fmt.Errorf("failed to derive key: %w", err)
	}
	defer clear(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}

	ciphertext := aesgcm.Seal(nil, nonce, privateKey, nil)

	blob := Blob{
		Version:    blobVersion,
		KDF:        blobKDFName,
		N:          params.n(),
		R:          scryptR,
		P:          scryptP,
		Salt:       base64.StdEncoding.EncodeToString(salt),
		Nonce:      base64.StdEncoding.EncodeToString(nonce),
		CipherText: base64.StdEncoding.EncodeToString(ciphertext),
	}

	out, err := json.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal blob: %w", err)
	}
	return out, nil
}

// DecryptKey opens a Blob produced by EncryptKey. Every failure mode — bad
// JSON, bad base64, unknown KDF, GCM authentication failure — surfaces as
// the single opaque common.ErrInvalidCredential, so a caller (or attacker)
// cannot tell a wrong password from a corrupted blob.
//
// The caller owns the returned key bytes and must wipe them after use.
func DecryptKey(blobBytes, password []byte) ([]byte, error) {
	var blob Blob
	if err := json.Unmarshal(blobBytes, &blob); err != nil {
		return nil, common.ErrInvalidCredential
	}
	if blob.KDF != blobKDFName {
		return nil, common.ErrInvalidCredential
	}

	salt, err := base64.StdEncoding.DecodeString(blob.Salt)
	if err != nil {
		return nil, common.ErrInvalidCredential
	}
	nonce, err := base64.StdEncoding.DecodeString(blob.Nonce)
	if err != nil {
		return nil, common.ErrInvalidCredential
	}
	ciphertext, err := base64.StdEncoding.DecodeString(blob.CipherText)
	if err != nil {
		return nil, common.ErrInvalidCredential
	}

	// GCM panics on a nonce of the wrong length, so the sizes are checked
	// before the KDF runs. An undersized ciphertext cannot carry the tag.
	if len(salt) != blobSaltLen || len(nonce) != gcmNonceLen || len(ciphertext) < gcmTagLen {
		return nil, common.ErrInvalidCredential
	}

	key, err := scrypt.Key(password, salt, blob.N, blob.R, blob.P, scryptKeyLen)
	if err != nil {
		return nil, common.ErrInvalidCredential
	}
	defer clear(key)

	aesgcm, err := newGCM(key)
	if err != nil {
		return nil, common.ErrInvalidCredential
	}

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, common.ErrInvalidCredential
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return aesgcm, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, b); err != nil {
		return nil, err
	}
	return b, nil
}
