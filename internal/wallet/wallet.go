// Package wallet orchestrates custodial keypair creation and reconstruction,
// bridging the stored credential record and the keystore encryption layer.
package wallet

import (
	"crypto/ecdsa"
	"fmt"

	gethcommon "github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/dkurguzov/betkeeper/internal/common"
	"github.com/dkurguzov/betkeeper/internal/keystore"
)

// KeyMaterial is a decrypted private key plus its derived address. It exists
// only for the duration of one signing operation; callers must defer Destroy
// and never persist or log it.
type KeyMaterial struct {
	Address string
	priv    *ecdsa.PrivateKey
}

// PrivateKey returns the signing key. Valid only until Destroy is called.
func (k *KeyMaterial) PrivateKey() *ecdsa.PrivateKey {
	return k.priv
}

// Destroy zeroes the private scalar. The KeyMaterial must not be used after.
func (k *KeyMaterial) Destroy() {
	if k.priv != nil && k.priv.D != nil {
		k.priv.D.SetInt64(0)
	}
	k.priv = nil
}

// Manager creates and opens custodial wallets. Construct once at process
// start and inject into services.
type Manager struct {
	params keystore.Params
}

func NewManager(params keystore.Params) *Manager {
	return &Manager{params: params}
}

// Create generates a fresh secp256k1 keypair from the system entropy source,
// encrypts the private key under the password, and returns the public
// address together with the encrypted blob for the caller to persist. The
// plaintext key is wiped before returning.
func (m *Manager) Create(password []byte) (address string, blob []byte, err error) {
	priv, err := ethcrypto.GenerateKey()
	if err != nil {
		return "", nil, fmt.Errorf("failed to generate keypair: %w", err)
	}

	raw := ethcrypto.FromECDSA(priv)
	defer clear(raw)
	defer priv.D.SetInt64(0)

	address = ethcrypto.PubkeyToAddress(priv.PublicKey).Hex()

	blob, err = keystore.EncryptKey(raw, password, m.params)
	if err != nil {
		return "", nil, fmt.Errorf("failed to encrypt private key: %w", err)
	}

	return address, blob, nil
}

// Open decrypts the blob and reconstructs signing-capable key material.
//
// An absent or empty blob is reported as common.ErrCorruptWallet before any
// password work. Every other failure, wrong password included, is the opaque
// common.ErrInvalidCredential from the keystore layer.
//
// When expectedAddress is non-empty, Open additionally checks that the
// decrypted key derives that address, catching a blob/record mismatch.
func (m *Manager) Open(blob, password []byte, expectedAddress string) (*KeyMaterial, error) {
	if len(blob) == 0 {
		return nil, common.ErrCorruptWallet
	}

	raw, err := keystore.DecryptKey(blob, password)
	if err != nil {
		return nil, err
	}
	defer clear(raw)

	priv, err := ethcrypto.ToECDSA(raw)
	if err != nil {
		return nil, common.ErrInvalidCredential
	}

	derived := ethcrypto.PubkeyToAddress(priv.PublicKey)
	if expectedAddress != "" && derived != gethcommon.HexToAddress(expectedAddress) {
		priv.D.SetInt64(0)
		return nil, common.ErrCorruptWallet
	}

	return &KeyMaterial{Address: derived.Hex(), priv: priv}, nil
}
