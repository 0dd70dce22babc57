package wallet

import (
	"regexp"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"

	"github.com/dkurguzov/betkeeper/internal/common"
	"github.com/dkurguzov/betkeeper/internal/keystore"
)

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

func newTestManager() *Manager {
	return NewManager(keystore.Params{ScryptN: 1 << 10})
}

func TestCreate_OpenRoundTrip(t *testing.T) {
	m := newTestManager()
	password := []byte("correct-horse-battery-staple")

	address, blob, err := m.Create(password)
	require.NoError(t, err)
	require.Regexp(t, addressRe, address)
	require.NotEmpty(t, blob)

	km, err := m.Open(blob, password, "")
	require.NoError(t, err)
	defer km.Destroy()

	require.Equal(t, address, km.Address)

	// the recovered key must derive the originally returned address
	derived := ethcrypto.PubkeyToAddress(km.PrivateKey().PublicKey).Hex()
	require.Equal(t, address, derived)
}

func TestOpen_WrongPassword(t *testing.T) {
	m := newTestManager()

	_, blob, err := m.Create([]byte("correct-horse-battery-staple"))
	require.NoError(t, err)

	_, err = m.Open(blob, []byte("wrong-password"), "")
	require.ErrorIs(t, err, common.ErrInvalidCredential)
}

func TestOpen_EmptyBlob(t *testing.T) {
	m := newTestManager()

	_, err := m.Open(nil, []byte("pw"), "")
	require.ErrorIs(t, err, common.ErrCorruptWallet)

	_, err = m.Open([]byte{}, []byte("pw"), "")
	require.ErrorIs(t, err, common.ErrCorruptWallet)
}

func TestOpen_AddressConsistencyCheck(t *testing.T) {
	m := newTestManager()
	password := []byte("pw")

	address, blob, err := m.Create(password)
	require.NoError(t, err)

	km, err := m.Open(blob, password, address)
	require.NoError(t, err)
	km.Destroy()

	// blob decrypts fine but belongs to a different account
	_, err = m.Open(blob, password, "0x00000000000000000000000000000000DeaDBeef")
	require.ErrorIs(t, err, common.ErrCorruptWallet)
}

func TestKeyMaterial_Destroy(t *testing.T) {
	m := newTestManager()

	_, blob, err := m.Create([]byte("pw"))
	require.NoError(t, err)

	km, err := m.Open(blob, []byte("pw"), "")
	require.NoError(t, err)

	km.Destroy()
	require.Nil(t, km.PrivateKey())
}

func TestCreate_DistinctWallets(t *testing.T) {
	m := newTestManager()

	a1, b1, err := m.Create([]byte("pw"))
	require.NoError(t, err)
	a2, b2, err := m.Create([]byte("pw"))
	require.NoError(t, err)

	require.NotEqual(t, a1, a2)
	require.NotEqual(t, b1, b2)
}
