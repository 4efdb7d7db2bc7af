package wallet

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrz1836/sigilid/internal/wallet/addrcodec"
	sigilerr "github.com/mrz1836/sigilid/pkg/errors"
)

func newTestWallet(t *testing.T) *Wallet {
	t.Helper()
	w, err := New([]byte(testPhrase24), "blob")
	require.NoError(t, err)
	t.Cleanup(w.Wipe)
	return w
}

func TestDeriveAccount_Deterministic(t *testing.T) {
	t.Parallel()
	for _, index := range []uint32{0, 1, 7} {
		a, err := DeriveAccount([]byte(testPhrase24), index)
		require.NoError(t, err)
		b, err := DeriveAccount([]byte(testPhrase24), index)
		require.NoError(t, err)

		assert.Equal(t, a.StxPrivateKey.Serialize(), b.StxPrivateKey.Serialize())
		assert.Equal(t, a.DataPrivateKey.Serialize(), b.DataPrivateKey.Serialize())
		assert.Equal(t, a.Info(), b.Info())
		assert.Equal(t, index, a.Index)
	}
}

func TestDeriveAccount_DistinctIndices(t *testing.T) {
	t.Parallel()
	a, err := DeriveAccount([]byte(testPhrase24), 0)
	require.NoError(t, err)
	b, err := DeriveAccount([]byte(testPhrase24), 1)
	require.NoError(t, err)

	assert.NotEqual(t, a.Info().MainnetAddress, b.Info().MainnetAddress)
	assert.NotEqual(t, a.DataPublicKeyHex(), b.DataPublicKeyHex())
	assert.Equal(t, a.Salt, b.Salt)
}

func TestDeriveAccount_DependsOnSecret(t *testing.T) {
	t.Parallel()
	a, err := DeriveAccount([]byte(testPhrase24), 0)
	require.NoError(t, err)
	b, err := DeriveAccount([]byte(testPhrase12), 0)
	require.NoError(t, err)

	assert.NotEqual(t, a.Info().MainnetAddress, b.Info().MainnetAddress)
}

func TestDeriveAccount_InvalidSecret(t *testing.T) {
	t.Parallel()
	_, err := DeriveAccount([]byte("not a phrase"), 0)
	require.ErrorIs(t, err, sigilerr.ErrInvalidMnemonic)
}

func TestDeriveAccount_IndexOutOfRange(t *testing.T) {
	t.Parallel()
	_, err := DeriveAccount([]byte(testPhrase24), MaxAccounts+1)
	require.ErrorIs(t, err, ErrIndexOutOfRange)
}

func TestAccountInfo_Addresses(t *testing.T) {
	t.Parallel()
	a, err := DeriveAccount([]byte(testPhrase24), 0)
	require.NoError(t, err)
	info := a.Info()

	assert.True(t, strings.HasPrefix(info.MainnetAddress, "SP"), info.MainnetAddress)
	assert.True(t, strings.HasPrefix(info.TestnetAddress, "ST"), info.TestnetAddress)
	assert.True(t, strings.HasPrefix(info.IdentityAddress, "1"), info.IdentityAddress)
	assert.Len(t, info.DataPublicKey, 66)

	assert.Equal(t, info.MainnetAddress, info.Address(addrcodec.VersionMainnetSingleSig))
	assert.Equal(t, info.TestnetAddress, info.Address(addrcodec.VersionTestnetSingleSig))

	version, hash, err := addrcodec.ParseC32Address(info.TestnetAddress)
	require.NoError(t, err)
	assert.Equal(t, addrcodec.VersionTestnetSingleSig, version)
	assert.Equal(t, addrcodec.Hash160(a.StxPrivateKey.PubKey().SerializeCompressed()), hash)
}

func TestDisplayName(t *testing.T) {
	t.Parallel()
	tests := []struct {
		index    uint32
		username string
		expected string
	}{
		{0, "", "Account 1"},
		{4, "", "Account 5"},
		{0, "alice.id", "alice"},
		{2, "bob.id.stx", "bob"},
		{1, "carol", "carol"},
		{3, ".id", "Account 4"},
	}
	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d-%s", tc.index, tc.username), func(t *testing.T) {
			assert.Equal(t, tc.expected, DisplayName(tc.index, tc.username))
		})
	}
}

func TestParsePath(t *testing.T) {
	t.Parallel()
	indices, err := ParsePath("m/44'/5757'/0'/0/3")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0x8000002c, 0x8000167d, 0x80000000, 0, 3}, indices)

	indices, err = ParsePath("m/44/5757h")
	require.NoError(t, err)
	assert.Equal(t, []uint32{44, 0x8000167d}, indices)

	for _, bad := range []string{"", "44'/0", "m/x", "m/2147483648", "m/-1"} {
		_, err := ParsePath(bad)
		require.ErrorIs(t, err, ErrInvalidPath, bad)
	}
}

func TestNew_StartsWithAccountZero(t *testing.T) {
	t.Parallel()
	w := newTestWallet(t)

	require.Equal(t, 1, w.Len())
	assert.Equal(t, uint32(0), w.Accounts[0].Index)
	assert.Equal(t, "blob", w.EncryptedSecretKey)
	assert.NotEmpty(t, w.Salt)
	assert.NotNil(t, w.ConfigPrivateKey)

	derived, err := DeriveAccount([]byte(testPhrase24), 0)
	require.NoError(t, err)
	assert.Equal(t, derived.Info(), w.Accounts[0].Info())

	configKey, err := DeriveConfigKey([]byte(testPhrase24))
	require.NoError(t, err)
	assert.Equal(t, configKey.Serialize(), w.ConfigPrivateKey.Serialize())
}

func TestNew_InvalidSecret(t *testing.T) {
	t.Parallel()
	_, err := New([]byte("abandon"), "")
	require.ErrorIs(t, err, sigilerr.ErrInvalidMnemonic)
}

func TestWallet_NewAccountAppends(t *testing.T) {
	t.Parallel()
	w := newTestWallet(t)

	for n := 1; n < 4; n++ {
		a, err := w.NewAccount()
		require.NoError(t, err)
		assert.Equal(t, uint32(n), a.Index)
		assert.Equal(t, n+1, w.Len())
	}
}

func TestWallet_RestoreAccounts(t *testing.T) {
	t.Parallel()
	w := newTestWallet(t)

	require.NoError(t, w.RestoreAccounts(3))
	assert.Equal(t, 3, w.Len())

	require.NoError(t, w.RestoreAccounts(2))
	assert.Equal(t, 3, w.Len(), "restore never removes accounts")

	other := newTestWallet(t)
	require.NoError(t, other.RestoreAccounts(3))
	assert.Equal(t, w.Infos(), other.Infos())
}

func TestWallet_AccountNotFound(t *testing.T) {
	t.Parallel()
	w := newTestWallet(t)

	_, err := w.Account(w.Len())
	require.ErrorIs(t, err, sigilerr.ErrAccountNotFound)
	_, err = w.Account(-1)
	require.ErrorIs(t, err, sigilerr.ErrAccountNotFound)

	require.ErrorIs(t, w.SetUsername(5, "x.id"), sigilerr.ErrAccountNotFound)
}

func TestWallet_SetUsername(t *testing.T) {
	t.Parallel()
	w := newTestWallet(t)

	require.NoError(t, w.SetUsername(0, "alice.id"))
	assert.Equal(t, "alice", w.Infos()[0].DisplayName)
}

func TestWallet_CloneIsIndependent(t *testing.T) {
	t.Parallel()
	w := newTestWallet(t)
	clone := w.Clone()

	assert.False(t, clone.CanDerive())
	_, err := clone.NewAccount()
	require.ErrorIs(t, err, sigilerr.ErrNotAuthenticated)

	before := w.Infos()
	clone.Accounts[0].Username = "changed.id"
	clone.Wipe()

	assert.Equal(t, before, w.Infos())
	assert.False(t, w.Accounts[0].StxPrivateKey.Key.IsZero())
}

func TestWallet_WipeZeroesKeys(t *testing.T) {
	t.Parallel()
	w, err := New([]byte(testPhrase24), "")
	require.NoError(t, err)
	account := w.Accounts[0]

	w.Wipe()

	assert.False(t, w.CanDerive())
	assert.True(t, account.StxPrivateKey.Key.IsZero())
	assert.True(t, account.DataPrivateKey.Key.IsZero())
	assert.True(t, w.ConfigPrivateKey.Key.IsZero())

	_, err = w.NewAccount()
	require.ErrorIs(t, err, sigilerr.ErrNotAuthenticated)
}
