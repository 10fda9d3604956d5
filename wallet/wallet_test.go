package wallet

import (
	"encoding/hex"
	"encoding/json"
	"strings"
	"testing"

	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uratmangun/ai-custodial-wallet/config"
	"github.com/uratmangun/ai-custodial-wallet/docstore"
	"github.com/uratmangun/ai-custodial-wallet/envelope"
	"github.com/uratmangun/ai-custodial-wallet/store"
)

const testSecret = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

// Well-known test vector: private key 1 is the generator point.
const (
	keyOne     = "0x0000000000000000000000000000000000000000000000000000000000000001"
	addressOne = "0x7E5F4552091A69125d5DfCb7b8C2659029395Bdf"
)

func memoryStore(t *testing.T, opts ...docstore.Option) *docstore.Store {
	t.Helper()
	c, err := envelope.NewCipher(testSecret)
	require.NoError(t, err)
	s, err := docstore.New(Collection, store.NewMemoryStore(), c, opts...)
	require.NoError(t, err)
	return s
}

func TestParsePrivateKey(t *testing.T) {
	k, err := ParsePrivateKey(keyOne)
	require.NoError(t, err)
	assert.Equal(t, keyOne, k.Hex())
	assert.Equal(t, addressOne, k.Address())

	k, err = ParsePrivateKey(strings.TrimPrefix(keyOne, "0x"))
	require.NoError(t, err)
	assert.Equal(t, addressOne, k.Address())

	for _, bad := range []string{
		"",
		"0x01",
		"0x" + strings.Repeat("zz", 32),
		"0x" + strings.Repeat("00", 32),
		"0x" + strings.Repeat("ff", 32),
	} {
		_, err := ParsePrivateKey(bad)
		assert.ErrorIs(t, err, ErrInvalidKey, bad)
	}
}

func TestGenerateKey(t *testing.T) {
	k, err := GenerateKey()
	require.NoError(t, err)
	assert.Regexp(t, "^0x[0-9a-f]{64}$", k.Hex())
	assert.True(t, IsAddress(k.Address()))

	again, err := ParsePrivateKey(k.Hex())
	require.NoError(t, err)
	assert.Equal(t, k.Address(), again.Address())
}

func TestChecksumAddress(t *testing.T) {
	// EIP-55 reference vectors.
	for _, want := range []string{
		"0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed",
		"0xfB6916095ca1df60bB79Ce92cE3Ea74c37c5d359",
		"0xdbF03B407c01E7cD3CBea99509d93f8DDDC8C6FB",
		"0xD1220A0cf47c7B9Be7A2E6BA89F429762e7b9aDb",
	} {
		got, err := ChecksumAddress(strings.ToLower(want))
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ChecksumAddress("0xAAA")
	assert.ErrorIs(t, err, ErrInvalidAddress)
	assert.False(t, IsAddress("5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"))
}

func TestSign(t *testing.T) {
	k, err := GenerateKey()
	require.NoError(t, err)
	hash := keccak256([]byte("transfer"))

	sig, err := k.Sign(hash)
	require.NoError(t, err)
	require.Len(t, sig, 65)
	assert.LessOrEqual(t, sig[64], byte(1))

	compact := append([]byte{27 + sig[64]}, sig[:64]...)
	pub, _, err := ecdsa.RecoverCompact(compact, hash)
	require.NoError(t, err)
	assert.Equal(t, k.priv.PubKey().SerializeCompressed(), pub.SerializeCompressed())

	_, err = k.Sign([]byte("short"))
	assert.ErrorIs(t, err, ErrInvalidHash)
}

func TestCreateWalletProjection(t *testing.T) {
	repo := NewRepository(memoryStore(t, docstore.WithSchema(Schema)))

	w, err := repo.CreateWallet()
	require.NoError(t, err)
	assert.Len(t, w.ID, 32)
	_, err = hex.DecodeString(w.ID)
	require.NoError(t, err)
	assert.True(t, IsAddress(w.PublicKey))
	assert.False(t, w.CreatedAt.IsZero())
	assert.Equal(t, w.CreatedAt, w.UpdatedAt)

	b, err := json.Marshal(w)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "privateKey")

	var fields map[string]any
	require.NoError(t, json.Unmarshal(b, &fields))
	assert.ElementsMatch(t, []string{"id", "publicKey", "createdAt", "updatedAt"}, keys(fields))

	list, err := repo.ListWallets()
	require.NoError(t, err)
	require.Len(t, list, 1)
	b, err = json.Marshal(list)
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"`+w.ID+`","publicKey":"`+w.PublicKey+`"}]`, string(b))

	got, err := repo.Get(w.ID)
	require.NoError(t, err)
	assert.Equal(t, w, got)

	_, err = repo.Get("nope")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestEndToEnd(t *testing.T) {
	s := memoryStore(t)
	repo := NewRepository(s)

	_, err := s.Create(docstore.Document{"id": "a1", "privateKey": "0xkeyA", "publicKey": "0xAAA"})
	require.NoError(t, err)
	_, err = s.Create(docstore.Document{"id": "b1", "privateKey": "0xkeyB", "publicKey": "0xBBB"})
	require.NoError(t, err)

	list, err := repo.ListWallets()
	require.NoError(t, err)
	assert.Equal(t, []Summary{{ID: "a1", PublicKey: "0xAAA"}, {ID: "b1", PublicKey: "0xBBB"}}, list)

	rec, err := repo.FindByAddress("0xAAA")
	require.NoError(t, err)
	assert.Equal(t, "a1", rec.ID)
	assert.Equal(t, "0xkeyA", rec.PrivateKey)
	assert.Equal(t, "0xAAA", rec.PublicKey)

	rec, err = repo.FindByAddress("0xbbb")
	require.NoError(t, err)
	assert.Equal(t, "b1", rec.ID)

	_, err = repo.FindByAddress("0xCCC")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestListWalletsEmpty(t *testing.T) {
	repo := NewRepository(memoryStore(t))
	list, err := repo.ListWallets()
	require.NoError(t, err)
	assert.NotNil(t, list)
	assert.Empty(t, list)

	b, err := json.Marshal(list)
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}

func TestSigner(t *testing.T) {
	s := memoryStore(t)
	repo := NewRepository(s)

	w, err := repo.CreateWallet()
	require.NoError(t, err)

	key, err := repo.Signer(strings.ToLower(w.PublicKey))
	require.NoError(t, err)
	assert.Equal(t, w.PublicKey, key.Address())

	// A record whose key derives a different address is refused.
	_, err = s.Create(docstore.Document{"id": "forged", "privateKey": keyOne, "publicKey": "0x1111111111111111111111111111111111111111"})
	require.NoError(t, err)
	_, err = repo.Signer("0x1111111111111111111111111111111111111111")
	assert.ErrorIs(t, err, ErrAddressMismatch)

	_, err = repo.Signer("0x2222222222222222222222222222222222222222")
	assert.ErrorIs(t, err, ErrWalletNotFound)
}

func TestOpen(t *testing.T) {
	cfg := &config.Config{Secret: testSecret, DataDir: t.TempDir(), Backend: "file"}
	repo, err := Open(cfg, nil)
	require.NoError(t, err)
	w, err := repo.CreateWallet()
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	repo, err = Open(cfg, nil)
	require.NoError(t, err)
	defer repo.Close()
	list, err := repo.ListWallets()
	require.NoError(t, err)
	assert.Equal(t, []Summary{{ID: w.ID, PublicKey: w.PublicKey}}, list)

	// The schema rejects records that are not wallets.
	_, err = repo.wallets.Store().Create(docstore.Document{"id": "x", "privateKey": "0x1", "publicKey": "0xAAA"})
	assert.ErrorIs(t, err, docstore.ErrInvalidDocument)

	_, err = Open(&config.Config{DataDir: t.TempDir()}, nil)
	assert.ErrorIs(t, err, docstore.ErrConfig)
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
