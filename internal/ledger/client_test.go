package ledger

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Klingon-tech/txpump/internal/fault"
	"github.com/Klingon-tech/txpump/pkg/types"
)

var (
	testPolicy = strings.Repeat("c3", types.PolicyIDSize)
	txA        = strings.Repeat("0a", 32)
	txB        = strings.Repeat("0b", 32)
)

func testAddress() types.Address {
	var pay, stake [types.KeyHashSize]byte
	pay[0], stake[0] = 0x01, 0x02
	return types.NewBaseAddress(types.NetworkIDTestnet, pay, stake)
}

// fakeOgmios answers the JSON-RPC methods the client uses. utxos is the
// raw JSON result of queryLedgerState/utxo.
type fakeOgmios struct {
	magic     uint32
	utxos     string
	lastAddrs []string
	calls     map[string]int
}

func (f *fakeOgmios) start(t *testing.T) *httptest.Server {
	t.Helper()
	f.calls = map[string]int{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Method string          `json:"method"`
			Params json.RawMessage `json:"params"`
			ID     uint64          `json:"id"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		f.calls[req.Method]++

		var result string
		switch req.Method {
		case methodGenesisConfiguration:
			assert.JSONEq(t, `{"era":"shelley"}`, string(req.Params))
			result = `{"era":"shelley","networkMagic":` + jsonUint(f.magic) + `,"network":"testnet"}`
		case methodUtxo:
			var p utxoParams
			require.NoError(t, json.Unmarshal(req.Params, &p))
			f.lastAddrs = p.Addresses
			result = f.utxos
		case methodProtocolParameters:
			result = `{"minFeeCoefficient":44,"minFeeConstant":{"ada":{"lovelace":155381}},"minUtxoDepositCoefficient":4310}`
		default:
			_, _ = w.Write([]byte(`{"jsonrpc":"2.0","error":{"code":-32601,"message":"method not found"},"id":1}`))
			return
		}
		_, _ = w.Write([]byte(`{"jsonrpc":"2.0","method":"` + req.Method + `","result":` + result + `,"id":1}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func jsonUint(v uint32) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestDial_MagicMatches(t *testing.T) {
	f := &fakeOgmios{magic: 1}
	srv := f.start(t)

	c, err := Dial(context.Background(), srv.URL, 1, Options{})
	require.NoError(t, err)
	assert.Equal(t, uint32(1), c.Magic())
}

func TestDial_MagicMismatch(t *testing.T) {
	f := &fakeOgmios{magic: 2}
	srv := f.start(t)

	_, err := Dial(context.Background(), srv.URL, 764824073, Options{})
	assert.Equal(t, fault.ConnectionError, fault.KindOf(err))
}

func TestDial_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := Dial(context.Background(), url, 1, Options{})
	assert.Equal(t, fault.ConnectionError, fault.KindOf(err))
}

func TestSnapshot_ParsesOgmiosUtxos(t *testing.T) {
	addr := testAddress()
	f := &fakeOgmios{magic: 1, utxos: `[
		{"transaction":{"id":"` + txB + `"},"index":1,"address":"` + addr.String() + `",
		 "value":{"ada":{"lovelace":2000000}}},
		{"transaction":{"id":"` + txA + `"},"index":0,"address":"` + addr.String() + `",
		 "value":{"ada":{"lovelace":5000000},"` + testPolicy + `":{"746f6b656e":12,"":3}},
		 "datumHash":"ab","script":{"language":"native"}}
	]`}
	srv := f.start(t)

	c, err := Dial(context.Background(), srv.URL, 1, Options{})
	require.NoError(t, err)
	set, err := c.Snapshot(context.Background(), addr)
	require.NoError(t, err)

	assert.Equal(t, []string{addr.String()}, f.lastAddrs)
	require.Equal(t, 2, set.Len())

	items := set.Items()
	// Sorted by tx hash: 0a.. before 0b..
	assert.Equal(t, txA, items[0].ID.TxHash.String())
	assert.Equal(t, uint64(5_000_000), items[0].Balance.Lovelace)
	assert.Equal(t, []types.Asset{
		{PolicyID: testPolicy, Name: "", Quantity: 3},
		{PolicyID: testPolicy, Name: "746f6b656e", Quantity: 12},
	}, items[0].Balance.Assets)
	assert.Equal(t, "ab", items[0].DatumHash)
	assert.JSONEq(t, `{"language":"native"}`, string(items[0].Script))
	assert.True(t, items[0].Address.Equal(addr))

	assert.Equal(t, uint32(1), items[1].ID.Index)
	total, ok := set.TotalLovelace()
	assert.True(t, ok)
	assert.Equal(t, uint64(7_000_000), total)
}

func TestSnapshot_Empty(t *testing.T) {
	f := &fakeOgmios{magic: 1, utxos: `[]`}
	srv := f.start(t)

	c, err := Dial(context.Background(), srv.URL, 1, Options{})
	require.NoError(t, err)
	set, err := c.Snapshot(context.Background(), testAddress())
	require.NoError(t, err)
	assert.True(t, set.IsEmpty())
}

func TestSnapshot_BadEntryIsSyncError(t *testing.T) {
	f := &fakeOgmios{magic: 1, utxos: `[{"transaction":{"id":"zz"},"index":0,"address":"x","value":{"ada":{"lovelace":1}}}]`}
	srv := f.start(t)

	c, err := Dial(context.Background(), srv.URL, 1, Options{})
	require.NoError(t, err)
	_, err = c.Snapshot(context.Background(), testAddress())
	assert.Equal(t, fault.SyncError, fault.KindOf(err))
}

func TestSnapshot_DuplicateIsSyncError(t *testing.T) {
	addr := testAddress().String()
	entry := `{"transaction":{"id":"` + txA + `"},"index":0,"address":"` + addr + `","value":{"ada":{"lovelace":1}}}`
	f := &fakeOgmios{magic: 1, utxos: `[` + entry + `,` + entry + `]`}
	srv := f.start(t)

	c, err := Dial(context.Background(), srv.URL, 1, Options{})
	require.NoError(t, err)
	_, err = c.Snapshot(context.Background(), testAddress())
	assert.Equal(t, fault.SyncError, fault.KindOf(err))
}

func TestProtocolParams(t *testing.T) {
	f := &fakeOgmios{magic: 1}
	srv := f.start(t)

	c, err := Dial(context.Background(), srv.URL, 1, Options{})
	require.NoError(t, err)
	p, err := c.ProtocolParams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(44), p.MinFeeA)
	assert.Equal(t, uint64(155381), p.MinFeeB)
	assert.Equal(t, uint64(4310), p.CoinsPerUTxOByte)
}

func TestOgmiosValue_Errors(t *testing.T) {
	for _, raw := range []string{
		`{"ada":{}}`,
		`{"ada":{"lovelace":-1}}`,
		`{"` + testPolicy + `":{"00":-5}}`,
		`{"abcd":{"00":1}}`,
	} {
		var v ogmiosValue
		require.NoError(t, json.Unmarshal([]byte(raw), &v), raw)
		_, err := v.balance()
		assert.Error(t, err, raw)
	}
}
