package ledger

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/Klingon-tech/txpump/pkg/types"
)

// Ogmios v6 method names.
const (
	methodGenesisConfiguration = "queryNetwork/genesisConfiguration"
	methodUtxo                 = "queryLedgerState/utxo"
	methodProtocolParameters   = "queryLedgerState/protocolParameters"
)

type genesisParams struct {
	Era string `json:"era"`
}

type shelleyGenesis struct {
	NetworkMagic uint32 `json:"networkMagic"`
	Network      string `json:"network"`
}

type utxoParams struct {
	Addresses []string `json:"addresses"`
}

type ogmiosTxRef struct {
	ID string `json:"id"`
}

// ogmiosUtxo is one entry of a queryLedgerState/utxo result.
type ogmiosUtxo struct {
	Transaction ogmiosTxRef     `json:"transaction"`
	Index       uint32          `json:"index"`
	Address     string          `json:"address"`
	Value       ogmiosValue     `json:"value"`
	DatumHash   string          `json:"datumHash,omitempty"`
	Datum       string          `json:"datum,omitempty"`
	Script      json.RawMessage `json:"script,omitempty"`
}

// ogmiosValue maps "ada" to {"lovelace": n} and each policy id to
// {asset name: quantity}.
type ogmiosValue map[string]map[string]json.Number

type ogmiosLovelace struct {
	Ada struct {
		Lovelace uint64 `json:"lovelace"`
	} `json:"ada"`
}

type ogmiosProtocolParameters struct {
	MinFeeCoefficient         uint64         `json:"minFeeCoefficient"`
	MinFeeConstant            ogmiosLovelace `json:"minFeeConstant"`
	MinUtxoDepositCoefficient uint64         `json:"minUtxoDepositCoefficient"`
}

func (u ogmiosUtxo) toUtxo() (types.Utxo, error) {
	h, err := types.HexToHash(u.Transaction.ID)
	if err != nil {
		return types.Utxo{}, fmt.Errorf("transaction id: %w", err)
	}
	id := types.UtxoID{TxHash: h, Index: u.Index}

	addr, err := types.ParseAddress(u.Address)
	if err != nil {
		return types.Utxo{}, fmt.Errorf("%s: address: %w", id, err)
	}
	bal, err := u.Value.balance()
	if err != nil {
		return types.Utxo{}, fmt.Errorf("%s: value: %w", id, err)
	}
	return types.Utxo{
		ID:        id,
		Address:   addr,
		Balance:   bal,
		DatumHash: u.DatumHash,
		Datum:     u.Datum,
		Script:    u.Script,
	}, nil
}

func (v ogmiosValue) balance() (types.Balance, error) {
	var bal types.Balance
	for policy, assets := range v {
		if policy == "ada" {
			n, ok := assets["lovelace"]
			if !ok {
				return types.Balance{}, fmt.Errorf("ada entry without lovelace")
			}
			lovelace, err := strconv.ParseUint(n.String(), 10, 64)
			if err != nil {
				return types.Balance{}, fmt.Errorf("lovelace %q: %w", n, err)
			}
			bal.Lovelace = lovelace
			continue
		}
		for name, qty := range assets {
			q, err := strconv.ParseUint(qty.String(), 10, 64)
			if err != nil {
				return types.Balance{}, fmt.Errorf("asset %s%s quantity %q: %w", policy, name, qty, err)
			}
			if q > math.MaxInt64 {
				return types.Balance{}, fmt.Errorf("%w: %s%s", types.ErrAssetOverflow, policy, name)
			}
			a := types.Asset{PolicyID: policy, Name: name, Quantity: int64(q)}
			if err := a.Validate(); err != nil {
				return types.Balance{}, err
			}
			bal.Assets = append(bal.Assets, a)
		}
	}
	types.SortAssets(bal.Assets)
	return bal, nil
}
