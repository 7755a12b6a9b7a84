package types

import "encoding/json"

// Utxo is an unspent output owned by the driver.
// Datum and script references are carried opaquely and never interpreted.
type Utxo struct {
	ID        UtxoID          `json:"id"`
	Address   Address         `json:"address"`
	Balance   Balance         `json:"balance"`
	DatumHash string          `json:"datum_hash,omitempty"`
	Datum     string          `json:"datum,omitempty"`
	Script    json.RawMessage `json:"script,omitempty"`
}

// TotalLovelace sums lovelace over utxos. ok is false on uint64 overflow.
func TotalLovelace(utxos []Utxo) (total uint64, ok bool) {
	for _, u := range utxos {
		if total+u.Balance.Lovelace < total {
			return 0, false
		}
		total += u.Balance.Lovelace
	}
	return total, true
}
