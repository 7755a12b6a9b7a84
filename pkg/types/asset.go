package types

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
)

// Native asset limits.
const (
	PolicyIDSize     = 28
	MaxAssetNameSize = 32
)

// ErrAssetOverflow is returned when aggregating quantities overflows int64.
var ErrAssetOverflow = errors.New("asset quantity overflow")

// Asset is a quantity of one native token, identified by its minting
// policy and asset name (both hex).
type Asset struct {
	PolicyID string `json:"policy_id"`
	Name     string `json:"name"`
	Quantity int64  `json:"quantity"`
}

// Unit returns policyID concatenated with name, the usual asset key.
func (a Asset) Unit() string {
	return a.PolicyID + a.Name
}

// Validate checks the hex encodings, sizes and sign of the asset.
func (a Asset) Validate() error {
	policy, err := hex.DecodeString(a.PolicyID)
	if err != nil {
		return fmt.Errorf("asset policy %q: %w", a.PolicyID, err)
	}
	if len(policy) != PolicyIDSize {
		return fmt.Errorf("asset policy must be %d bytes, got %d", PolicyIDSize, len(policy))
	}
	name, err := hex.DecodeString(a.Name)
	if err != nil {
		return fmt.Errorf("asset name %q: %w", a.Name, err)
	}
	if len(name) > MaxAssetNameSize {
		return fmt.Errorf("asset name must be at most %d bytes, got %d", MaxAssetNameSize, len(name))
	}
	if a.Quantity < 0 {
		return fmt.Errorf("asset %s has negative quantity %d", a.Unit(), a.Quantity)
	}
	return nil
}

// Balance is a lovelace amount plus native assets.
type Balance struct {
	Lovelace uint64  `json:"lovelace"`
	Assets   []Asset `json:"assets,omitempty"`
}

// AggregateAssets merges asset lists by (policy, name), summing quantities.
// The result is sorted by policy then name and omits zero quantities.
func AggregateAssets(lists ...[]Asset) ([]Asset, error) {
	sums := make(map[[2]string]int64)
	for _, list := range lists {
		for _, a := range list {
			key := [2]string{strings.ToLower(a.PolicyID), strings.ToLower(a.Name)}
			cur := sums[key]
			if a.Quantity > 0 && cur > math.MaxInt64-a.Quantity {
				return nil, fmt.Errorf("%w: %s", ErrAssetOverflow, a.Unit())
			}
			sums[key] = cur + a.Quantity
		}
	}

	out := make([]Asset, 0, len(sums))
	for key, qty := range sums {
		if qty == 0 {
			continue
		}
		out = append(out, Asset{PolicyID: key[0], Name: key[1], Quantity: qty})
	}
	SortAssets(out)
	return out, nil
}

// SortAssets sorts assets in canonical (policy, name) order.
func SortAssets(assets []Asset) {
	sort.Slice(assets, func(i, j int) bool {
		if assets[i].PolicyID != assets[j].PolicyID {
			return assets[i].PolicyID < assets[j].PolicyID
		}
		return assets[i].Name < assets[j].Name
	})
}
