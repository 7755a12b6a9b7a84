// Package ledger reads the driver's UTXO snapshot from an Ogmios node.
package ledger

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"time"

	"github.com/Klingon-tech/txpump/internal/fault"
	klog "github.com/Klingon-tech/txpump/internal/log"
	"github.com/Klingon-tech/txpump/internal/rpcclient"
	"github.com/Klingon-tech/txpump/internal/utxo"
	"github.com/Klingon-tech/txpump/pkg/tx"
	"github.com/Klingon-tech/txpump/pkg/types"
)

// Source supplies full UTXO snapshots for a set of addresses.
type Source interface {
	Snapshot(ctx context.Context, addrs ...types.Address) (*utxo.Set, error)
}

// Options tune the HTTP transport used to reach the node.
type Options struct {
	Timeout            time.Duration
	InsecureSkipVerify bool
	HTTPClient         *http.Client
}

// Client queries an Ogmios v6 JSON-RPC endpoint over HTTP.
type Client struct {
	rpc   *rpcclient.Client
	magic uint32
}

// Dial connects to the node at endpoint and checks that it serves the
// network identified by networkMagic. Any failure is a ConnectionError.
func Dial(ctx context.Context, endpoint string, networkMagic uint32, opts Options) (*Client, error) {
	const op = "ledger dial"

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
		if opts.InsecureSkipVerify {
			hc.Transport = &http.Transport{
				TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
			}
		}
	}
	c := &Client{rpc: rpcclient.NewWithHTTPClient(endpoint, hc)}

	magic, err := c.NetworkMagic(ctx)
	if err != nil {
		return nil, fault.New(fault.ConnectionError, op, fmt.Errorf("%s: %w", endpoint, err))
	}
	if magic != networkMagic {
		return nil, fault.Newf(fault.ConnectionError, op, "node at %s serves network magic %d, want %d", endpoint, magic, networkMagic)
	}
	c.magic = magic

	klog.Ledger.Info().
		Str("endpoint", endpoint).
		Uint32("network_magic", magic).
		Msg("Connected to ledger node")
	return c, nil
}

// NetworkMagic queries the Shelley genesis for the node's network magic.
func (c *Client) NetworkMagic(ctx context.Context) (uint32, error) {
	var g shelleyGenesis
	if err := c.rpc.Call(ctx, methodGenesisConfiguration, genesisParams{Era: "shelley"}, &g); err != nil {
		return 0, err
	}
	return g.NetworkMagic, nil
}

// UtxosByAddress returns every unspent output held by addrs.
func (c *Client) UtxosByAddress(ctx context.Context, addrs ...types.Address) ([]types.Utxo, error) {
	params := utxoParams{Addresses: make([]string, len(addrs))}
	for i, a := range addrs {
		params.Addresses[i] = a.String()
	}

	var raw []ogmiosUtxo
	if err := c.rpc.Call(ctx, methodUtxo, params, &raw); err != nil {
		return nil, err
	}
	out := make([]types.Utxo, 0, len(raw))
	for _, r := range raw {
		u, err := r.toUtxo()
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, nil
}

// Snapshot fetches the outputs of addrs as a set. Failures are SyncErrors.
func (c *Client) Snapshot(ctx context.Context, addrs ...types.Address) (*utxo.Set, error) {
	const op = "ledger snapshot"

	utxos, err := c.UtxosByAddress(ctx, addrs...)
	if err != nil {
		return nil, fault.New(fault.SyncError, op, err)
	}
	set, err := utxo.NewSet(utxos...)
	if err != nil {
		return nil, fault.New(fault.SyncError, op, err)
	}
	total, _ := set.TotalLovelace()
	klog.Ledger.Debug().
		Int("utxos", set.Len()).
		Uint64("lovelace", total).
		Msg("Fetched snapshot")
	return set, nil
}

// ProtocolParams reads the fee and minimum-output parameters currently in
// force on the ledger.
func (c *Client) ProtocolParams(ctx context.Context) (tx.Params, error) {
	var pp ogmiosProtocolParameters
	if err := c.rpc.Call(ctx, methodProtocolParameters, nil, &pp); err != nil {
		return tx.Params{}, err
	}
	return tx.Params{
		MinFeeA:          pp.MinFeeCoefficient,
		MinFeeB:          pp.MinFeeConstant.Ada.Lovelace,
		CoinsPerUTxOByte: pp.MinUtxoDepositCoefficient,
	}, nil
}

// Magic returns the network magic confirmed at Dial.
func (c *Client) Magic() uint32 {
	return c.magic
}
