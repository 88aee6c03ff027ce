package core

// chain_adapter.go — C1 Chain Adapter. Grounded on spec §4.1/§6's RPC
// contract, with wire shapes modeled after daglabs-btcd's rpcclient/btcjson
// (JSON-RPC 1.0, HTTP basic auth) and go-ethereum's JSON-RPC 2.0 method
// names, both present in the examples pack. Neither library is vendored:
// the adapter only needs the narrow {get_balance, new_address, send,
// status} contract against an external daemon, not a full node client —
// see SPEC_FULL.md's B.1 entry for why plain net/http + encoding/json is used
// instead.

import (
	"context"
)

// Balance reports a currency's confirmed and unconfirmed amounts.
type Balance struct {
	Confirmed   Amount
	Unconfirmed Amount
}

// TxStatus is a transaction's confirmation state relative to a chain
// variant's minimum-confirmations threshold.
type TxStatus string

const (
	TxPending   TxStatus = "pending"
	TxConfirmed TxStatus = "confirmed"
	TxFailed    TxStatus = "failed"
)

// TxInfo reports a transaction's current confirmation count and status.
type TxInfo struct {
	Confirmations int
	Status        TxStatus
}

// ChainAdapter is the uniform interface every currency variant implements
// (spec §4.1). It is the only component that performs network I/O against
// a currency daemon; every other component reaches the chain through it.
type ChainAdapter interface {
	Currency() Currency
	GetBalance(ctx context.Context) (Balance, error)
	NewAddress(ctx context.Context, label string) (string, error)
	Send(ctx context.Context, to string, amount Amount) (txid string, err error)
	Status(ctx context.Context, txid string) (TxInfo, error)
}

// RPCTransport performs a single JSON-RPC round trip and returns the raw
// result payload. BitcoinAdapter and EthereumAdapter each supply one built
// around their own request/response envelope (1.0 vs 2.0).
type RPCTransport interface {
	Call(ctx context.Context, method string, params []any) ([]byte, error)
}

// addressBook tracks idempotent address issuance per label, since
// new_address is only idempotent when a label is supplied (spec §4.1).
type addressBook struct {
	byLabel map[string]string
}

func newAddressBook() *addressBook {
	return &addressBook{byLabel: make(map[string]string)}
}

func (b *addressBook) lookupOrStore(label, fresh string) string {
	if label == "" {
		return fresh
	}
	if existing, ok := b.byLabel[label]; ok {
		return existing
	}
	b.byLabel[label] = fresh
	return fresh
}
