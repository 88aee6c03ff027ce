package core

// chain_ethereum.go — Ethereum-style ChainAdapter variant (spec §6):
// JSON-RPC 2.0, amounts in wei, 12 minimum confirmations. Method names
// follow go-ethereum's JSON-RPC surface (eth_getBalance, eth_sendTransaction,
// eth_getTransactionReceipt, eth_blockNumber) without vendoring
// go-ethereum's client.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

const ethereumMinConfirmations = 12

// ethereumRPCTransport speaks JSON-RPC 2.0 with no auth header (bearer
// tokens, if required by a provider, are set via the shared http.Client's
// transport).
type ethereumRPCTransport struct {
	endpoint string
	client   *http.Client
	nextID   int
	mu       sync.Mutex
}

type jsonRPC2Request struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      int    `json:"id"`
}

type jsonRPC2Response struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func (t *ethereumRPCTransport) Call(ctx context.Context, method string, params []any) ([]byte, error) {
	t.mu.Lock()
	t.nextID++
	id := t.nextID
	t.mu.Unlock()

	body, err := json.Marshal(jsonRPC2Request{JSONRPC: "2.0", Method: method, Params: params, ID: id})
	if err != nil {
		return nil, WrapError(KindInternal, "failed to encode rpc request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(KindInternal, "failed to build rpc request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, WrapError(KindExternal, "chain daemon unreachable", ErrChainUnavailable)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 500 {
		return nil, WrapError(KindExternal, fmt.Sprintf("chain daemon returned %d", resp.StatusCode), ErrChainUnavailable)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, WrapError(KindExternal, "failed to read rpc response", ErrChainUnavailable)
	}
	var rpcResp jsonRPC2Response
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, WrapError(KindExternal, "malformed rpc response", ErrChainUnavailable)
	}
	if rpcResp.Error != nil {
		return nil, WrapError(KindExternal, rpcResp.Error.Message, ErrChainUnavailable)
	}
	return rpcResp.Result, nil
}

// EthereumAdapter implements ChainAdapter against an Ethereum-style daemon.
type EthereumAdapter struct {
	currency  Currency
	transport RPCTransport
	address   string // the account this adapter watches/sends from
	logger    *zap.Logger

	mu    sync.Mutex
	addrs *addressBook
}

// NewEthereumAdapter builds an EthereumAdapter for currency, talking to a
// daemon at endpoint and tracking balances/sends for account address.
func NewEthereumAdapter(currency Currency, endpoint, address string, client *http.Client, logger *zap.Logger) *EthereumAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EthereumAdapter{
		currency:  currency,
		transport: &ethereumRPCTransport{endpoint: endpoint, client: client},
		address:   address,
		logger:    logger,
		addrs:     newAddressBook(),
	}
}

func (a *EthereumAdapter) Currency() Currency { return a.currency }

func (a *EthereumAdapter) GetBalance(ctx context.Context) (Balance, error) {
	raw, err := a.transport.Call(ctx, "eth_getBalance", []any{a.address, "latest"})
	if err != nil {
		a.logger.Warn("eth_getBalance failed", zap.Error(err))
		return Balance{}, err
	}
	var hexWei string
	if err := json.Unmarshal(raw, &hexWei); err != nil {
		return Balance{}, WrapError(KindExternal, "malformed balance result", ErrChainUnavailable)
	}
	wei, ok := new(big.Int).SetString(trimHexPrefix(hexWei), 16)
	if !ok {
		return Balance{}, WrapError(KindExternal, "malformed balance hex", ErrChainUnavailable)
	}
	// Ethereum has no separate unconfirmed-balance RPC call in the way
	// Bitcoin-style daemons expose it; "latest" already reflects the chain
	// tip, so unconfirmed is reported as zero here.
	return Balance{Confirmed: Amount(wei.Int64())}, nil
}

func (a *EthereumAdapter) NewAddress(ctx context.Context, label string) (string, error) {
	// Ethereum-style accounts are not freshly minted per deposit the way
	// Bitcoin-style wallets are; the adapter's configured address is
	// returned, memoized per label for idempotency parity with the
	// Bitcoin-style variant's contract.
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.addrs.lookupOrStore(label, a.address), nil
}

func (a *EthereumAdapter) Send(ctx context.Context, to string, amount Amount) (string, error) {
	if to == "" {
		return "", FieldError(KindValidation, "to", "destination address required")
	}
	valueHex := fmt.Sprintf("0x%x", big.NewInt(int64(amount)))
	raw, err := a.transport.Call(ctx, "eth_sendTransaction", []any{map[string]any{
		"from":  a.address,
		"to":    to,
		"value": valueHex,
	}})
	if err != nil {
		return "", err
	}
	var txid string
	if err := json.Unmarshal(raw, &txid); err != nil {
		return "", WrapError(KindExternal, "malformed send result", ErrChainUnavailable)
	}
	return txid, nil
}

func (a *EthereumAdapter) Status(ctx context.Context, txid string) (TxInfo, error) {
	raw, err := a.transport.Call(ctx, "eth_getTransactionReceipt", []any{txid})
	if err != nil {
		return TxInfo{}, err
	}
	var receipt struct {
		BlockNumber string `json:"blockNumber"`
	}
	if err := json.Unmarshal(raw, &receipt); err != nil || receipt.BlockNumber == "" {
		return TxInfo{Status: TxPending}, nil
	}

	headRaw, err := a.transport.Call(ctx, "eth_blockNumber", nil)
	if err != nil {
		return TxInfo{}, err
	}
	var headHex string
	if err := json.Unmarshal(headRaw, &headHex); err != nil {
		return TxInfo{}, WrapError(KindExternal, "malformed block number result", ErrChainUnavailable)
	}

	txBlock, _ := new(big.Int).SetString(trimHexPrefix(receipt.BlockNumber), 16)
	head, _ := new(big.Int).SetString(trimHexPrefix(headHex), 16)
	if txBlock == nil || head == nil {
		return TxInfo{Status: TxPending}, nil
	}
	confirmations := int(new(big.Int).Sub(head, txBlock).Int64()) + 1
	status := TxPending
	if confirmations >= ethereumMinConfirmations {
		status = TxConfirmed
	}
	return TxInfo{Confirmations: confirmations, Status: status}, nil
}

func trimHexPrefix(s string) string {
	if len(s) > 1 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		return s[2:]
	}
	return s
}
