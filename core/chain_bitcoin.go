package core

// chain_bitcoin.go — Bitcoin-style ChainAdapter variant (spec §6): JSON-RPC
// 1.0 over HTTP Basic auth, amounts in satoshi, 6 minimum confirmations.
// Method names follow daglabs-btcd's rpcclient/btcjson surface
// (getbalance/getnewaddress/sendtoaddress/gettransaction) without vendoring
// that package.

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

const bitcoinMinConfirmations = 6

// bitcoinRPCTransport speaks JSON-RPC 1.0 with HTTP Basic auth.
type bitcoinRPCTransport struct {
	endpoint string
	user     string
	pass     string
	client   *http.Client
}

type jsonRPC1Request struct {
	Method string `json:"method"`
	Params []any  `json:"params"`
	ID     int    `json:"id"`
}

type jsonRPC1Response struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
	ID int `json:"id"`
}

func (t *bitcoinRPCTransport) Call(ctx context.Context, method string, params []any) ([]byte, error) {
	body, err := json.Marshal(jsonRPC1Request{Method: method, Params: params, ID: 1})
	if err != nil {
		return nil, WrapError(KindInternal, "failed to encode rpc request", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, WrapError(KindInternal, "failed to build rpc request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.SetBasicAuth(t.user, t.pass)

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
	var rpcResp jsonRPC1Response
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return nil, WrapError(KindExternal, "malformed rpc response", ErrChainUnavailable)
	}
	if rpcResp.Error != nil {
		return nil, WrapError(KindExternal, rpcResp.Error.Message, ErrChainUnavailable)
	}
	return rpcResp.Result, nil
}

// BitcoinAdapter implements ChainAdapter against a Bitcoin-style daemon.
type BitcoinAdapter struct {
	currency  Currency
	transport RPCTransport
	logger    *zap.Logger

	mu    sync.Mutex
	addrs *addressBook
}

// NewBitcoinAdapter builds a BitcoinAdapter for currency, talking to a
// daemon at endpoint with HTTP Basic auth credentials.
func NewBitcoinAdapter(currency Currency, endpoint, user, pass string, client *http.Client, logger *zap.Logger) *BitcoinAdapter {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BitcoinAdapter{
		currency:  currency,
		transport: &bitcoinRPCTransport{endpoint: endpoint, user: user, pass: pass, client: client},
		logger:    logger,
		addrs:     newAddressBook(),
	}
}

func (a *BitcoinAdapter) Currency() Currency { return a.currency }

func (a *BitcoinAdapter) GetBalance(ctx context.Context) (Balance, error) {
	confirmed, err := a.transport.Call(ctx, "getbalance", []any{"*", bitcoinMinConfirmations})
	if err != nil {
		a.logger.Warn("getbalance failed", zap.Error(err))
		return Balance{}, err
	}
	unconfirmed, err := a.transport.Call(ctx, "getbalance", []any{"*", 0})
	if err != nil {
		return Balance{}, err
	}
	var confBTC, unconfBTC float64
	if err := json.Unmarshal(confirmed, &confBTC); err != nil {
		return Balance{}, WrapError(KindExternal, "malformed balance result", ErrChainUnavailable)
	}
	if err := json.Unmarshal(unconfirmed, &unconfBTC); err != nil {
		return Balance{}, WrapError(KindExternal, "malformed balance result", ErrChainUnavailable)
	}
	return Balance{
		Confirmed:   Amount(confBTC * 1e8),
		Unconfirmed: Amount((unconfBTC - confBTC) * 1e8),
	}, nil
}

func (a *BitcoinAdapter) NewAddress(ctx context.Context, label string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if label != "" {
		if existing, ok := a.addrs.byLabel[label]; ok {
			return existing, nil
		}
	}
	raw, err := a.transport.Call(ctx, "getnewaddress", []any{label})
	if err != nil {
		return "", err
	}
	var addr string
	if err := json.Unmarshal(raw, &addr); err != nil {
		return "", WrapError(KindExternal, "malformed address result", ErrChainUnavailable)
	}
	return a.addrs.lookupOrStore(label, addr), nil
}

func (a *BitcoinAdapter) Send(ctx context.Context, to string, amount Amount) (string, error) {
	if to == "" {
		return "", FieldError(KindValidation, "to", "destination address required")
	}
	btc := float64(amount) / 1e8
	raw, err := a.transport.Call(ctx, "sendtoaddress", []any{to, btc})
	if err != nil {
		return "", err
	}
	var txid string
	if err := json.Unmarshal(raw, &txid); err != nil {
		return "", WrapError(KindExternal, "malformed send result", ErrChainUnavailable)
	}
	return txid, nil
}

func (a *BitcoinAdapter) Status(ctx context.Context, txid string) (TxInfo, error) {
	raw, err := a.transport.Call(ctx, "gettransaction", []any{txid})
	if err != nil {
		return TxInfo{}, err
	}
	var tx struct {
		Confirmations int `json:"confirmations"`
	}
	if err := json.Unmarshal(raw, &tx); err != nil {
		return TxInfo{}, WrapError(KindExternal, "malformed transaction result", ErrChainUnavailable)
	}
	status := TxPending
	if tx.Confirmations >= bitcoinMinConfirmations {
		status = TxConfirmed
	}
	return TxInfo{Confirmations: tx.Confirmations, Status: status}, nil
}
