package core

import (
	"context"
	"encoding/json"
	"testing"
)

// fakeRPCTransport is an RPCTransport double keyed by method name, avoiding
// any real JSON-RPC daemon dependency in tests.
type fakeRPCTransport struct {
	responses map[string][]byte
	errs      map[string]error
	calls     []string
	params    [][]any
}

func (f *fakeRPCTransport) Call(ctx context.Context, method string, params []any) ([]byte, error) {
	f.calls = append(f.calls, method)
	f.params = append(f.params, params)
	if err, ok := f.errs[method]; ok {
		return nil, err
	}
	return f.responses[method], nil
}

func newFakeTransport(responses map[string]any) *fakeRPCTransport {
	raw := make(map[string][]byte, len(responses))
	for method, v := range responses {
		b, _ := json.Marshal(v)
		raw[method] = b
	}
	return &fakeRPCTransport{responses: raw, errs: make(map[string]error)}
}

func newBitcoinAdapterWithTransport(t *testing.T, transport RPCTransport) *BitcoinAdapter {
	t.Helper()
	a := NewBitcoinAdapter(BTC, "http://unused", "user", "pass", nil, nil)
	a.transport = transport
	return a
}

func TestBitcoinAdapterGetBalanceConvertsBTCToSatoshi(t *testing.T) {
	transport := newFakeTransport(map[string]any{"getbalance": 1.5})
	a := newBitcoinAdapterWithTransport(t, transport)

	bal, err := a.GetBalance(context.Background())
	if err != nil {
		t.Fatalf("GetBalance: %v", err)
	}
	if bal.Confirmed != 150000000 {
		t.Errorf("Confirmed = %d, want 150000000 satoshi", bal.Confirmed)
	}
}

func TestBitcoinAdapterNewAddressIsIdempotentPerLabel(t *testing.T) {
	transport := newFakeTransport(map[string]any{"getnewaddress": "addr-1"})
	a := newBitcoinAdapterWithTransport(t, transport)

	first, err := a.NewAddress(context.Background(), "invoice-1")
	if err != nil {
		t.Fatalf("NewAddress: %v", err)
	}
	second, err := a.NewAddress(context.Background(), "invoice-1")
	if err != nil {
		t.Fatalf("NewAddress (repeat): %v", err)
	}
	if first != second {
		t.Errorf("repeated NewAddress with same label returned %q then %q, want identical", first, second)
	}
	rpcCalls := 0
	for _, m := range transport.calls {
		if m == "getnewaddress" {
			rpcCalls++
		}
	}
	if rpcCalls != 1 {
		t.Errorf("expected exactly 1 rpc call for a repeated labeled address, got %d", rpcCalls)
	}
}

func TestBitcoinAdapterSendConvertsAmountToBTC(t *testing.T) {
	transport := newFakeTransport(map[string]any{"sendtoaddress": "txid-1"})
	a := newBitcoinAdapterWithTransport(t, transport)

	txid, err := a.Send(context.Background(), "dest-addr", 250000000)
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if txid != "txid-1" {
		t.Errorf("txid = %q, want txid-1", txid)
	}
	if len(transport.params) != 1 || len(transport.params[0]) != 2 || transport.params[0][1] != 2.5 {
		t.Errorf("sendtoaddress params = %v, want [dest-addr 2.5]", transport.params)
	}
}

func TestBitcoinAdapterSendRejectsEmptyDestination(t *testing.T) {
	a := newBitcoinAdapterWithTransport(t, newFakeTransport(nil))
	if _, err := a.Send(context.Background(), "", 1); err == nil {
		t.Fatal("expected an error for an empty destination address")
	}
}

func TestBitcoinAdapterStatusClassifiesByConfirmationThreshold(t *testing.T) {
	pending := newFakeTransport(map[string]any{"gettransaction": map[string]any{"confirmations": 2}})
	a := newBitcoinAdapterWithTransport(t, pending)
	info, err := a.Status(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if info.Status != TxPending {
		t.Errorf("status = %v, want pending below bitcoinMinConfirmations", info.Status)
	}

	confirmed := newFakeTransport(map[string]any{"gettransaction": map[string]any{"confirmations": bitcoinMinConfirmations}})
	a2 := newBitcoinAdapterWithTransport(t, confirmed)
	info2, err := a2.Status(context.Background(), "tx-1")
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if info2.Status != TxConfirmed {
		t.Errorf("status = %v, want confirmed at bitcoinMinConfirmations", info2.Status)
	}
}

func TestBitcoinAdapterPropagatesTransportError(t *testing.T) {
	transport := newFakeTransport(nil)
	transport.errs["getbalance"] = ErrChainUnavailable
	a := newBitcoinAdapterWithTransport(t, transport)
	if _, err := a.GetBalance(context.Background()); err == nil {
		t.Fatal("expected the transport error to propagate")
	}
}
