// Package eip1193 adapts an EIP-1193-style wallet provider speaking
// JSON-RPC 2.0 over WebSocket, with an HTTP fallback for plain
// request/response calls.
package eip1193

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/fd1az/govwallet/internal/addrcodec"
)

// JSON-RPC 2.0 wire messages

// rpcRequest is an outbound JSON-RPC call.
type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// rpcResponse is an inbound reply correlated by ID. Notifications reuse
// the same frame with Method set and no ID.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// RPCError is the provider-side error object.
type RPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

// Wallet provider error codes (EIP-1193 / EIP-1474).
const (
	rpcCodeUserRejected  = 4001
	rpcCodeUnauthorized  = 4100
	rpcCodeUnknownChain  = 4902
	rpcCodeRequestQueued = -32002
	rpcCodeInternal      = -32603
)

// Wallet provider methods.
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodGetBalance      = "eth_getBalance"
	MethodSendTransaction = "eth_sendTransaction"
	MethodSwitchChain     = "wallet_switchEthereumChain"
	MethodAddChain        = "wallet_addEthereumChain"
)

// Provider push notifications.
const (
	NotifyAccountsChanged = "accountsChanged"
	NotifyChainChanged    = "chainChanged"
	NotifyDisconnect      = "disconnect"
	NotifyMessage         = "message"
)

// Notification is a raw provider push delivered to the event bridge.
type Notification struct {
	Method string
	Params json.RawMessage
}

// ParseAccounts decodes an accountsChanged payload. Addresses are
// checksum-validated per EIP-55.
func (n Notification) ParseAccounts() ([]common.Address, error) {
	var raw []string
	if err := json.Unmarshal(n.Params, &raw); err != nil {
		return nil, fmt.Errorf("parse accounts: %w", err)
	}
	out := make([]common.Address, 0, len(raw))
	for _, s := range raw {
		addr, err := addrcodec.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("parse accounts: invalid address %q: %w", s, err)
		}
		out = append(out, addr)
	}
	return out, nil
}

// ParseChainID decodes a chainChanged payload. Wallets send either a
// bare hex string or a single-element array.
func (n Notification) ParseChainID() (*big.Int, error) {
	var hex string
	if err := json.Unmarshal(n.Params, &hex); err != nil {
		var arr []string
		if err2 := json.Unmarshal(n.Params, &arr); err2 != nil || len(arr) == 0 {
			return nil, fmt.Errorf("parse chain id: %w", err)
		}
		hex = arr[0]
	}
	id, err := hexutil.DecodeBig(hex)
	if err != nil {
		return nil, fmt.Errorf("parse chain id %q: %w", hex, err)
	}
	return id, nil
}

// SwitchChainParams is the argument to wallet_switchEthereumChain.
type SwitchChainParams struct {
	ChainID string `json:"chainId"`
}

// AddChainParams is the argument to wallet_addEthereumChain.
type AddChainParams struct {
	ChainID           string        `json:"chainId"`
	ChainName         string        `json:"chainName"`
	RPCURLs           []string      `json:"rpcUrls"`
	BlockExplorerURLs []string      `json:"blockExplorerUrls,omitempty"`
	NativeCurrency    ChainCurrency `json:"nativeCurrency"`
}

// ChainCurrency is the nativeCurrency object inside AddChainParams.
type ChainCurrency struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals uint8  `json:"decimals"`
}

// TxParams is the argument to eth_sendTransaction. All numeric fields
// are 0x-prefixed hex per the wire convention; empty strings are
// omitted so the wallet fills them in.
type TxParams struct {
	From     string `json:"from"`
	To       string `json:"to,omitempty"`
	Value    string `json:"value,omitempty"`
	Gas      string `json:"gas,omitempty"`
	GasPrice string `json:"gasPrice,omitempty"`
	Data     string `json:"data,omitempty"`
	Nonce    string `json:"nonce,omitempty"`
}

// NewTxParams builds TxParams from typed values. Nil big.Ints and zero
// gas are left unset.
func NewTxParams(from, to common.Address, value *big.Int, gas uint64, gasPrice *big.Int, data []byte, nonce *uint64) TxParams {
	p := TxParams{From: from.Hex()}
	if to != (common.Address{}) {
		p.To = to.Hex()
	}
	if value != nil {
		p.Value = hexutil.EncodeBig(value)
	}
	if gas > 0 {
		p.Gas = hexutil.EncodeUint64(gas)
	}
	if gasPrice != nil {
		p.GasPrice = hexutil.EncodeBig(gasPrice)
	}
	if len(data) > 0 {
		p.Data = hexutil.Encode(data)
	}
	if nonce != nil {
		p.Nonce = hexutil.EncodeUint64(*nonce)
	}
	return p
}
