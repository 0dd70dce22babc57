package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	gethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sethvargo/go-retry"

	"github.com/dkurguzov/betkeeper/internal/common"
	"github.com/dkurguzov/betkeeper/internal/logging"
	"github.com/dkurguzov/betkeeper/internal/wallet"
)

// Provider is the subset of the JSON-RPC client the signer needs.
// *ethclient.Client satisfies this interface.
type Provider interface {
	PendingNonceAt(ctx context.Context, account gethcommon.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash gethcommon.Hash) (*types.Receipt, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
}

// Result normalizes the outcome of a submitted transaction for persistence.
type Result struct {
	TxHash          string
	ContractAddress string // set for deployments
	From            string
	To              string // empty for deployments
	BlockNumber     int64
	GasUsed         uint64
	GasPrice        *big.Int
	Reverted        bool
}

// Signer signs and broadcasts contract deployments and method calls for one
// configured chain. It holds no key material of its own: every signing
// operation borrows transient wallet.KeyMaterial from the caller.
//
// Nonce assignment is delegated to the provider (PendingNonceAt); two
// concurrent transactions from the same account can still collide on a
// nonce. Serializing per-account submission is left to a future queue.
type Signer struct {
	provider Provider
	chainID  *big.Int
	network  string
	log      logging.Logger

	receiptInterval time.Duration
}

func NewSigner(provider Provider, chainID int64, network string, log logging.Logger) *Signer {
	return &Signer{
		provider:        provider,
		chainID:         big.NewInt(chainID),
		network:         network,
		log:             log,
		receiptInterval: 2 * time.Second,
	}
}

// Network reports the configured network tag (recorded on transactions).
func (s *Signer) Network() string { return s.network }

// Deploy signs and submits a contract-creation transaction for the given
// constructor ABI + bytecode and waits for it to be mined. The wait is
// bounded by ctx: callers must apply a timeout, since a partitioned provider
// could otherwise block forever. Cancelling after submission stops the wait;
// the transaction itself cannot be unsent.
func (s *Signer) Deploy(ctx context.Context, km *wallet.KeyMaterial, contractABI abi.ABI, bytecode []byte, ctorArgs []Arg, value *big.Int) (*Result, error) {
	vals, err := DecodeArgs(ctorArgs)
	if err != nil {
		return nil, err
	}
	packed, err := contractABI.Pack("", vals...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode constructor arguments: %w", err)
	}

	data := make([]byte, 0, len(bytecode)+len(packed))
	data = append(data, bytecode...)
	data = append(data, packed...)

	return s.submit(ctx, km, nil, data, value)
}

// Call invokes a state-changing method on a deployed contract with the
// attached native-currency value, signs, submits, and waits for the receipt.
// It is generic over method names; mapping domain actions onto methods is
// the caller's concern.
func (s *Signer) Call(ctx context.Context, km *wallet.KeyMaterial, contractAddress string, contractABI abi.ABI, method string, args []Arg, value *big.Int) (*Result, error) {
	if _, ok := contractABI.Methods[method]; !ok {
		return nil, fmt.Errorf("%w: method %s not in contract ABI", common.ErrTransactionFailed, method)
	}

	vals, err := DecodeArgs(args)
	if err != nil {
		return nil, err
	}
	data, err := contractABI.Pack(method, vals...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call to %s: %w", method, err)
	}

	to := gethcommon.HexToAddress(contractAddress)
	return s.submit(ctx, km, &to, data, value)
}

// Read performs a read-only eth_call. No key material, no signing, no
// persistence; safe to retry freely.
func (s *Signer) Read(ctx context.Context, contractAddress string, contractABI abi.ABI, method string, args []Arg) ([]any, error) {
	vals, err := DecodeArgs(args)
	if err != nil {
		return nil, err
	}
	data, err := contractABI.Pack(method, vals...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode call to %s: %w", method, err)
	}

	to := gethcommon.HexToAddress(contractAddress)
	out, err := s.provider.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransactionFailed, err)
	}

	res, err := contractABI.Unpack(method, out)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result of %s: %w", method, err)
	}
	return res, nil
}

// submit builds, signs, broadcasts, and waits for one transaction.
// to == nil means contract creation.
func (s *Signer) submit(ctx context.Context, km *wallet.KeyMaterial, to *gethcommon.Address, data []byte, value *big.Int) (*Result, error) {
	if value == nil {
		value = new(big.Int)
	}
	from := gethcommon.HexToAddress(km.Address)

	nonce, err := s.provider.PendingNonceAt(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch nonce: %v", common.ErrTransactionFailed, err)
	}
	gasPrice, err := s.provider.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to fetch gas price: %v", common.ErrTransactionFailed, err)
	}
	gasLimit, err := s.provider.EstimateGas(ctx, ethereum.CallMsg{
		From:  from,
		To:    to,
		Value: value,
		Data:  data,
	})
	if err != nil {
		// estimation runs the call, so revert reasons show up here
		return nil, fmt.Errorf("%w: gas estimation: %v", common.ErrTransactionFailed, err)
	}

	var tx *types.Transaction
	if to == nil {
		tx = types.NewContractCreation(nonce, value, gasLimit, gasPrice, data)
	} else {
		tx = types.NewTransaction(nonce, *to, value, gasLimit, gasPrice, data)
	}

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(s.chainID), km.PrivateKey())
	if err != nil {
		return nil, fmt.Errorf("%w: signing: %v", common.ErrTransactionFailed, err)
	}

	if err := s.provider.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransactionFailed, err)
	}

	s.log.Info(ctx, "transaction submitted", "hash", signed.Hash().Hex(), "from", from.Hex(), "nonce", nonce)

	receipt, err := s.waitReceipt(ctx, signed.Hash())
	if err != nil {
		return nil, err
	}

	res := &Result{
		TxHash:      signed.Hash().Hex(),
		From:        from.Hex(),
		BlockNumber: receipt.BlockNumber.Int64(),
		GasUsed:     receipt.GasUsed,
		GasPrice:    gasPrice,
		Reverted:    receipt.Status == types.ReceiptStatusFailed,
	}
	if to == nil {
		res.ContractAddress = receipt.ContractAddress.Hex()
	} else {
		res.To = to.Hex()
	}

	if res.Reverted {
		return res, fmt.Errorf("%w: execution reverted (tx %s)", common.ErrTransactionFailed, res.TxHash)
	}
	return res, nil
}

// waitReceipt polls for the transaction receipt with constant backoff until
// the context expires. "Not found" from the provider means not yet mined.
func (s *Signer) waitReceipt(ctx context.Context, hash gethcommon.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt

	backoff := retry.NewConstant(s.receiptInterval)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		r, err := s.provider.TransactionReceipt(ctx, hash)
		if err != nil {
			if errors.Is(err, ethereum.NotFound) || strings.Contains(err.Error(), "not found") {
				return retry.RetryableError(err)
			}
			return err
		}
		receipt = r
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: waiting for receipt of %s: %v", common.ErrTransactionFailed, hash.Hex(), err)
	}
	return receipt, nil
}
