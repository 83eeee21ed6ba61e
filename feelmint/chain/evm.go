package chain

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/feelmint/feelmint-go/feelmint/logger"
)

const rewardContractABI = `[
	{"type":"function","name":"mint","stateMutability":"nonpayable","inputs":[
		{"name":"recipient","type":"address"},
		{"name":"uuid","type":"bytes32"},
		{"name":"nonce","type":"uint256"},
		{"name":"timestamp","type":"uint256"},
		{"name":"amount","type":"uint256"},
		{"name":"tasks","type":"bytes"},
		{"name":"signature","type":"bytes"}],"outputs":[]}
]`

const erc20ABI = `[
	{"type":"function","name":"allowance","stateMutability":"view","inputs":[
		{"name":"owner","type":"address"},{"name":"spender","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]},
	{"type":"function","name":"approve","stateMutability":"nonpayable","inputs":[
		{"name":"spender","type":"address"},{"name":"amount","type":"uint256"}],
		"outputs":[{"name":"","type":"bool"}]},
	{"type":"function","name":"balanceOf","stateMutability":"view","inputs":[
		{"name":"owner","type":"address"}],
		"outputs":[{"name":"","type":"uint256"}]}
]`

const subscriptionABI = `[
	{"type":"function","name":"purchase","stateMutability":"nonpayable","inputs":[
		{"name":"tier","type":"uint8"}],"outputs":[]}
]`

type EVMConfig struct {
	RPCURL        string
	ChainID       uint64
	PrivateKeyHex string

	RewardContract       string
	SubscriptionContract string
	Stablecoin           string
}

// EVM implements Backend over a JSON-RPC endpoint with a local hot key.
type EVM struct {
	client  *ethclient.Client
	chainID *big.Int
	key     *ecdsa.PrivateKey
	from    common.Address

	reward       common.Address
	subscription common.Address
	stable       common.Address

	rewardABI abi.ABI
	tokenABI  abi.ABI
	subABI    abi.ABI
}

func NewEVM(ctx context.Context, cfg EVMConfig) (*EVM, error) {
	client, err := ethclient.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("chain: dial %s: %w", cfg.RPCURL, err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKeyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("chain: parse private key: %w", err)
	}

	rewardParsed, err := abi.JSON(strings.NewReader(rewardContractABI))
	if err != nil {
		return nil, err
	}
	tokenParsed, err := abi.JSON(strings.NewReader(erc20ABI))
	if err != nil {
		return nil, err
	}
	subParsed, err := abi.JSON(strings.NewReader(subscriptionABI))
	if err != nil {
		return nil, err
	}

	return &EVM{
		client:       client,
		chainID:      new(big.Int).SetUint64(cfg.ChainID),
		key:          key,
		from:         crypto.PubkeyToAddress(key.PublicKey),
		reward:       common.HexToAddress(cfg.RewardContract),
		subscription: common.HexToAddress(cfg.SubscriptionContract),
		stable:       common.HexToAddress(cfg.Stablecoin),
		rewardABI:    rewardParsed,
		tokenABI:     tokenParsed,
		subABI:       subParsed,
	}, nil
}

// SetContracts swaps in addresses from the config API once it has answered.
func (e *EVM) SetContracts(reward, subscription, stable string) {
	e.reward = common.HexToAddress(reward)
	e.subscription = common.HexToAddress(subscription)
	e.stable = common.HexToAddress(stable)
}

func (e *EVM) ChainID() uint64 {
	return e.chainID.Uint64()
}

func (e *EVM) Address() string {
	return e.from.Hex()
}

func (e *EVM) MintWithVoucher(ctx context.Context, v MintVoucher) (string, error) {
	uuid, err := UUIDToBytes32(v.UUID)
	if err != nil {
		return "", err
	}
	data, err := e.rewardABI.Pack("mint",
		common.HexToAddress(v.Recipient),
		uuid,
		new(big.Int).SetUint64(v.Nonce),
		big.NewInt(v.Timestamp),
		v.Amount,
		v.Tasks,
		v.Signature,
	)
	if err != nil {
		return "", fmt.Errorf("chain: pack mint: %w", err)
	}
	txHash, err := e.send(ctx, e.reward, data)
	logger.LogTx("mint", txHash, err)
	return txHash, err
}

func (e *EVM) StableAllowance(ctx context.Context, spender string) (*big.Int, error) {
	data, err := e.tokenABI.Pack("allowance", e.from, common.HexToAddress(spender))
	if err != nil {
		return nil, err
	}
	raw, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &e.stable, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: allowance call: %w", err)
	}
	out, err := e.tokenABI.Unpack("allowance", raw)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (e *EVM) ApproveStable(ctx context.Context, spender string, amount *big.Int) (string, error) {
	data, err := e.tokenABI.Pack("approve", common.HexToAddress(spender), amount)
	if err != nil {
		return "", err
	}
	txHash, err := e.send(ctx, e.stable, data)
	logger.LogTx("approve", txHash, err)
	return txHash, err
}

func (e *EVM) PurchaseTier(ctx context.Context, tier uint8) (string, error) {
	data, err := e.subABI.Pack("purchase", tier)
	if err != nil {
		return "", err
	}
	txHash, err := e.send(ctx, e.subscription, data)
	logger.LogTx("purchase", txHash, err)
	return txHash, err
}

func (e *EVM) StableBalance(ctx context.Context) (*big.Int, error) {
	data, err := e.tokenABI.Pack("balanceOf", e.from)
	if err != nil {
		return nil, err
	}
	raw, err := e.client.CallContract(ctx, ethereum.CallMsg{To: &e.stable, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("chain: balance call: %w", err)
	}
	out, err := e.tokenABI.Unpack("balanceOf", raw)
	if err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

// send signs, broadcasts and waits for one transaction. Gas estimation runs
// first so contract reverts surface before anything is broadcast.
func (e *EVM) send(ctx context.Context, to common.Address, data []byte) (string, error) {
	nonce, err := e.client.PendingNonceAt(ctx, e.from)
	if err != nil {
		return "", fmt.Errorf("chain: nonce: %w", err)
	}
	gasPrice, err := e.client.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("chain: gas price: %w", err)
	}
	gasLimit, err := e.client.EstimateGas(ctx, ethereum.CallMsg{
		From: e.from,
		To:   &to,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("chain: estimate gas: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Gas:      gasLimit + gasLimit/5,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(e.chainID), e.key)
	if err != nil {
		return "", fmt.Errorf("chain: sign: %w", err)
	}
	if err := e.client.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("chain: broadcast: %w", err)
	}

	receipt, err := bind.WaitMined(ctx, e.client, signed)
	if err != nil {
		return signed.Hash().Hex(), fmt.Errorf("chain: wait mined: %w", err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return signed.Hash().Hex(), fmt.Errorf("chain: transaction %s reverted", signed.Hash().Hex())
	}
	return signed.Hash().Hex(), nil
}
