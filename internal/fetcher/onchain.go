package fetcher

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const pairABIJSON = `[{"constant":true,"inputs":[],"name":"getReserves","outputs":[{"internalType":"uint112","name":"_reserve0","type":"uint112"},{"internalType":"uint112","name":"_reserve1","type":"uint112"},{"internalType":"uint32","name":"_blockTimestampLast","type":"uint32"}],"payable":false,"stateMutability":"view","type":"function"}]`

var pairABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(pairABIJSON))
	if err != nil {
		panic("failed to parse pair ABI: " + err.Error())
	}
	pairABI = parsed
}

// OnChainOptions parameterise the on-chain spot reader.
type OnChainOptions struct {
	RPCURL      string
	PairAddress string
	Decimals0   int32
	Decimals1   int32
	Timeout     time.Duration
}

// OnChain reads the spot price of a Uniswap V2 pair from its reserves via
// Ethereum RPC. It serves as an alternative price source for seeding and
// cross-checking simulated pools.
type OnChain struct {
	opts      OnChainOptions
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewOnChain builds an on-chain spot fetcher.
func NewOnChain(opts OnChainOptions, logger zerolog.Logger) *OnChain {
	return &OnChain{opts: opts, logger: logger.With().Str("component", "onchain_fetcher").Logger()}
}

// FetchSpot returns the pair's reserve-ratio price (token0 per token1,
// decimals-adjusted) and the block number it was observed at.
func (o *OnChain) FetchSpot(ctx context.Context) (decimal.Decimal, uint64, error) {
	if o.opts.RPCURL == "" {
		return decimal.Decimal{}, 0, errors.New("ethereum rpc url not configured")
	}
	if o.opts.PairAddress == "" {
		return decimal.Decimal{}, 0, errors.New("pair contract address not configured")
	}

	timeout := o.opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := o.getClient(ctx)
	if err != nil {
		return decimal.Decimal{}, 0, err
	}

	addr := common.HexToAddress(o.opts.PairAddress)
	payload, err := pairABI.Pack("getReserves")
	if err != nil {
		return decimal.Decimal{}, 0, err
	}

	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return decimal.Decimal{}, 0, err
	}

	outputs, err := pairABI.Unpack("getReserves", res)
	if err != nil {
		return decimal.Decimal{}, 0, err
	}
	if len(outputs) != 3 {
		return decimal.Decimal{}, 0, errors.New("unexpected getReserves response")
	}

	reserve0, ok0 := outputs[0].(*big.Int)
	reserve1, ok1 := outputs[1].(*big.Int)
	if !ok0 || !ok1 {
		return decimal.Decimal{}, 0, errors.New("failed to decode getReserves output")
	}
	if reserve1.Sign() == 0 {
		return decimal.Decimal{}, 0, errors.New("pair has zero token1 reserve")
	}

	price := decimal.NewFromBigInt(reserve0, -o.opts.Decimals0).
		Div(decimal.NewFromBigInt(reserve1, -o.opts.Decimals1))

	blockNumber, err := client.BlockNumber(ctx)
	if err != nil {
		return decimal.Decimal{}, 0, err
	}

	return price, blockNumber, nil
}

func (o *OnChain) getClient(ctx context.Context) (*ethclient.Client, error) {
	o.clientMux.Lock()
	defer o.clientMux.Unlock()

	if o.client != nil {
		return o.client, nil
	}

	client, err := ethclient.DialContext(ctx, o.opts.RPCURL)
	if err != nil {
		return nil, err
	}
	o.client = client
	return client, nil
}

var _ SpotFetcher = (*OnChain)(nil)
