package fetcher

import (
	"context"
	"errors"
	"fmt"
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

	"borrow-rate-alerts/internal/engine"
)

const (
	ctokenABIJSON = `[{"inputs":[],"name":"borrowRatePerBlock","outputs":[{"internalType":"uint256","name":"","type":"uint256"}],"stateMutability":"view","type":"function"}]`

	// Compound assumes ~15s blocks: 4 * 60 * 24 * 365.
	blocksPerYear = 2_102_400
)

var ctokenABI abi.ABI

func init() {
	parsed, err := abi.JSON(strings.NewReader(ctokenABIJSON))
	if err != nil {
		panic("failed to parse cToken ABI: " + err.Error())
	}
	ctokenABI = parsed
}

// Market binds an underlying asset name to its cToken contract address.
type Market struct {
	Asset   string
	Address string
}

// OnChainOptions parameterise the on-chain fetcher.
type OnChainOptions struct {
	RPCURL  string
	Markets []Market
	Timeout time.Duration
}

// OnChain reads borrow rates directly from cToken contracts via Ethereum RPC.
type OnChain struct {
	opts      OnChainOptions
	logger    zerolog.Logger
	client    *ethclient.Client
	clientMux sync.Mutex
}

// NewOnChain builds a new on-chain rate fetcher.
func NewOnChain(opts OnChainOptions, logger zerolog.Logger) *OnChain {
	return &OnChain{opts: opts, logger: logger.With().Str("component", "onchain_fetcher").Logger()}
}

// FetchRates calls borrowRatePerBlock on every configured market and
// annualises the per-block mantissa into a percentage APR.
func (o *OnChain) FetchRates(ctx context.Context) (engine.RateSnapshot, error) {
	if o.opts.RPCURL == "" {
		return nil, errors.New("ethereum rpc url not configured")
	}
	if len(o.opts.Markets) == 0 {
		return nil, errors.New("no ctoken markets configured")
	}

	timeout := o.opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	var cancel context.CancelFunc
	ctx, cancel = context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := o.getClient(ctx)
	if err != nil {
		return nil, err
	}

	snapshot := make(engine.RateSnapshot, len(o.opts.Markets))
	for _, market := range o.opts.Markets {
		rate, err := o.borrowRate(ctx, client, market)
		if err != nil {
			return nil, fmt.Errorf("market %s: %w", market.Asset, err)
		}
		snapshot[market.Asset] = rate
	}

	return snapshot, nil
}

func (o *OnChain) borrowRate(ctx context.Context, client *ethclient.Client, market Market) (decimal.Decimal, error) {
	if market.Address == "" {
		return decimal.Decimal{}, errors.New("ctoken address not configured")
	}

	payload, err := ctokenABI.Pack("borrowRatePerBlock")
	if err != nil {
		return decimal.Decimal{}, err
	}

	addr := common.HexToAddress(market.Address)
	res, err := client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: payload}, nil)
	if err != nil {
		return decimal.Decimal{}, err
	}

	outputs, err := ctokenABI.Unpack("borrowRatePerBlock", res)
	if err != nil {
		return decimal.Decimal{}, err
	}
	if len(outputs) != 1 {
		return decimal.Decimal{}, errors.New("unexpected borrowRatePerBlock response")
	}

	mantissa, ok := outputs[0].(*big.Int)
	if !ok {
		return decimal.Decimal{}, errors.New("failed to decode borrowRatePerBlock output")
	}

	// mantissa is scaled by 1e18; annualise and express as a percentage.
	perBlock := decimal.NewFromBigInt(mantissa, -18)
	return perBlock.Mul(decimal.NewFromInt(blocksPerYear)).Mul(decHundred).Round(2), nil
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

var _ RateFetcher = (*OnChain)(nil)
