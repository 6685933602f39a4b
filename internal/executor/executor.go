// Package executor holds the trade execution stub. Execution is
// simulate-only: detected opportunities are logged with the order
// parameters that a live implementation would submit, but no network
// or chain call is ever made. Configuring a signing credential arms
// the executor, which then fails closed instead of attempting
// unimplemented live execution.
package executor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/polymarket/go-order-utils/pkg/model"
	"github.com/mselser95/polymarket-scanner/pkg/types"
	"go.uber.org/zap"
)

const zeroAddress = "0x0000000000000000000000000000000000000000"

// nominalTradeSize is the USD size used for simulated order parameters.
const nominalTradeSize = 100.0

// Executor simulates arbitrage trades.
type Executor struct {
	logger      *zap.Logger
	armed       bool
	observeOnly bool
	funder      string // wallet address derived from the credential when armed
}

// NewObservationOnly returns an executor that refuses every opportunity.
// Used when the configured credential failed to parse: detection and
// recording continue, execution does not.
func NewObservationOnly(logger *zap.Logger) *Executor {
	return &Executor{logger: logger, observeOnly: true}
}

// Config holds executor configuration.
type Config struct {
	PrivateKey string // optional; arming credential, never used to sign
	Logger     *zap.Logger
}

// New creates the executor. An invalid credential returns a ConfigError
// so the caller can degrade to observation-only mode; a missing
// credential is not an error and selects pure simulation.
func New(cfg *Config) (*Executor, error) {
	e := &Executor{logger: cfg.Logger}

	if cfg.PrivateKey == "" {
		cfg.Logger.Info("executor-simulation-mode",
			zap.String("reason", "no signing credential configured"))
		return e, nil
	}

	privateKey, err := crypto.HexToECDSA(strings.TrimPrefix(cfg.PrivateKey, "0x"))
	if err != nil {
		return nil, &types.ConfigError{Field: "PRIVATE_KEY",
			Err: fmt.Errorf("parse private key: %w", err)}
	}

	publicKey, ok := privateKey.Public().(*ecdsa.PublicKey)
	if !ok {
		return nil, &types.ConfigError{Field: "PRIVATE_KEY",
			Err: fmt.Errorf("derive public key")}
	}

	e.armed = true
	e.funder = crypto.PubkeyToAddress(*publicKey).Hex()

	cfg.Logger.Info("executor-armed",
		zap.String("funder", e.funder),
		zap.String("note", "live execution unimplemented; armed executor fails closed"))

	return e, nil
}

// Execute handles a detected opportunity. Returns true when the
// simulated trade was accepted, false when execution was refused.
func (e *Executor) Execute(ctx context.Context, marketID string, yesPrice, noPrice float64) bool {
	if e.observeOnly {
		ExecutionsRejectedTotal.Inc()
		e.logger.Debug("execution-skipped-observation-only",
			zap.String("market-id", marketID))
		return false
	}

	if e.armed {
		// Fail closed: an armed executor must not pretend to trade.
		ExecutionsRejectedTotal.Inc()
		e.logger.Error("execution-rejected",
			zap.String("market-id", marketID),
			zap.String("funder", e.funder),
			zap.String("reason", "live order signing and settlement not implemented"))
		return false
	}

	// A leg priced at or below zero has no meaningful taker amount
	// (the division below would blow up), so refuse it outright.
	if yesPrice <= 0 || noPrice <= 0 {
		ExecutionsRejectedTotal.Inc()
		e.logger.Warn("execution-rejected",
			zap.String("market-id", marketID),
			zap.Float64("yes-price", yesPrice),
			zap.Float64("no-price", noPrice),
			zap.String("reason", "non-positive leg price"))
		return false
	}

	tradeID := uuid.New().String()
	yesLeg := buildOrderLeg(marketID, yesPrice)
	noLeg := buildOrderLeg(marketID, noPrice)

	ExecutionsSimulatedTotal.Inc()
	e.logger.Info("trade-simulated",
		zap.String("trade-id", tradeID),
		zap.String("market-id", marketID),
		zap.Float64("yes-price", yesPrice),
		zap.Float64("no-price", noPrice),
		zap.Float64("total-cost", yesPrice+noPrice),
		zap.Float64("expected-profit", 1.0-(yesPrice+noPrice)),
		zap.String("yes-maker-amount", yesLeg.MakerAmount),
		zap.String("no-maker-amount", noLeg.MakerAmount))

	return true
}

// buildOrderLeg builds the order parameters a live implementation would
// sign and submit for one BUY leg. Token IDs would be resolved from the
// CLOB token registry at execution time; the stub carries the market ID.
func buildOrderLeg(marketID string, price float64) *model.OrderData {
	return &model.OrderData{
		Maker:       zeroAddress,
		Taker:       zeroAddress,
		TokenId:     marketID,
		MakerAmount: usdToRawAmount(nominalTradeSize),
		TakerAmount: usdToRawAmount(nominalTradeSize / price),
		Side:        model.BUY,
		FeeRateBps:  "0",
		Nonce:       "0",
		Expiration:  "0",
	}
}

// usdToRawAmount converts a USD amount to USDC raw units (6 decimals).
func usdToRawAmount(usd float64) string {
	raw := new(big.Float).Mul(big.NewFloat(usd), big.NewFloat(1e6))
	i, _ := raw.Int(nil)
	return i.String()
}
