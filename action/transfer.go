package action

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"regexp"
	"strings"

	"github.com/uratmangun/ai-custodial-wallet/logger"
	"github.com/uratmangun/ai-custodial-wallet/wallet"
)

// Transfer is a native-currency transfer, Value in wei. Data is optional
// call data for contract interactions.
type Transfer struct {
	From  string
	To    string
	Value *big.Int
	Data  []byte
}

// Chain submits transactions to an EVM network.
type Chain interface {
	// EstimateFee returns the expected total fee in wei.
	EstimateFee(ctx context.Context, t Transfer) (*big.Int, error)
	// SendTransaction signs t with key and returns the transaction hash.
	SendTransaction(ctx context.Context, key *wallet.Key, t Transfer) (string, error)
}

type transferInput struct {
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	Value       string `json:"value"`
}

// TransferFunds sends ether from a managed wallet.
func TransferFunds(wallets Wallets, chain Chain, log *slog.Logger) *Action {
	return &Action{
		Name: TransferFundsName,
		Description: "Sends ETH from a wallet managed by this system to a recipient address. " +
			"Requires the sender's address, the recipient's address and the amount in ETH. " +
			"Returns the transaction hash on success.",
		Similes: []string{"send eth", "transfer funds", "send money", "make a payment"},
		Handler: func(ctx context.Context, raw json.RawMessage) (Fields, error) {
			var in transferInput
			if err := decodeInput(raw, &in); err != nil {
				return nil, err
			}
			if !wallet.IsAddress(in.FromAddress) {
				return nil, fmt.Errorf("%w: invalid fromAddress format", ErrInvalidInput)
			}
			if !wallet.IsAddress(in.ToAddress) {
				return nil, fmt.Errorf("%w: invalid toAddress format", ErrInvalidInput)
			}
			wei, err := ParseEther(in.Value)
			if err != nil {
				return nil, err
			}

			key, err := wallets.Signer(in.FromAddress)
			if err != nil {
				return nil, err
			}
			t := Transfer{From: key.Address(), To: in.ToAddress, Value: wei}

			fee := "N/A"
			if est, err := chain.EstimateFee(ctx, t); err != nil {
				log.Warn("fee estimation failed, sending anyway", logger.Action(TransferFundsName), logger.Error(err))
			} else {
				fee = FormatEther(est)
			}

			hash, err := chain.SendTransaction(ctx, key, t)
			if err != nil {
				return nil, fmt.Errorf("failed to send transaction: %w", err)
			}
			log.Info("transaction sent", slog.String("hash", hash), slog.String("from", t.From), slog.String("to", t.To))
			return Fields{
				"transactionHash":   hash,
				"fromAddress":       t.From,
				"toAddress":         t.To,
				"valueSentEther":    FormatEther(wei),
				"estimatedFeeEther": fee,
			}, nil
		},
	}
}

type gasInput struct {
	FromAddress string `json:"fromAddress"`
	ToAddress   string `json:"toAddress"`
	Value       string `json:"value"`
	Data        string `json:"data"`
}

// CheckGas estimates the total fee of a transfer or contract call without
// sending it.
func CheckGas(chain Chain) *Action {
	return &Action{
		Name: CheckGasName,
		Description: "Estimates the gas cost of a transaction before sending it. " +
			"Requires the sender's address, the recipient or contract address and the amount in ETH; " +
			"optional hex call data is used for contract interactions.",
		Similes: []string{
			"estimate tx cost",
			"calculate transaction fee",
			"how much gas for this send",
			"get fee estimate for transfer",
			"estimate contract call gas",
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (Fields, error) {
			var in gasInput
			if err := decodeInput(raw, &in); err != nil {
				return nil, err
			}
			if !wallet.IsAddress(in.FromAddress) {
				return nil, fmt.Errorf("%w: invalid fromAddress format", ErrInvalidInput)
			}
			if !wallet.IsAddress(in.ToAddress) {
				return nil, fmt.Errorf("%w: invalid toAddress format", ErrInvalidInput)
			}
			wei, err := parseEther(in.Value)
			if err != nil {
				return nil, fmt.Errorf("%w: value must be a non-negative number string", ErrInvalidInput)
			}
			var data []byte
			if in.Data != "" {
				if data, err = decodeHexData(in.Data); err != nil {
					return nil, err
				}
			}

			fee, err := chain.EstimateFee(ctx, Transfer{From: in.FromAddress, To: in.ToAddress, Value: wei, Data: data})
			if err != nil {
				return nil, fmt.Errorf("failed to estimate gas: %w", err)
			}
			return Fields{
				"estimatedTotalFeeWei":   fee.String(),
				"estimatedTotalFeeEther": FormatEther(fee),
			}, nil
		},
	}
}

func decodeHexData(s string) ([]byte, error) {
	h, ok := strings.CutPrefix(s, "0x")
	if !ok || len(h)%2 != 0 {
		return nil, fmt.Errorf("%w: data must be a 0x-prefixed hex string", ErrInvalidInput)
	}
	b, err := hex.DecodeString(h)
	if err != nil {
		return nil, fmt.Errorf("%w: data must be a 0x-prefixed hex string", ErrInvalidInput)
	}
	return b, nil
}

var (
	etherPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,18})?$`)
	weiPerEther  = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

// ParseEther converts a decimal ether amount such as "0.01" to wei. The
// amount must be positive.
func ParseEther(s string) (*big.Int, error) {
	wei, err := parseEther(s)
	if err != nil || wei.Sign() <= 0 {
		return nil, fmt.Errorf("%w: value must be a positive number string", ErrInvalidInput)
	}
	return wei, nil
}

func parseEther(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if !etherPattern.MatchString(s) {
		return nil, fmt.Errorf("%w: value must be a number string", ErrInvalidInput)
	}
	whole, frac, _ := strings.Cut(s, ".")
	frac += strings.Repeat("0", 18-len(frac))
	wei, _ := new(big.Int).SetString(whole+frac, 10)
	return wei, nil
}

// FormatEther renders wei as a decimal ether amount without trailing zeros.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	neg := wei.Sign() < 0
	q, r := new(big.Int).QuoRem(new(big.Int).Abs(wei), weiPerEther, new(big.Int))
	out := q.String()
	if r.Sign() != 0 {
		frac := r.String()
		out += "." + strings.TrimRight(strings.Repeat("0", 18-len(frac))+frac, "0")
	}
	if neg {
		out = "-" + out
	}
	return out
}
