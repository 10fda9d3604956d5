package action

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/uratmangun/ai-custodial-wallet/envelope"
	"github.com/uratmangun/ai-custodial-wallet/wallet"
)

const (
	GenerateSecretName = "GENERATE_SECRET_ACTION"
	CreateWalletName   = "CREATE_WALLET_ACTION"
	ListWalletName     = "LIST_WALLET_ACTION"
	TransferFundsName  = "TRANSFER_FUNDS_ACTION"
	CheckGasName       = "CHECK_GAS_ACTION"

	GetCoinName            = "GET_COIN_ACTION"
	GetUserCoinBalanceName = "GET_USER_COIN_BALANCE_ACTION"
	GetLastTradedCoinsName = "GET_LAST_TRADED_COINS_ACTION"
)

// Wallets is the wallet repository as seen by actions.
type Wallets interface {
	CreateWallet() (wallet.Wallet, error)
	ListWallets() ([]wallet.Summary, error)
	Signer(addr string) (*wallet.Key, error)
}

// Option adds optional collaborators to Default.
type Option func(*options)

type options struct {
	coins Coins
}

// WithCoins registers the coin data actions backed by c.
func WithCoins(c Coins) Option {
	return func(o *options) { o.coins = c }
}

// Default returns a registry with the wallet actions. The gas and transfer
// actions are only registered when chain is non-nil, the coin actions only
// when WithCoins is given.
func Default(wallets Wallets, chain Chain, log *slog.Logger, opts ...Option) *Registry {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	r := NewRegistry(log)
	actions := []*Action{GenerateSecret(), CreateWallet(wallets), ListWallets(wallets)}
	if chain != nil {
		actions = append(actions, CheckGas(chain), TransferFunds(wallets, chain, r.log))
	}
	if o.coins != nil {
		actions = append(actions, GetCoin(o.coins), GetUserCoinBalance(o.coins), GetLastTradedCoins(o.coins))
	}
	for _, a := range actions {
		// Names above are distinct.
		_ = r.Register(a)
	}
	return r
}

// GenerateSecret produces a fresh store secret for the SECRET variable.
func GenerateSecret() *Action {
	return &Action{
		Name:        GenerateSecretName,
		Description: "Generate a new secret key.",
		Similes:     []string{"generate secret", "generate secret key"},
		Handler: func(context.Context, json.RawMessage) (Fields, error) {
			secret, err := envelope.GenerateSecret()
			if err != nil {
				return nil, err
			}
			return Fields{
				"secret":    secret,
				"createdAt": time.Now().UTC().Format(time.RFC3339Nano),
			}, nil
		},
	}
}

func CreateWallet(wallets Wallets) *Action {
	return &Action{
		Name:        CreateWalletName,
		Description: "Create a new EVM wallet.",
		Similes:     []string{"create wallet", "create new wallet"},
		Handler: func(context.Context, json.RawMessage) (Fields, error) {
			w, err := wallets.CreateWallet()
			if err != nil {
				return nil, err
			}
			return Fields{"wallet": w}, nil
		},
	}
}

func ListWallets(wallets Wallets) *Action {
	return &Action{
		Name:        ListWalletName,
		Description: "List all wallets.",
		Similes:     []string{"list wallet", "list wallets"},
		Handler: func(context.Context, json.RawMessage) (Fields, error) {
			list, err := wallets.ListWallets()
			if err != nil {
				return nil, err
			}
			if list == nil {
				list = []wallet.Summary{}
			}
			return Fields{"wallets": list}, nil
		},
	}
}
