package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

const defaultCoinPage = 20

// ErrCoinNotFound is returned by Coins when no coin exists at an address.
var ErrCoinNotFound = errors.New("coin not found")

// Coins reads coin market data from an indexer.
type Coins interface {
	Coin(ctx context.Context, address string) (*Coin, error)
	// Balances pages through the coins held by an address or handle.
	Balances(ctx context.Context, identifier string, count int, after string) (BalancePage, error)
	// LastTraded pages through recently traded coins. An empty cursor means
	// there are no further pages.
	LastTraded(ctx context.Context, count int, after string) ([]TradedCoin, string, error)
}

type Coin struct {
	Name           string `json:"name"`
	Symbol         string `json:"symbol"`
	Description    string `json:"description"`
	TotalSupply    string `json:"totalSupply"`
	MarketCap      string `json:"marketCap"`
	Volume24h      string `json:"volume24h"`
	CreatorAddress string `json:"creatorAddress"`
	CreatedAt      string `json:"createdAt"`
	UniqueHolders  int    `json:"uniqueHolders"`
	PreviewImage   string `json:"previewImage"`
}

type CoinBalance struct {
	CoinAddress string `json:"coinAddress"`
	Balance     string `json:"balance"`
	CoinName    string `json:"coinName"`
	CoinSymbol  string `json:"coinSymbol"`
}

type BalancePage struct {
	Balances  []CoinBalance
	EndCursor string
}

type TradedCoin struct {
	Rank           int     `json:"rank"`
	Name           string  `json:"name"`
	Symbol         string  `json:"symbol"`
	MarketCap      string  `json:"marketCap"`
	Volume24h      string  `json:"volume24h"`
	Address        string  `json:"address"`
	CreatorAddress string  `json:"creatorAddress"`
	PreviewImage   *string `json:"previewImage"`
}

type pageInput struct {
	Count *int   `json:"count"`
	After string `json:"after"`
}

func (p pageInput) count() (int, error) {
	if p.Count == nil {
		return defaultCoinPage, nil
	}
	if *p.Count <= 0 {
		return 0, fmt.Errorf("%w: count must be positive", ErrInvalidInput)
	}
	return *p.Count, nil
}

func GetCoin(coins Coins) *Action {
	return &Action{
		Name:        GetCoinName,
		Description: "Fetches details for a specific coin using its contract address.",
		Similes:     []string{"get coin", "fetch coin", "show me coin details", "lookup crypto by address"},
		Handler: func(ctx context.Context, raw json.RawMessage) (Fields, error) {
			var in struct {
				Address string `json:"address"`
			}
			if err := decodeInput(raw, &in); err != nil {
				return nil, err
			}
			if strings.TrimSpace(in.Address) == "" {
				return nil, fmt.Errorf("%w: address is required to fetch coin details", ErrInvalidInput)
			}
			c, err := coins.Coin(ctx, in.Address)
			if err != nil {
				return nil, err
			}
			return Fields{
				"name":           c.Name,
				"symbol":         c.Symbol,
				"description":    c.Description,
				"totalSupply":    c.TotalSupply,
				"marketCap":      c.MarketCap,
				"volume24h":      c.Volume24h,
				"creatorAddress": c.CreatorAddress,
				"createdAt":      c.CreatedAt,
				"uniqueHolders":  c.UniqueHolders,
				"previewImage":   c.PreviewImage,
			}, nil
		},
	}
}

func GetUserCoinBalance(coins Coins) *Action {
	return &Action{
		Name:        GetUserCoinBalanceName,
		Description: "Fetches the coin balances for a user address or handle. Supports pagination.",
		Similes: []string{
			"get user balance",
			"fetch user coin balances",
			"show me my crypto balances",
			"lookup balances by user address",
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (Fields, error) {
			var in struct {
				Identifier string `json:"identifier"`
				pageInput
			}
			if err := decodeInput(raw, &in); err != nil {
				return nil, err
			}
			if strings.TrimSpace(in.Identifier) == "" {
				return nil, fmt.Errorf("%w: identifier is required to fetch user balances", ErrInvalidInput)
			}
			count, err := in.count()
			if err != nil {
				return nil, err
			}
			page, err := coins.Balances(ctx, in.Identifier, count, in.After)
			if err != nil {
				return nil, err
			}
			balances := page.Balances
			if balances == nil {
				balances = []CoinBalance{}
			}
			return Fields{
				"totalBalances": len(balances),
				"balances":      balances,
				"pagination":    map[string]string{"endCursor": page.EndCursor},
			}, nil
		},
	}
}

func GetLastTradedCoins(coins Coins) *Action {
	return &Action{
		Name:        GetLastTradedCoinsName,
		Description: "Fetches the most recently traded coins. Allows specifying the number of coins and pagination.",
		Similes: []string{
			"get last traded coins",
			"fetch recently traded coins",
			"list newest coins traded",
			"show me recent crypto activity",
		},
		Handler: func(ctx context.Context, raw json.RawMessage) (Fields, error) {
			var in pageInput
			if err := decodeInput(raw, &in); err != nil {
				return nil, err
			}
			count, err := in.count()
			if err != nil {
				return nil, err
			}
			tokens, next, err := coins.LastTraded(ctx, count, in.After)
			if err != nil {
				return nil, err
			}
			if tokens == nil {
				tokens = []TradedCoin{}
			}
			var pagination any
			if next != "" {
				pagination = map[string]string{"nextCursor": next}
			}
			return Fields{"tokens": tokens, "pagination": pagination}, nil
		},
	}
}
