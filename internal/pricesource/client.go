package pricesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/mselser95/polymarket-scanner/pkg/types"
	"go.uber.org/zap"
)

const (
	// discoveryTimeout bounds the market list request.
	discoveryTimeout = 10 * time.Second
	// priceTimeout bounds per-market price and order book requests.
	priceTimeout = 5 * time.Second
)

// Client fetches market lists and Yes/No prices from the Polymarket
// Gamma API, with best-effort order book lookups against the CLOB API.
type Client struct {
	gammaURL   string
	clobURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a new price source client.
func NewClient(gammaURL, clobURL string, logger *zap.Logger) *Client {
	return &Client{
		gammaURL: gammaURL,
		clobURL:  clobURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
	}
}

// ListActiveMarkets fetches up to limit active, open markets from the
// discovery endpoint, preserving API order. An empty result is not an
// error.
func (c *Client) ListActiveMarkets(ctx context.Context, limit int) ([]types.MarketRef, error) {
	endpoint := fmt.Sprintf("%s/markets", c.gammaURL)

	params := url.Values{}
	params.Add("active", "true")
	params.Add("closed", "false")
	params.Add("limit", fmt.Sprintf("%d", limit))

	requestURL := fmt.Sprintf("%s?%s", endpoint, params.Encode())

	ctx, cancel := context.WithTimeout(ctx, discoveryTimeout)
	defer cancel()

	start := time.Now()
	body, err := c.get(ctx, requestURL)
	DiscoveryDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		DiscoveryErrorsTotal.Inc()
		return nil, &types.FetchError{Kind: types.FetchTransport, Endpoint: endpoint, Err: err}
	}

	markets, err := decodeMarketList(body)
	if err != nil {
		DiscoveryErrorsTotal.Inc()
		return nil, &types.FetchError{Kind: types.FetchMalformedPayload, Endpoint: endpoint, Err: err}
	}

	now := time.Now()
	refs := make([]types.MarketRef, 0, len(markets))
	for i := range markets {
		if !markets[i].Tradeable() {
			continue
		}
		refs = append(refs, types.NewMarketRef(&markets[i], now))
		if len(refs) == limit {
			break
		}
	}

	MarketsDiscoveredTotal.Add(float64(len(refs)))

	c.logger.Debug("markets-listed",
		zap.Int("returned", len(markets)),
		zap.Int("qualifying", len(refs)))

	return refs, nil
}

// FetchPrices resolves the Yes/No prices for a market, trying the
// outcomes/outcomePrices arrays first and the tokens list second.
// Ask/bid columns are filled from a best-effort order book lookup and
// fall back to the mid prices when the book is unavailable.
func (c *Client) FetchPrices(ctx context.Context, marketID string) (*types.PriceQuote, error) {
	endpoint := fmt.Sprintf("%s/markets/%s", c.gammaURL, marketID)

	fetchCtx, cancel := context.WithTimeout(ctx, priceTimeout)
	defer cancel()

	start := time.Now()
	body, err := c.get(fetchCtx, endpoint)
	PriceFetchDurationSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		PriceFetchErrorsTotal.Inc()
		return nil, &types.FetchError{Kind: types.FetchTransport, MarketID: marketID, Endpoint: endpoint, Err: err}
	}

	var detail marketDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		PriceFetchErrorsTotal.Inc()
		return nil, &types.FetchError{Kind: types.FetchMalformedPayload, MarketID: marketID, Endpoint: endpoint, Err: err}
	}

	yes, no := resolvePrices(&detail)
	if yes == nil || no == nil {
		PriceFetchErrorsTotal.Inc()
		return nil, &types.FetchError{
			Kind:     types.FetchMissingPrice,
			MarketID: marketID,
			Endpoint: endpoint,
			Err:      fmt.Errorf("no Yes/No prices after outcome and token strategies"),
		}
	}

	quote := &types.PriceQuote{
		Question: detail.Question,
		YesPrice: *yes,
		NoPrice:  *no,
		YesAsk:   *yes,
		NoAsk:    *no,
		YesBid:   *yes,
		NoBid:    *no,
	}

	c.fillFromBook(ctx, marketID, quote)

	PriceFetchesTotal.Inc()

	return quote, nil
}

// fillFromBook overlays best ask/bid from the CLOB order book. The book
// is consulted but never required; any failure leaves the mid-price
// defaults in place. The No side mirrors the Yes book (a binary market
// has one book; buying No at p is selling Yes at 1-p).
func (c *Client) fillFromBook(ctx context.Context, marketID string, quote *types.PriceQuote) {
	endpoint := fmt.Sprintf("%s/book?market=%s", c.clobURL, url.QueryEscape(marketID))

	bookCtx, cancel := context.WithTimeout(ctx, priceTimeout)
	defer cancel()

	body, err := c.get(bookCtx, endpoint)
	if err != nil {
		BookLookupErrorsTotal.Inc()
		c.logger.Debug("book-lookup-failed",
			zap.String("market-id", marketID),
			zap.Error(err))
		return
	}

	ask, bid, ok := parseBestBook(body)
	if !ok {
		BookLookupErrorsTotal.Inc()
		c.logger.Debug("book-unusable", zap.String("market-id", marketID))
		return
	}

	quote.YesAsk = ask
	quote.YesBid = bid
	quote.NoAsk = 1 - bid
	quote.NoBid = 1 - ask
}

// get performs a GET request and returns the response body, mapping
// non-2xx statuses to errors.
func (c *Client) get(ctx context.Context, requestURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "polymarket-scanner/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status code %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return body, nil
}
