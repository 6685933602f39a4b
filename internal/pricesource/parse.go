package pricesource

import (
	"fmt"
	"strconv"

	json "github.com/goccy/go-json"
	"github.com/mselser95/polymarket-scanner/pkg/types"
)

// marketDetail is the Gamma API market-detail payload. The API is loose
// about shapes: outcomes and outcomePrices may be JSON arrays or
// JSON-encoded strings containing arrays, and some markets carry a
// tokens list instead.
type marketDetail struct {
	ID            string          `json:"id"`
	Question      string          `json:"question"`
	Outcomes      json.RawMessage `json:"outcomes"`
	OutcomePrices json.RawMessage `json:"outcomePrices"`
	Tokens        []tokenEntry    `json:"tokens"`
}

type tokenEntry struct {
	Outcome string   `json:"outcome"`
	Price   *float64 `json:"price"`
}

// resolvePrices extracts Yes/No prices from a market detail payload,
// trying strategies in fixed priority order: the outcomes/outcomePrices
// arrays first, then the tokens list. Outcome labels are matched
// case-sensitively against "Yes"/"No". A nil return for either side
// means the price could not be resolved; there is no silent default.
func resolvePrices(detail *marketDetail) (yes, no *float64) {
	yes, no = resolveFromOutcomes(detail.Outcomes, detail.OutcomePrices)
	if yes != nil && no != nil {
		return yes, no
	}

	tokYes, tokNo := resolveFromTokens(detail.Tokens)
	if yes == nil {
		yes = tokYes
	}
	if no == nil {
		no = tokNo
	}
	return yes, no
}

func resolveFromOutcomes(outcomesRaw, pricesRaw json.RawMessage) (yes, no *float64) {
	outcomes, err := decodeStringList(outcomesRaw)
	if err != nil {
		return nil, nil
	}
	prices, err := decodeFloatList(pricesRaw)
	if err != nil {
		return nil, nil
	}

	for i, outcome := range outcomes {
		if i >= len(prices) {
			break
		}
		p := prices[i]
		switch outcome {
		case "Yes":
			yes = &p
		case "No":
			no = &p
		}
	}
	return yes, no
}

func resolveFromTokens(tokens []tokenEntry) (yes, no *float64) {
	for i := range tokens {
		if tokens[i].Price == nil {
			continue
		}
		switch tokens[i].Outcome {
		case "Yes":
			yes = tokens[i].Price
		case "No":
			no = tokens[i].Price
		}
	}
	return yes, no
}

// decodeStringList decodes a JSON array of strings that may itself be
// wrapped in a JSON string (`"[\"Yes\", \"No\"]"`).
func decodeStringList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("field absent")
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return list, nil
	}

	var wrapped string
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("neither array nor string: %w", err)
	}
	if err := json.Unmarshal([]byte(wrapped), &list); err != nil {
		return nil, fmt.Errorf("embedded array: %w", err)
	}
	return list, nil
}

// decodeFloatList decodes a JSON array of numbers whose entries may be
// numbers or numeric strings, optionally wrapped in a JSON string.
func decodeFloatList(raw json.RawMessage) ([]float64, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("field absent")
	}

	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		// The whole field may be a JSON-encoded string holding the array.
		var wrapped string
		if strErr := json.Unmarshal(raw, &wrapped); strErr != nil {
			return nil, fmt.Errorf("neither array nor string: %w", err)
		}
		return decodeFloatList(json.RawMessage(wrapped))
	}

	out := make([]float64, 0, len(entries))
	for _, entry := range entries {
		var f float64
		if err := json.Unmarshal(entry, &f); err == nil {
			out = append(out, f)
			continue
		}
		var s string
		if err := json.Unmarshal(entry, &s); err != nil {
			return nil, fmt.Errorf("entry %s is neither number nor string", entry)
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("parse price %q: %w", s, err)
		}
		out = append(out, f)
	}
	return out, nil
}

// bookLevel is one price level of the CLOB order book.
type bookLevel struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}

type bookResponse struct {
	Market string      `json:"market"`
	Bids   []bookLevel `json:"bids"`
	Asks   []bookLevel `json:"asks"`
}

// parseBestBook extracts the best ask and bid from an order book
// payload. ok is false when the book is empty or unparseable.
func parseBestBook(body []byte) (ask, bid float64, ok bool) {
	var book bookResponse
	if err := json.Unmarshal(body, &book); err != nil {
		return 0, 0, false
	}
	if len(book.Asks) == 0 || len(book.Bids) == 0 {
		return 0, 0, false
	}

	ask, errAsk := strconv.ParseFloat(book.Asks[0].Price, 64)
	bid, errBid := strconv.ParseFloat(book.Bids[0].Price, 64)
	if errAsk != nil || errBid != nil {
		return 0, 0, false
	}
	return ask, bid, true
}

// decodeMarketList decodes the discovery response, which is either a
// bare JSON array of markets or an object with a data field.
func decodeMarketList(body []byte) ([]types.Market, error) {
	var markets []types.Market
	if err := json.Unmarshal(body, &markets); err == nil {
		return markets, nil
	}

	var wrapper struct {
		Data []types.Market `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return nil, fmt.Errorf("unmarshal market list: %w", err)
	}
	return wrapper.Data, nil
}
