package quote

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"stock-tracker/internal/config"
	trackererrors "stock-tracker/internal/errors"
	"stock-tracker/internal/logging"
	"stock-tracker/internal/models"
	"stock-tracker/pkg/utils"
)

// YahooSource fetches quotes from the Yahoo Finance public API.
//
// Price resolution uses a fallback chain: the live regular-market price
// field first, then the most recent intraday close from a one-day chart
// window. If neither yields a price the fetch reports ErrQuoteUnavailable.
type YahooSource struct {
	client *resty.Client
	retry  utils.RetryConfig
	logger zerolog.Logger
}

// NewYahooSource creates a quote source backed by the Yahoo Finance API.
func NewYahooSource(cfg config.ProviderConfig, logger zerolog.Logger) *YahooSource {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.RequestTimeout).
		SetHeader("User-Agent", "stock-tracker/0.1")

	retry := utils.DefaultRetryConfig()
	if cfg.MaxRetries > 0 {
		retry.MaxAttempts = cfg.MaxRetries
	}

	return &YahooSource{
		client: client,
		retry:  retry,
		logger: logger.With().Str("component", "quote").Logger(),
	}
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

type quoteResponse struct {
	QuoteResponse struct {
		Result []quoteResult `json:"result"`
		Error  *apiError     `json:"error"`
	} `json:"quoteResponse"`
}

type quoteResult struct {
	Symbol                     string  `json:"symbol"`
	RegularMarketPrice         float64 `json:"regularMarketPrice"`
	RegularMarketPreviousClose float64 `json:"regularMarketPreviousClose"`
	RegularMarketVolume        int64   `json:"regularMarketVolume"`
	MarketCap                  float64 `json:"marketCap"`
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				ChartPreviousClose float64 `json:"chartPreviousClose"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close  []*float64 `json:"close"`
					Volume []*int64   `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

// Fetch retrieves the current quote for a symbol.
func (s *YahooSource) Fetch(ctx context.Context, symbol string) (*models.Quote, error) {
	symbol = models.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, trackererrors.NewFetchError(symbol, fmt.Errorf("empty symbol"))
	}

	result, err := s.fetchQuote(ctx, symbol)
	if err != nil {
		return nil, err
	}

	price := 0.0
	previousClose := 0.0
	var volume int64
	var marketCap float64

	if result != nil {
		price = result.RegularMarketPrice
		previousClose = result.RegularMarketPreviousClose
		volume = result.RegularMarketVolume
		marketCap = result.MarketCap
	}

	// Fallback: latest intraday close from a short historical window.
	if price == 0 {
		fallbackPrice, fallbackPrev, fallbackVol, err := s.fetchRecentClose(ctx, symbol)
		if err != nil {
			return nil, err
		}
		price = fallbackPrice
		if previousClose == 0 {
			previousClose = fallbackPrev
		}
		if volume == 0 {
			volume = fallbackVol
		}
	}

	if price == 0 {
		return nil, fmt.Errorf("%w: %s", trackererrors.ErrQuoteUnavailable, symbol)
	}

	q := models.NewQuote(symbol, price, previousClose, volume, time.Now())
	q.MarketCap = marketCap
	return &q, nil
}

// fetchQuote queries the live quote endpoint. A missing result is not an
// error here; the caller falls through to the chart window.
func (s *YahooSource) fetchQuote(ctx context.Context, symbol string) (*quoteResult, error) {
	start := time.Now()

	resp, err := utils.RetryWithResult(ctx, s.retry, func() (*resty.Response, error) {
		resp, err := s.client.R().
			SetContext(ctx).
			SetQueryParam("symbols", symbol).
			SetResult(&quoteResponse{}).
			Get("/v7/finance/quote")
		if err != nil {
			return nil, err
		}
		if isTransient(resp) {
			return nil, fmt.Errorf("%w: status %d", trackererrors.ErrRateLimited, resp.StatusCode())
		}
		return resp, nil
	})
	logging.LogAPICall(s.logger, "GET", "/v7/finance/quote", time.Since(start), err)
	if err != nil {
		return nil, trackererrors.NewFetchError(symbol, err)
	}

	if resp.IsError() {
		return nil, trackererrors.NewFetchError(symbol, fmt.Errorf("quote endpoint returned status %d", resp.StatusCode()))
	}

	qr, ok := resp.Result().(*quoteResponse)
	if !ok || qr.QuoteResponse.Error != nil {
		return nil, trackererrors.NewFetchError(symbol, fmt.Errorf("malformed quote response"))
	}

	for i := range qr.QuoteResponse.Result {
		if models.NormalizeSymbol(qr.QuoteResponse.Result[i].Symbol) == symbol {
			return &qr.QuoteResponse.Result[i], nil
		}
	}
	return nil, nil
}

// fetchRecentClose pulls a one-day, one-minute chart and returns the most
// recent non-null close.
func (s *YahooSource) fetchRecentClose(ctx context.Context, symbol string) (price, previousClose float64, volume int64, err error) {
	start := time.Now()

	resp, err := utils.RetryWithResult(ctx, s.retry, func() (*resty.Response, error) {
		resp, err := s.client.R().
			SetContext(ctx).
			SetQueryParam("range", "1d").
			SetQueryParam("interval", "1m").
			SetResult(&chartResponse{}).
			Get("/v8/finance/chart/" + symbol)
		if err != nil {
			return nil, err
		}
		if isTransient(resp) {
			return nil, fmt.Errorf("%w: status %d", trackererrors.ErrRateLimited, resp.StatusCode())
		}
		return resp, nil
	})
	logging.LogAPICall(s.logger, "GET", "/v8/finance/chart", time.Since(start), err)
	if err != nil {
		return 0, 0, 0, trackererrors.NewFetchError(symbol, err)
	}

	if resp.IsError() {
		return 0, 0, 0, fmt.Errorf("%w: %s", trackererrors.ErrQuoteUnavailable, symbol)
	}

	cr, ok := resp.Result().(*chartResponse)
	if !ok || cr.Chart.Error != nil || len(cr.Chart.Result) == 0 {
		return 0, 0, 0, fmt.Errorf("%w: %s", trackererrors.ErrQuoteUnavailable, symbol)
	}

	result := cr.Chart.Result[0]
	previousClose = result.Meta.ChartPreviousClose

	if len(result.Indicators.Quote) == 0 {
		return 0, previousClose, 0, nil
	}
	series := result.Indicators.Quote[0]
	for i := len(series.Close) - 1; i >= 0; i-- {
		if series.Close[i] != nil && *series.Close[i] != 0 {
			price = *series.Close[i]
			if i < len(series.Volume) && series.Volume[i] != nil {
				volume = *series.Volume[i]
			}
			break
		}
	}

	return price, previousClose, volume, nil
}

// isTransient reports whether a response should be retried.
func isTransient(resp *resty.Response) bool {
	return resp.StatusCode() == 429 || resp.StatusCode() >= 500
}
