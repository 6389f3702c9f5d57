// Package kraken implements exchange.Adapter against Kraken's public
// WebSocket feed and signed REST trading endpoints.
package kraken

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/exchange"
)

// Config holds Kraken credentials and endpoint selection.
type Config struct {
	APIKey    string
	APISecret string // base64-encoded, as issued by Kraken
}

const (
	restURL = "https://api.kraken.com"
	wsURL   = "wss://ws.kraken.com"
)

// Adapter implements exchange.Adapter for Kraken.
type Adapter struct {
	cfg     Config
	http    *http.Client
	breaker interface {
		Execute(func() (interface{}, error)) (interface{}, error)
	}
	limiter *rate.Limiter

	mu        sync.RWMutex
	connected bool
	conn      *websocket.Conn
	cancelWS  context.CancelFunc
	cb        exchange.Callbacks
	latencyNS int64
	nonce     int64
}

// NewAdapter builds a Kraken adapter.
func NewAdapter(cfg Config) *Adapter {
	return &Adapter{
		cfg:     cfg,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: exchange.NewBreaker("kraken"),
		limiter: exchange.NewRESTLimiter(1, 5), // Kraken's private endpoints are tightly rate-limited
		nonce:   time.Now().UnixMicro(),
	}
}

func (a *Adapter) Venue() core.Venue { return core.VenueKraken }

func (a *Adapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.connected
}

func (a *Adapter) SetCallbacks(cb exchange.Callbacks) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.cb = cb
}

func (a *Adapter) LatencyNS() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.latencyNS
}

func (a *Adapter) Connect(ctx context.Context) error {
	start := time.Now()
	resp, err := a.http.Get(restURL + "/0/public/Time")
	if err == nil {
		resp.Body.Close()
	}
	latency := time.Since(start)

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("kraken: dial ws: %w", err)
	}

	wsCtx, cancel := context.WithCancel(context.Background())

	a.mu.Lock()
	a.conn = conn
	a.connected = true
	a.latencyNS = latency.Nanoseconds()
	a.cancelWS = cancel
	cb := a.cb.OnConnected
	a.mu.Unlock()

	go a.readLoop(wsCtx)

	log.Info().Str("venue", "kraken").Dur("latency", latency).Msg("connected")
	if cb != nil {
		cb()
	}
	return nil
}

func (a *Adapter) Disconnect(ctx context.Context) error {
	a.mu.Lock()
	if a.cancelWS != nil {
		a.cancelWS()
	}
	if a.conn != nil {
		a.conn.Close()
	}
	a.connected = false
	cb := a.cb.OnDisconnected
	a.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// krakenPair renders a Symbol in Kraken's wire format (BTC -> XBT).
func krakenPair(s core.Symbol) string {
	base := s.Base
	if base == "BTC" {
		base = "XBT"
	}
	return base + s.Quote
}

func (a *Adapter) SubscribeTicker(ctx context.Context, symbol core.Symbol) error {
	return a.sendSubscribe(symbol, "ticker", 0)
}

func (a *Adapter) SubscribeOrderbook(ctx context.Context, symbol core.Symbol, depth int) error {
	if depth <= 0 {
		depth = 10
	}
	return a.sendSubscribe(symbol, "book", depth)
}

func (a *Adapter) sendSubscribe(symbol core.Symbol, name string, depth int) error {
	a.mu.RLock()
	conn := a.conn
	a.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("kraken: not connected")
	}
	sub := map[string]interface{}{"name": name}
	if depth > 0 {
		sub["depth"] = depth
	}
	msg := map[string]interface{}{
		"event":        "subscribe",
		"pair":         []string{krakenPair(symbol)},
		"subscription": sub,
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return conn.WriteJSON(msg)
}

// SendOrder signs and submits a new order via Kraken's AddOrder endpoint.
func (a *Adapter) SendOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return exchange.OrderResponse{}, err
	}

	params := url.Values{}
	params.Set("pair", krakenPair(req.Symbol))
	params.Set("type", strings.ToLower(req.Side.String()))
	params.Set("ordertype", orderTypeString(req.OrderType))
	params.Set("price", strconv.FormatFloat(core.FromPrice(req.Price), 'f', 8, 64))
	params.Set("volume", strconv.FormatFloat(core.FromQuantity(req.Quantity), 'f', 8, 64))
	if req.TimeInForce == core.IOC {
		params.Set("timeinforce", "IOC")
	}
	params.Set("userref", req.ClientOrderID)
	params.Set("nonce", a.nextNonce())

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.postPrivate("/0/private/AddOrder", params)
	})
	if err != nil {
		return exchange.OrderResponse{Success: false, ClientOrderID: req.ClientOrderID, ErrorMessage: err.Error()}, nil
	}

	var parsed struct {
		Error  []string `json:"error"`
		Result struct {
			TxID []string `json:"txid"`
		} `json:"result"`
	}
	if err := json.Unmarshal(result.([]byte), &parsed); err != nil || len(parsed.Error) > 0 {
		msg := "malformed response"
		if len(parsed.Error) > 0 {
			msg = strings.Join(parsed.Error, "; ")
		}
		return exchange.OrderResponse{Success: false, ClientOrderID: req.ClientOrderID, ErrorMessage: msg}, nil
	}
	venueOrderID := ""
	if len(parsed.Result.TxID) > 0 {
		venueOrderID = parsed.Result.TxID[0]
	}
	return exchange.OrderResponse{Success: true, VenueOrderID: venueOrderID, ClientOrderID: req.ClientOrderID}, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, symbol core.Symbol, venueOrderID string) (bool, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return false, err
	}
	params := url.Values{}
	params.Set("txid", venueOrderID)
	params.Set("nonce", a.nextNonce())

	_, err := a.breaker.Execute(func() (interface{}, error) {
		return a.postPrivate("/0/private/CancelOrder", params)
	})
	return err == nil, nil
}

func (a *Adapter) CancelAllOrders(ctx context.Context, symbol core.Symbol) (int, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	params := url.Values{}
	params.Set("nonce", a.nextNonce())

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.postPrivate("/0/private/CancelAll", params)
	})
	if err != nil {
		return 0, err
	}
	var parsed struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	if err := json.Unmarshal(result.([]byte), &parsed); err != nil {
		return 0, nil
	}
	return parsed.Result.Count, nil
}

func (a *Adapter) OpenOrders(ctx context.Context, symbol core.Symbol) ([]core.Order, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("nonce", a.nextNonce())

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.postPrivate("/0/private/OpenOrders", params)
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Result struct {
			Open map[string]krakenOpenOrder `json:"open"`
		} `json:"result"`
	}
	if err := json.Unmarshal(result.([]byte), &parsed); err != nil {
		return nil, fmt.Errorf("kraken: parse open orders: %w", err)
	}
	out := make([]core.Order, 0, len(parsed.Result.Open))
	for txid, o := range parsed.Result.Open {
		out = append(out, o.toCoreOrder(txid, symbol))
	}
	return out, nil
}

type krakenOpenOrder struct {
	Status    string `json:"status"`
	Userref   int    `json:"userref"`
	Descr     struct {
		Type  string `json:"type"`
		Price string `json:"price"`
	} `json:"descr"`
	Vol     string `json:"vol"`
	VolExec string `json:"vol_exec"`
	OpenTm  float64 `json:"opentm"`
}

func (o krakenOpenOrder) toCoreOrder(txid string, symbol core.Symbol) core.Order {
	side := core.Buy
	if o.Descr.Type == "sell" {
		side = core.Sell
	}
	status := core.OrderStatusNew
	switch o.Status {
	case "closed":
		status = core.OrderStatusFilled
	case "canceled":
		status = core.OrderStatusCanceled
	}
	return core.Order{
		VenueOrderID: txid,
		Venue:        core.VenueKraken,
		Symbol:       symbol,
		Side:         side,
		Price:        core.ToPrice(parseFloat(o.Descr.Price)),
		Quantity:     core.ToQuantity(parseFloat(o.Vol)),
		FilledQty:    core.ToQuantity(parseFloat(o.VolExec)),
		Status:       status,
		UpdateTs:     core.Timestamp(o.OpenTm * 1e9),
	}
}

func (a *Adapter) nextNonce() string {
	a.mu.Lock()
	a.nonce++
	n := a.nonce
	a.mu.Unlock()
	return strconv.FormatInt(n, 10)
}

func (a *Adapter) postPrivate(path string, params url.Values) ([]byte, error) {
	signature, err := a.sign(path, params)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequest(http.MethodPost, restURL+path, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("API-Key", a.cfg.APIKey)
	req.Header.Set("API-Sign", signature)

	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kraken: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kraken: read body: %w", err)
	}
	log.Debug().Str("venue", "kraken").Str("path", path).Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).Msg("rest call")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("kraken: http %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// sign computes Kraken's nonce-based API-Sign: HMAC-SHA512 of the URI path
// concatenated with SHA256(nonce + POST body), keyed by the base64-decoded
// API secret, itself base64-encoded for the header.
func (a *Adapter) sign(path string, params url.Values) (string, error) {
	secret, err := base64.StdEncoding.DecodeString(a.cfg.APISecret)
	if err != nil {
		return "", fmt.Errorf("kraken: invalid api secret: %w", err)
	}

	sha := sha256.New()
	sha.Write([]byte(params.Get("nonce") + params.Encode()))
	shaSum := sha.Sum(nil)

	mac := hmac.New(sha512.New, secret)
	mac.Write(append([]byte(path), shaSum...))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil)), nil
}

func (a *Adapter) readLoop(ctx context.Context) {
	defer func() {
		a.mu.Lock()
		a.connected = false
		cb := a.cb.OnDisconnected
		a.mu.Unlock()
		if cb != nil {
			cb()
		}
	}()

	a.mu.RLock()
	conn := a.conn
	a.mu.RUnlock()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		_, message, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				conn.WriteMessage(websocket.PingMessage, nil)
				continue
			}
			a.mu.RLock()
			cb := a.cb.OnError
			a.mu.RUnlock()
			if cb != nil {
				cb(fmt.Sprintf("ws read error: %v", err))
			}
			return
		}
		a.handleMessage(message)
	}
}

// handleMessage dispatches Kraken's array-framed channel messages. Event
// messages (subscription acks, heartbeats) are JSON objects and are
// ignored here; only array-framed ticker/book payloads carry top-of-book.
func (a *Adapter) handleMessage(raw []byte) {
	var generic []interface{}
	if err := json.Unmarshal(raw, &generic); err != nil {
		return // object-framed event message (heartbeat, subscriptionStatus)
	}
	if len(generic) < 4 {
		return
	}
	channelName, _ := generic[len(generic)-2].(string)
	pairName, _ := generic[len(generic)-1].(string)
	if !strings.HasPrefix(channelName, "ticker") && !strings.HasPrefix(channelName, "book") {
		return
	}
	payload, ok := generic[1].(map[string]interface{})
	if !ok {
		return
	}
	symbol, err := pairToSymbol(pairName)
	if err != nil {
		return
	}
	a.handleTickerPayload(symbol, payload)
}

func pairToSymbol(pair string) (core.Symbol, error) {
	normalized := strings.ReplaceAll(pair, "/", "")
	normalized = strings.ReplaceAll(normalized, "XBT", "BTC")
	return core.ParseSymbol(normalized)
}

func (a *Adapter) handleTickerPayload(symbol core.Symbol, payload map[string]interface{}) {
	bid, bidOK := firstOf(payload["b"])
	ask, askOK := firstOf(payload["a"])
	if !bidOK && !askOK {
		return
	}
	tick := core.Tick{Symbol: symbol, LocalTs: core.NowNS()}
	if bidOK {
		tick.BestBid = core.ToPrice(bid[0])
		if len(bid) > 2 {
			tick.BestBidQty = core.ToQuantity(bid[2])
		}
	}
	if askOK {
		tick.BestAsk = core.ToPrice(ask[0])
		if len(ask) > 2 {
			tick.BestAskQty = core.ToQuantity(ask[2])
		}
	}

	a.mu.RLock()
	cb := a.cb.OnTick
	a.mu.RUnlock()
	if cb != nil {
		cb(tick)
	}
}

func firstOf(v interface{}) ([]float64, bool) {
	arr, ok := v.([]interface{})
	if !ok {
		return nil, false
	}
	out := make([]float64, 0, len(arr))
	for _, item := range arr {
		switch val := item.(type) {
		case string:
			out = append(out, parseFloat(val))
		case float64:
			out = append(out, val)
		}
	}
	return out, len(out) > 0
}

func orderTypeString(t core.OrderType) string {
	switch t {
	case core.OrderTypeMarket:
		return "market"
	default:
		return "limit"
	}
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
