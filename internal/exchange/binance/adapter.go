// Package binance implements exchange.Adapter against Binance's spot REST
// and user/market WebSocket streams.
package binance

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
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

// Config holds Binance credentials and endpoint selection.
type Config struct {
	APIKey     string
	APISecret  string
	Testnet    bool
	RecvWindow int
}

func (c Config) restURL() string {
	if c.Testnet {
		return "https://testnet.binance.vision"
	}
	return "https://api.binance.com"
}

func (c Config) wsURL() string {
	if c.Testnet {
		return "wss://testnet.binance.vision/ws"
	}
	return "wss://stream.binance.com:9443/ws"
}

func (c Config) recvWindow() int {
	if c.RecvWindow <= 0 {
		return 5000
	}
	return c.RecvWindow
}

// Adapter implements exchange.Adapter for Binance.
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
}

// NewAdapter builds a Binance adapter.
func NewAdapter(cfg Config) *Adapter {
	return &Adapter{
		cfg:     cfg,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: exchange.NewBreaker("binance"),
		limiter: exchange.NewRESTLimiter(10, 20),
	}
}

func (a *Adapter) Venue() core.Venue { return core.VenueBinance }

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

// Connect dials the public market-data WebSocket, samples a round-trip
// latency against the REST ping endpoint, and starts the reader loop.
func (a *Adapter) Connect(ctx context.Context) error {
	start := time.Now()
	resp, err := a.http.Get(a.cfg.restURL() + "/api/v3/ping")
	if err == nil {
		resp.Body.Close()
	}
	latency := time.Since(start)

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, _, err := dialer.DialContext(ctx, a.cfg.wsURL(), nil)
	if err != nil {
		return fmt.Errorf("binance: dial ws: %w", err)
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

	log.Info().Str("venue", "binance").Dur("latency", latency).Msg("connected")
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

func (a *Adapter) SubscribeTicker(ctx context.Context, symbol core.Symbol) error {
	stream := strings.ToLower(symbol.String()) + "@bookTicker"
	return a.sendSubscribe(stream, 1)
}

func (a *Adapter) SubscribeOrderbook(ctx context.Context, symbol core.Symbol, depth int) error {
	if depth <= 0 {
		depth = 20
	}
	stream := fmt.Sprintf("%s@depth%d@100ms", strings.ToLower(symbol.String()), depth)
	return a.sendSubscribe(stream, 2)
}

func (a *Adapter) sendSubscribe(stream string, id int) error {
	a.mu.RLock()
	conn := a.conn
	a.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("binance: not connected")
	}
	msg := map[string]interface{}{
		"method": "SUBSCRIBE",
		"params": []string{stream},
		"id":     id,
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return conn.WriteJSON(msg)
}

// SendOrder signs and submits a new order via the REST trading endpoint.
func (a *Adapter) SendOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return exchange.OrderResponse{}, err
	}

	params := url.Values{}
	params.Set("symbol", req.Symbol.String())
	params.Set("side", req.Side.String())
	params.Set("type", orderTypeString(req.OrderType))
	params.Set("timeInForce", tifString(req.TimeInForce))
	params.Set("price", strconv.FormatFloat(core.FromPrice(req.Price), 'f', 8, 64))
	params.Set("quantity", strconv.FormatFloat(core.FromQuantity(req.Quantity), 'f', 8, 64))
	params.Set("newClientOrderId", req.ClientOrderID)
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("recvWindow", strconv.Itoa(a.cfg.recvWindow()))
	params.Set("signature", a.sign(params))

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.postForm("/api/v3/order", params)
	})
	if err != nil {
		return exchange.OrderResponse{Success: false, ClientOrderID: req.ClientOrderID, ErrorMessage: err.Error()}, nil
	}

	body := result.([]byte)
	var parsed struct {
		OrderID       int64  `json:"orderId"`
		ClientOrderID string `json:"clientOrderId"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return exchange.OrderResponse{Success: false, ClientOrderID: req.ClientOrderID, ErrorMessage: "malformed response"}, nil
	}
	return exchange.OrderResponse{
		Success:       true,
		VenueOrderID:  strconv.FormatInt(parsed.OrderID, 10),
		ClientOrderID: req.ClientOrderID,
	}, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, symbol core.Symbol, venueOrderID string) (bool, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return false, err
	}
	params := url.Values{}
	params.Set("symbol", symbol.String())
	params.Set("orderId", venueOrderID)
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("signature", a.sign(params))

	_, err := a.breaker.Execute(func() (interface{}, error) {
		return a.deleteForm("/api/v3/order", params)
	})
	return err == nil, nil
}

func (a *Adapter) CancelAllOrders(ctx context.Context, symbol core.Symbol) (int, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	params := url.Values{}
	params.Set("symbol", symbol.String())
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("signature", a.sign(params))

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.deleteForm("/api/v3/openOrders", params)
	})
	if err != nil {
		return 0, err
	}
	var cancelled []json.RawMessage
	if err := json.Unmarshal(result.([]byte), &cancelled); err != nil {
		return 0, nil
	}
	return len(cancelled), nil
}

func (a *Adapter) OpenOrders(ctx context.Context, symbol core.Symbol) ([]core.Order, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	params := url.Values{}
	params.Set("symbol", symbol.String())
	params.Set("timestamp", strconv.FormatInt(time.Now().UnixMilli(), 10))
	params.Set("signature", a.sign(params))

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.getSigned("/api/v3/openOrders", params)
	})
	if err != nil {
		return nil, err
	}

	var raw []binanceOrder
	if err := json.Unmarshal(result.([]byte), &raw); err != nil {
		return nil, fmt.Errorf("binance: parse open orders: %w", err)
	}
	out := make([]core.Order, 0, len(raw))
	for _, o := range raw {
		out = append(out, o.toCoreOrder(symbol))
	}
	return out, nil
}

func (a *Adapter) postForm(path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequest(http.MethodPost, a.cfg.restURL()+path, strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.doSigned(req)
}

func (a *Adapter) deleteForm(path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequest(http.MethodDelete, a.cfg.restURL()+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return a.doSigned(req)
}

func (a *Adapter) getSigned(path string, params url.Values) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, a.cfg.restURL()+path+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	return a.doSigned(req)
}

func (a *Adapter) doSigned(req *http.Request) ([]byte, error) {
	req.Header.Set("X-MBX-APIKEY", a.cfg.APIKey)

	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("binance: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("binance: read body: %w", err)
	}
	log.Debug().Str("venue", "binance").Str("path", req.URL.Path).Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).Msg("rest call")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("binance: http %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// sign computes the HMAC-SHA256 signature over the urlencoded query string,
// matching Binance's documented query-signing scheme.
func (a *Adapter) sign(params url.Values) string {
	mac := hmac.New(sha256.New, []byte(a.cfg.APISecret))
	mac.Write([]byte(params.Encode()))
	return hex.EncodeToString(mac.Sum(nil))
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

func (a *Adapter) handleMessage(raw []byte) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return
	}
	eventType, _ := envelope["e"]
	switch {
	case bytes.Equal(eventType, []byte(`"bookTicker"`)) || (eventType == nil && envelope["b"] != nil && envelope["B"] != nil):
		a.handleBookTicker(raw)
	case bytes.Equal(eventType, []byte(`"executionReport"`)):
		a.handleExecutionReport(raw)
	}
}

type bookTickerMsg struct {
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

func (a *Adapter) handleBookTicker(raw []byte) {
	var msg bookTickerMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	symbol, err := core.ParseSymbol(msg.Symbol)
	if err != nil {
		return
	}
	tick := core.Tick{
		Symbol:     symbol,
		BestBid:    core.ToPrice(parseFloat(msg.BidPrice)),
		BestBidQty: core.ToQuantity(parseFloat(msg.BidQty)),
		BestAsk:    core.ToPrice(parseFloat(msg.AskPrice)),
		BestAskQty: core.ToQuantity(parseFloat(msg.AskQty)),
		LocalTs:    core.NowNS(),
	}

	a.mu.RLock()
	cb := a.cb.OnTick
	a.mu.RUnlock()
	if cb != nil {
		cb(tick)
	}
}

type executionReportMsg struct {
	Symbol        string `json:"s"`
	ClientOrderID string `json:"c"`
	Side          string `json:"S"`
	OrderID       int64  `json:"i"`
	Price         string `json:"p"`
	Quantity      string `json:"q"`
	FilledQty     string `json:"z"`
	Status        string `json:"X"`
	TransactTime  int64  `json:"T"`
}

func (a *Adapter) handleExecutionReport(raw []byte) {
	var msg executionReportMsg
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	symbol, err := core.ParseSymbol(msg.Symbol)
	if err != nil {
		return
	}
	status, ok := orderStatusFromString(msg.Status)
	if !ok {
		return
	}
	side := core.Buy
	if msg.Side == "SELL" {
		side = core.Sell
	}
	order := core.Order{
		ClientID:     msg.ClientOrderID,
		VenueOrderID: strconv.FormatInt(msg.OrderID, 10),
		Venue:        core.VenueBinance,
		Symbol:       symbol,
		Side:         side,
		Price:        core.ToPrice(parseFloat(msg.Price)),
		Quantity:     core.ToQuantity(parseFloat(msg.Quantity)),
		FilledQty:    core.ToQuantity(parseFloat(msg.FilledQty)),
		Status:       status,
		UpdateTs:     core.Timestamp(msg.TransactTime * 1_000_000),
	}

	a.mu.RLock()
	cb := a.cb.OnOrderUpdate
	a.mu.RUnlock()
	if cb != nil {
		cb(order)
	}
}

type binanceOrder struct {
	OrderID       int64  `json:"orderId"`
	ClientOrderID string `json:"clientOrderId"`
	Side          string `json:"side"`
	Price         string `json:"price"`
	OrigQty       string `json:"origQty"`
	ExecutedQty   string `json:"executedQty"`
	Status        string `json:"status"`
	Time          int64  `json:"time"`
}

func (o binanceOrder) toCoreOrder(symbol core.Symbol) core.Order {
	status, _ := orderStatusFromString(o.Status)
	side := core.Buy
	if o.Side == "SELL" {
		side = core.Sell
	}
	return core.Order{
		ClientID:     o.ClientOrderID,
		VenueOrderID: strconv.FormatInt(o.OrderID, 10),
		Venue:        core.VenueBinance,
		Symbol:       symbol,
		Side:         side,
		Price:        core.ToPrice(parseFloat(o.Price)),
		Quantity:     core.ToQuantity(parseFloat(o.OrigQty)),
		FilledQty:    core.ToQuantity(parseFloat(o.ExecutedQty)),
		Status:       status,
		UpdateTs:     core.Timestamp(o.Time * 1_000_000),
	}
}

func orderTypeString(t core.OrderType) string {
	switch t {
	case core.OrderTypeMarket:
		return "MARKET"
	case core.OrderTypeLimitMaker:
		return "LIMIT_MAKER"
	default:
		return "LIMIT"
	}
}

func tifString(t core.TimeInForce) string {
	switch t {
	case core.IOC:
		return "IOC"
	case core.FOK:
		return "FOK"
	case core.PostOnly:
		return "GTX"
	default:
		return "GTC"
	}
}

func orderStatusFromString(s string) (core.OrderStatus, bool) {
	switch s {
	case "NEW":
		return core.OrderStatusNew, true
	case "PARTIALLY_FILLED":
		return core.OrderStatusPartiallyFilled, true
	case "FILLED":
		return core.OrderStatusFilled, true
	case "CANCELED":
		return core.OrderStatusCanceled, true
	case "REJECTED":
		return core.OrderStatusRejected, true
	case "EXPIRED":
		return core.OrderStatusExpired, true
	default:
		return core.OrderStatusNew, false
	}
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
