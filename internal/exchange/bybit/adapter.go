// Package bybit implements exchange.Adapter against Bybit's public
// WebSocket feed (v5 spot) and signed REST trading endpoints.
package bybit

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
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

// Config holds Bybit credentials and endpoint selection.
type Config struct {
	APIKey     string
	APISecret  string
	Testnet    bool
	RecvWindow int
}

func (c Config) restURL() string {
	if c.Testnet {
		return "https://api-testnet.bybit.com"
	}
	return "https://api.bybit.com"
}

func (c Config) wsURL() string {
	if c.Testnet {
		return "wss://stream-testnet.bybit.com/v5/public/spot"
	}
	return "wss://stream.bybit.com/v5/public/spot"
}

func (c Config) recvWindow() int {
	if c.RecvWindow <= 0 {
		return 5000
	}
	return c.RecvWindow
}

// Adapter implements exchange.Adapter for Bybit.
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

// NewAdapter builds a Bybit adapter.
func NewAdapter(cfg Config) *Adapter {
	return &Adapter{
		cfg:     cfg,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: exchange.NewBreaker("bybit"),
		limiter: exchange.NewRESTLimiter(10, 20),
	}
}

func (a *Adapter) Venue() core.Venue { return core.VenueBybit }

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
	resp, err := a.http.Get(a.cfg.restURL() + "/v5/market/time")
	if err == nil {
		resp.Body.Close()
	}
	latency := time.Since(start)

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, _, err := dialer.DialContext(ctx, a.cfg.wsURL(), nil)
	if err != nil {
		return fmt.Errorf("bybit: dial ws: %w", err)
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

	log.Info().Str("venue", "bybit").Dur("latency", latency).Msg("connected")
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
	return a.sendSubscribe("tickers." + symbol.String())
}

func (a *Adapter) SubscribeOrderbook(ctx context.Context, symbol core.Symbol, depth int) error {
	if depth <= 0 {
		depth = 50
	}
	level := 50
	if depth <= 1 {
		level = 1
	}
	return a.sendSubscribe(fmt.Sprintf("orderbook.%d.%s", level, symbol.String()))
}

func (a *Adapter) sendSubscribe(topic string) error {
	a.mu.RLock()
	conn := a.conn
	a.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("bybit: not connected")
	}
	msg := map[string]interface{}{
		"op":   "subscribe",
		"args": []string{topic},
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return conn.WriteJSON(msg)
}

// SendOrder signs and submits a new order via Bybit's v5 order/create.
func (a *Adapter) SendOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return exchange.OrderResponse{}, err
	}

	body := map[string]interface{}{
		"category":    "spot",
		"symbol":      req.Symbol.String(),
		"side":        sideString(req.Side),
		"orderType":   orderTypeString(req.OrderType),
		"price":       strconv.FormatFloat(core.FromPrice(req.Price), 'f', 8, 64),
		"qty":         strconv.FormatFloat(core.FromQuantity(req.Quantity), 'f', 8, 64),
		"timeInForce": tifString(req.TimeInForce),
		"orderLinkId": req.ClientOrderID,
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.postSigned("/v5/order/create", body)
	})
	if err != nil {
		return exchange.OrderResponse{Success: false, ClientOrderID: req.ClientOrderID, ErrorMessage: err.Error()}, nil
	}

	var parsed bybitEnvelope
	if err := json.Unmarshal(result.([]byte), &parsed); err != nil {
		return exchange.OrderResponse{Success: false, ClientOrderID: req.ClientOrderID, ErrorMessage: "malformed response"}, nil
	}
	if parsed.RetCode != 0 {
		return exchange.OrderResponse{Success: false, ClientOrderID: req.ClientOrderID, ErrorMessage: parsed.RetMsg}, nil
	}
	return exchange.OrderResponse{Success: true, VenueOrderID: parsed.Result.OrderID, ClientOrderID: req.ClientOrderID}, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, symbol core.Symbol, venueOrderID string) (bool, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return false, err
	}
	body := map[string]interface{}{
		"category": "spot",
		"symbol":   symbol.String(),
		"orderId":  venueOrderID,
	}
	_, err := a.breaker.Execute(func() (interface{}, error) {
		return a.postSigned("/v5/order/cancel", body)
	})
	return err == nil, nil
}

func (a *Adapter) CancelAllOrders(ctx context.Context, symbol core.Symbol) (int, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return 0, err
	}
	body := map[string]interface{}{
		"category": "spot",
		"symbol":   symbol.String(),
	}
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.postSigned("/v5/order/cancel-all", body)
	})
	if err != nil {
		return 0, err
	}
	var parsed struct {
		Result struct {
			List []json.RawMessage `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(result.([]byte), &parsed); err != nil {
		return 0, nil
	}
	return len(parsed.Result.List), nil
}

func (a *Adapter) OpenOrders(ctx context.Context, symbol core.Symbol) ([]core.Order, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/v5/order/realtime?category=spot&symbol=%s", symbol.String())
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.getSigned(path)
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Result struct {
			List []bybitOrder `json:"list"`
		} `json:"result"`
	}
	if err := json.Unmarshal(result.([]byte), &parsed); err != nil {
		return nil, fmt.Errorf("bybit: parse open orders: %w", err)
	}
	out := make([]core.Order, 0, len(parsed.Result.List))
	for _, o := range parsed.Result.List {
		out = append(out, o.toCoreOrder(symbol))
	}
	return out, nil
}

type bybitEnvelope struct {
	RetCode int    `json:"retCode"`
	RetMsg  string `json:"retMsg"`
	Result  struct {
		OrderID string `json:"orderId"`
	} `json:"result"`
}

type bybitOrder struct {
	OrderID     string `json:"orderId"`
	OrderLinkID string `json:"orderLinkId"`
	Side        string `json:"side"`
	Price       string `json:"price"`
	Qty         string `json:"qty"`
	CumExecQty  string `json:"cumExecQty"`
	OrderStatus string `json:"orderStatus"`
	UpdatedTime string `json:"updatedTime"`
}

func (o bybitOrder) toCoreOrder(symbol core.Symbol) core.Order {
	side := core.Buy
	if strings.EqualFold(o.Side, "Sell") {
		side = core.Sell
	}
	status := core.OrderStatusNew
	switch o.OrderStatus {
	case "Filled":
		status = core.OrderStatusFilled
	case "PartiallyFilled":
		status = core.OrderStatusPartiallyFilled
	case "Cancelled":
		status = core.OrderStatusCanceled
	case "Rejected":
		status = core.OrderStatusRejected
	}
	updated, _ := strconv.ParseInt(o.UpdatedTime, 10, 64)
	return core.Order{
		ClientID:     o.OrderLinkID,
		VenueOrderID: o.OrderID,
		Venue:        core.VenueBybit,
		Symbol:       symbol,
		Side:         side,
		Price:        core.ToPrice(parseFloat(o.Price)),
		Quantity:     core.ToQuantity(parseFloat(o.Qty)),
		FilledQty:    core.ToQuantity(parseFloat(o.CumExecQty)),
		Status:       status,
		UpdateTs:     core.Timestamp(updated * 1_000_000),
	}
}

func (a *Adapter) postSigned(path string, body map[string]interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return a.doSigned(http.MethodPost, path, string(payload))
}

func (a *Adapter) getSigned(pathWithQuery string) ([]byte, error) {
	parts := strings.SplitN(pathWithQuery, "?", 2)
	query := ""
	if len(parts) == 2 {
		query = parts[1]
	}
	return a.doSignedGet(parts[0], query)
}

func (a *Adapter) doSigned(method, path, body string) ([]byte, error) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	recvWindow := strconv.Itoa(a.cfg.recvWindow())
	signature := a.sign(ts, recvWindow, body)

	req, err := http.NewRequest(method, a.cfg.restURL()+path, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	a.setAuthHeaders(req, ts, recvWindow, signature)
	return a.do(req, path)
}

func (a *Adapter) doSignedGet(path, query string) ([]byte, error) {
	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	recvWindow := strconv.Itoa(a.cfg.recvWindow())
	signature := a.sign(ts, recvWindow, query)

	full := path
	if query != "" {
		full += "?" + query
	}
	req, err := http.NewRequest(http.MethodGet, a.cfg.restURL()+full, nil)
	if err != nil {
		return nil, err
	}
	a.setAuthHeaders(req, ts, recvWindow, signature)
	return a.do(req, path)
}

func (a *Adapter) setAuthHeaders(req *http.Request, ts, recvWindow, signature string) {
	req.Header.Set("X-BAPI-API-KEY", a.cfg.APIKey)
	req.Header.Set("X-BAPI-TIMESTAMP", ts)
	req.Header.Set("X-BAPI-RECV-WINDOW", recvWindow)
	req.Header.Set("X-BAPI-SIGN", signature)
}

func (a *Adapter) do(req *http.Request, path string) ([]byte, error) {
	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("bybit: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("bybit: read body: %w", err)
	}
	log.Debug().Str("venue", "bybit").Str("path", path).Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).Msg("rest call")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("bybit: http %d: %s", resp.StatusCode, string(body))
	}
	return body, nil
}

// sign computes Bybit's HMAC-SHA256 over timestamp+apiKey+recvWindow+payload
// (query string for GET, raw JSON body for POST).
func (a *Adapter) sign(ts, recvWindow, payload string) string {
	mac := hmac.New(sha256.New, []byte(a.cfg.APISecret))
	mac.Write([]byte(ts + a.cfg.APIKey + recvWindow + payload))
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

type bybitWSMessage struct {
	Topic string          `json:"topic"`
	Data  json.RawMessage `json:"data"`
}

type bybitTickerData struct {
	Symbol   string `json:"symbol"`
	Bid1Price string `json:"bid1Price"`
	Bid1Size  string `json:"bid1Size"`
	Ask1Price string `json:"ask1Price"`
	Ask1Size  string `json:"ask1Size"`
}

func (a *Adapter) handleMessage(raw []byte) {
	var msg bybitWSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if !strings.HasPrefix(msg.Topic, "tickers.") {
		return
	}
	var d bybitTickerData
	if err := json.Unmarshal(msg.Data, &d); err != nil {
		return
	}
	symbol, err := core.ParseSymbol(d.Symbol)
	if err != nil {
		return
	}
	tick := core.Tick{
		Symbol:     symbol,
		BestBid:    core.ToPrice(parseFloat(d.Bid1Price)),
		BestBidQty: core.ToQuantity(parseFloat(d.Bid1Size)),
		BestAsk:    core.ToPrice(parseFloat(d.Ask1Price)),
		BestAskQty: core.ToQuantity(parseFloat(d.Ask1Size)),
		LocalTs:    core.NowNS(),
	}

	a.mu.RLock()
	cb := a.cb.OnTick
	a.mu.RUnlock()
	if cb != nil {
		cb(tick)
	}
}

func sideString(s core.Side) string {
	if s == core.Sell {
		return "Sell"
	}
	return "Buy"
}

func orderTypeString(t core.OrderType) string {
	if t == core.OrderTypeMarket {
		return "Market"
	}
	return "Limit"
}

func tifString(t core.TimeInForce) string {
	switch t {
	case core.IOC:
		return "IOC"
	case core.FOK:
		return "FOK"
	case core.PostOnly:
		return "PostOnly"
	default:
		return "GTC"
	}
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
