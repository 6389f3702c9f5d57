// Package okx implements exchange.Adapter against OKX's public WebSocket
// feed and signed REST trading endpoints.
package okx

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/core"
	"github.com/pranay123-stack/crypto-hft-market-making-trading-profitable-system/internal/exchange"
)

// Config holds OKX credentials and endpoint selection.
type Config struct {
	APIKey     string
	APISecret  string
	Passphrase string
	Demo       bool
}

const (
	restURL = "https://www.okx.com"
	wsURL   = "wss://ws.okx.com:8443/ws/v5/public"
)

// Adapter implements exchange.Adapter for OKX.
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

// NewAdapter builds an OKX adapter.
func NewAdapter(cfg Config) *Adapter {
	return &Adapter{
		cfg:     cfg,
		http:    &http.Client{Timeout: 10 * time.Second},
		breaker: exchange.NewBreaker("okx"),
		limiter: exchange.NewRESTLimiter(6, 10),
	}
}

func (a *Adapter) Venue() core.Venue { return core.VenueOKX }

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
	resp, err := a.http.Get(restURL + "/api/v5/public/time")
	if err == nil {
		resp.Body.Close()
	}
	latency := time.Since(start)

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second
	conn, _, err := dialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("okx: dial ws: %w", err)
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

	log.Info().Str("venue", "okx").Dur("latency", latency).Msg("connected")
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

// okxInstID renders a Symbol in OKX's dash-separated instrument ID form.
func okxInstID(s core.Symbol) string { return s.Base + "-" + s.Quote }

func (a *Adapter) SubscribeTicker(ctx context.Context, symbol core.Symbol) error {
	return a.sendSubscribe("tickers", symbol)
}

func (a *Adapter) SubscribeOrderbook(ctx context.Context, symbol core.Symbol, depth int) error {
	channel := "books5"
	if depth > 5 {
		channel = "books"
	}
	return a.sendSubscribe(channel, symbol)
}

func (a *Adapter) sendSubscribe(channel string, symbol core.Symbol) error {
	a.mu.RLock()
	conn := a.conn
	a.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("okx: not connected")
	}
	msg := map[string]interface{}{
		"op": "subscribe",
		"args": []map[string]string{
			{"channel": channel, "instId": okxInstID(symbol)},
		},
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return conn.WriteJSON(msg)
}

// SendOrder signs and submits a new order via OKX's trade/order endpoint.
func (a *Adapter) SendOrder(ctx context.Context, req exchange.OrderRequest) (exchange.OrderResponse, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return exchange.OrderResponse{}, err
	}

	clientOrderID := req.ClientOrderID
	if clientOrderID == "" {
		clientOrderID = strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	body := map[string]interface{}{
		"instId":  okxInstID(req.Symbol),
		"tdMode":  "cash",
		"side":    strings.ToLower(req.Side.String()),
		"ordType": orderTypeString(req.OrderType, req.TimeInForce),
		"px":      strconv.FormatFloat(core.FromPrice(req.Price), 'f', 8, 64),
		"sz":      strconv.FormatFloat(core.FromQuantity(req.Quantity), 'f', 8, 64),
		"clOrdId": clientOrderID,
	}

	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.postSigned("/api/v5/trade/order", body)
	})
	if err != nil {
		return exchange.OrderResponse{Success: false, ClientOrderID: clientOrderID, ErrorMessage: err.Error()}, nil
	}

	var parsed okxEnvelope
	if err := json.Unmarshal(result.([]byte), &parsed); err != nil {
		return exchange.OrderResponse{Success: false, ClientOrderID: clientOrderID, ErrorMessage: "malformed response"}, nil
	}
	if parsed.Code != "0" || len(parsed.Data) == 0 {
		return exchange.OrderResponse{Success: false, ClientOrderID: clientOrderID, ErrorMessage: parsed.Msg}, nil
	}
	return exchange.OrderResponse{Success: true, VenueOrderID: parsed.Data[0].OrdID, ClientOrderID: clientOrderID}, nil
}

func (a *Adapter) CancelOrder(ctx context.Context, symbol core.Symbol, venueOrderID string) (bool, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return false, err
	}
	body := map[string]interface{}{
		"instId": okxInstID(symbol),
		"ordId":  venueOrderID,
	}
	_, err := a.breaker.Execute(func() (interface{}, error) {
		return a.postSigned("/api/v5/trade/cancel-order", body)
	})
	return err == nil, nil
}

func (a *Adapter) CancelAllOrders(ctx context.Context, symbol core.Symbol) (int, error) {
	open, err := a.OpenOrders(ctx, symbol)
	if err != nil {
		return 0, err
	}
	cancelled := 0
	for _, o := range open {
		ok, _ := a.CancelOrder(ctx, symbol, o.VenueOrderID)
		if ok {
			cancelled++
		}
	}
	return cancelled, nil
}

func (a *Adapter) OpenOrders(ctx context.Context, symbol core.Symbol) ([]core.Order, error) {
	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	path := fmt.Sprintf("/api/v5/trade/orders-pending?instId=%s", okxInstID(symbol))
	result, err := a.breaker.Execute(func() (interface{}, error) {
		return a.getSigned(path)
	})
	if err != nil {
		return nil, err
	}

	var parsed struct {
		Data []okxOrder `json:"data"`
	}
	if err := json.Unmarshal(result.([]byte), &parsed); err != nil {
		return nil, fmt.Errorf("okx: parse open orders: %w", err)
	}
	out := make([]core.Order, 0, len(parsed.Data))
	for _, o := range parsed.Data {
		out = append(out, o.toCoreOrder(symbol))
	}
	return out, nil
}

type okxEnvelope struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
	Data []struct {
		OrdID string `json:"ordId"`
	} `json:"data"`
}

type okxOrder struct {
	OrdID     string `json:"ordId"`
	ClOrdID   string `json:"clOrdId"`
	Side      string `json:"side"`
	Px        string `json:"px"`
	Sz        string `json:"sz"`
	AccFillSz string `json:"accFillSz"`
	State     string `json:"state"`
	UTime     string `json:"uTime"`
}

func (o okxOrder) toCoreOrder(symbol core.Symbol) core.Order {
	side := core.Buy
	if o.Side == "sell" {
		side = core.Sell
	}
	status := core.OrderStatusNew
	switch o.State {
	case "filled":
		status = core.OrderStatusFilled
	case "partially_filled":
		status = core.OrderStatusPartiallyFilled
	case "canceled":
		status = core.OrderStatusCanceled
	}
	utime, _ := strconv.ParseInt(o.UTime, 10, 64)
	return core.Order{
		ClientID:     o.ClOrdID,
		VenueOrderID: o.OrdID,
		Venue:        core.VenueOKX,
		Symbol:       symbol,
		Side:         side,
		Price:        core.ToPrice(parseFloat(o.Px)),
		Quantity:     core.ToQuantity(parseFloat(o.Sz)),
		FilledQty:    core.ToQuantity(parseFloat(o.AccFillSz)),
		Status:       status,
		UpdateTs:     core.Timestamp(utime * 1_000_000),
	}
}

func (a *Adapter) postSigned(path string, body map[string]interface{}) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return a.doSigned(http.MethodPost, path, payload)
}

func (a *Adapter) getSigned(path string) ([]byte, error) {
	return a.doSigned(http.MethodGet, path, nil)
}

func (a *Adapter) doSigned(method, path string, payload []byte) ([]byte, error) {
	ts := time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
	signature := a.sign(ts, method, path, payload)

	req, err := http.NewRequest(method, restURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("OK-ACCESS-KEY", a.cfg.APIKey)
	req.Header.Set("OK-ACCESS-SIGN", signature)
	req.Header.Set("OK-ACCESS-TIMESTAMP", ts)
	req.Header.Set("OK-ACCESS-PASSPHRASE", a.cfg.Passphrase)
	if a.cfg.Demo {
		req.Header.Set("x-simulated-trading", "1")
	}

	start := time.Now()
	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("okx: request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("okx: read body: %w", err)
	}
	log.Debug().Str("venue", "okx").Str("path", path).Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).Msg("rest call")

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("okx: http %d: %s", resp.StatusCode, string(respBody))
	}
	return respBody, nil
}

// sign computes OKX's base64(HMAC-SHA256(timestamp+method+path+body)).
func (a *Adapter) sign(ts, method, path string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(a.cfg.APISecret))
	mac.Write([]byte(ts + method + path + string(body)))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
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

type okxWSMessage struct {
	Arg struct {
		Channel string `json:"channel"`
		InstID  string `json:"instId"`
	} `json:"arg"`
	Data []okxTickerData `json:"data"`
}

type okxTickerData struct {
	BidPx string `json:"bidPx"`
	BidSz string `json:"bidSz"`
	AskPx string `json:"askPx"`
	AskSz string `json:"askSz"`
}

func (a *Adapter) handleMessage(raw []byte) {
	var msg okxWSMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return
	}
	if msg.Arg.Channel != "tickers" && msg.Arg.Channel != "books5" && msg.Arg.Channel != "books" {
		return
	}
	if len(msg.Data) == 0 {
		return
	}
	symbol, err := instIDToSymbol(msg.Arg.InstID)
	if err != nil {
		return
	}
	d := msg.Data[0]
	tick := core.Tick{
		Symbol:     symbol,
		BestBid:    core.ToPrice(parseFloat(d.BidPx)),
		BestBidQty: core.ToQuantity(parseFloat(d.BidSz)),
		BestAsk:    core.ToPrice(parseFloat(d.AskPx)),
		BestAskQty: core.ToQuantity(parseFloat(d.AskSz)),
		LocalTs:    core.NowNS(),
	}

	a.mu.RLock()
	cb := a.cb.OnTick
	a.mu.RUnlock()
	if cb != nil {
		cb(tick)
	}
}

func instIDToSymbol(instID string) (core.Symbol, error) {
	parts := strings.SplitN(instID, "-", 2)
	if len(parts) != 2 {
		return core.Symbol{}, fmt.Errorf("okx: malformed instId %q", instID)
	}
	return core.Symbol{Base: parts[0], Quote: parts[1]}, nil
}

func orderTypeString(t core.OrderType, tif core.TimeInForce) string {
	if t == core.OrderTypeMarket {
		return "market"
	}
	if t == core.OrderTypeLimitMaker {
		return "post_only"
	}
	if tif == core.IOC {
		return "ioc"
	}
	if tif == core.FOK {
		return "fok"
	}
	return "limit"
}

func parseFloat(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
