package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"sentiment-algo-trader/internal/model"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// streamMessage Alpaca 实时新闻推送的单条消息，T 为消息类型
type streamMessage struct {
	T         string    `json:"T"`
	Msg       string    `json:"msg"`
	Code      int       `json:"code"`
	ID        int64     `json:"id"`
	Headline  string    `json:"headline"`
	CreatedAt time.Time `json:"created_at"`
	Symbols   []string  `json:"symbols"`
}

type streamedHeadline struct {
	ID        int64
	Headline  string
	CreatedAt time.Time
	Symbols   []string
}

// NewsStreamConfig 实时新闻连接参数
type NewsStreamConfig struct {
	URL            string
	APIKey         string
	APISecret      string
	Symbols        []string
	MaxBuffered    int
	ReconnectDelay time.Duration
}

// NewsStream 订阅 Alpaca 实时新闻并缓存最近的标题，实现 NewsProvider。
// 适合 tick 周期较短、不希望每次都走 REST 查询的场景。
type NewsStream struct {
	cfg    NewsStreamConfig
	dialer *websocket.Dialer
	logger *zap.Logger

	mu     sync.RWMutex
	buffer []streamedHeadline
	seen   map[int64]struct{}
	conn   *websocket.Conn

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewNewsStream(cfg NewsStreamConfig, logger *zap.Logger) *NewsStream {
	if cfg.MaxBuffered <= 0 {
		cfg.MaxBuffered = 500
	}
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = 5 * time.Second
	}

	logger = logger.With(zap.String("component", "news_stream"))
	logger.Info("News stream initialized", zap.Strings("Symbols", cfg.Symbols))

	return &NewsStream{
		cfg:    cfg,
		dialer: websocket.DefaultDialer,
		logger: logger,
		seen:   make(map[int64]struct{}),
		done:   make(chan struct{}),
	}
}

// Start 在后台维持连接，断线后等待 ReconnectDelay 重连，直到 ctx 结束或 Close
func (s *NewsStream) Start(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			err := s.connectAndRead(ctx)
			if s.stopped(ctx) {
				return
			}
			s.logger.Error("News stream disconnected, attempting to reconnect...",
				zap.Error(err),
				zap.Duration("Delay", s.cfg.ReconnectDelay))

			select {
			case <-ctx.Done():
				return
			case <-s.done:
				return
			case <-time.After(s.cfg.ReconnectDelay):
			}
		}
	}()
}

func (s *NewsStream) stopped(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return true
	case <-s.done:
		return true
	default:
		return false
	}
}

func (s *NewsStream) connectAndRead(ctx context.Context) error {
	s.logger.Info("Connecting to news stream...", zap.String("URL", s.cfg.URL))

	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("dial news stream: %w", err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		conn.Close()
	}()

	// ctx 结束或 Close 时关闭连接，让阻塞中的 ReadMessage 返回
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-s.done:
			conn.Close()
		case <-stop:
		}
	}()

	auth := map[string]string{"action": "auth", "key": s.cfg.APIKey, "secret": s.cfg.APISecret}
	if err := conn.WriteJSON(auth); err != nil {
		return fmt.Errorf("send auth: %w", err)
	}
	subscribe := map[string]any{"action": "subscribe", "news": s.cfg.Symbols}
	if err := conn.WriteJSON(subscribe); err != nil {
		return fmt.Errorf("send subscription: %w", err)
	}
	s.logger.Info("Subscribed to news stream", zap.Strings("Symbols", s.cfg.Symbols))

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read news stream: %w", err)
		}
		if err := s.handleMessage(message); err != nil {
			return err
		}
	}
}

// handleMessage 解析一帧推送。返回错误表示需要断开重连 (鉴权失败等)
func (s *NewsStream) handleMessage(message []byte) error {
	var msgs []streamMessage
	if err := json.Unmarshal(message, &msgs); err != nil {
		s.logger.Debug("Ignoring malformed news frame", zap.Error(err))
		return nil
	}

	for _, m := range msgs {
		switch m.T {
		case "n":
			s.add(m)
		case "success", "subscription":
			s.logger.Debug("News stream control message", zap.String("Type", m.T), zap.String("Msg", m.Msg))
		case "error":
			s.logger.Error("News stream error", zap.Int("Code", m.Code), zap.String("Msg", m.Msg))
			return fmt.Errorf("news stream error %d: %s", m.Code, m.Msg)
		}
	}
	return nil
}

func (s *NewsStream) add(m streamMessage) {
	headline := strings.TrimSpace(m.Headline)
	if headline == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID != 0 {
		if _, dup := s.seen[m.ID]; dup {
			return
		}
		s.seen[m.ID] = struct{}{}
	}

	s.buffer = append(s.buffer, streamedHeadline{
		ID:        m.ID,
		Headline:  headline,
		CreatedAt: m.CreatedAt,
		Symbols:   m.Symbols,
	})
	if over := len(s.buffer) - s.cfg.MaxBuffered; over > 0 {
		for _, old := range s.buffer[:over] {
			delete(s.seen, old.ID)
		}
		s.buffer = slices.Clone(s.buffer[over:])
	}
}

// GetHeadlines 从缓存中筛选 [start, end] 内提到 symbol 的标题
func (s *NewsStream) GetHeadlines(ctx context.Context, symbol string, start, end time.Time) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrSentimentUnavailable, err)
	}
	select {
	case <-s.done:
		return nil, fmt.Errorf("%w: %w", model.ErrSentimentUnavailable, errStreamClosed)
	default:
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var headlines []string
	for _, h := range s.buffer {
		if h.CreatedAt.Before(start) || h.CreatedAt.After(end) {
			continue
		}
		if !slices.Contains(h.Symbols, symbol) {
			continue
		}
		headlines = append(headlines, h.Headline)
	}
	return headlines, nil
}

var errStreamClosed = errors.New("news stream closed")

// Close 停止后台连接并等待其退出
func (s *NewsStream) Close() error {
	s.closeOnce.Do(func() {
		close(s.done)
		s.mu.Lock()
		if s.conn != nil {
			s.conn.Close()
		}
		s.mu.Unlock()
	})
	s.wg.Wait()
	s.logger.Info("News stream closed")
	return nil
}
