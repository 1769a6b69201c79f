// Package catapult 实现一次批量生成请求：向后端发起 SSE 流式 POST，
// 按线序消费事件并交给 Sink。一次 catapult 在后端扇出 N 个并发 LLM。
package catapult

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"nodepalette/internal/domain/palette/event"
	applog "nodepalette/internal/platform/log"
)

// Sink 事件消费方。入库策略（代数戳、mode 校验、页签归属）由实现方决定，
// 客户端只负责传输与按序分发。
type Sink interface {
	BatchStart(llmCount int)
	// NodeGenerated 返回节点是否被接受
	NodeGenerated(evt event.StreamEvent) bool
	LLMComplete(evt event.StreamEvent)
	LLMError(evt event.StreamEvent)
	BatchComplete(evt event.StreamEvent)
	StreamError(message string)
}

// Config 客户端配置
type Config struct {
	BaseURL                    string
	ConnectTimeoutSeconds      int
	TLSHandshakeTimeoutSeconds int
}

// Client SSE 流式客户端。不设整体超时：后端随时可以结束流，
// 客户端在 batch_complete 或传输关闭时干净收尾。
type Client struct {
	config Config
	http   *http.Client
	auth   Authenticator
	logger *slog.Logger
}

// New 创建客户端
func New(config Config, auth Authenticator) *Client {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")

	connectTimeout := time.Duration(config.ConnectTimeoutSeconds) * time.Second
	if connectTimeout <= 0 {
		connectTimeout = 30 * time.Second
	}
	tlsHandshakeTimeout := time.Duration(config.TLSHandshakeTimeoutSeconds) * time.Second
	if tlsHandshakeTimeout <= 0 {
		tlsHandshakeTimeout = 30 * time.Second
	}

	// Go 默认 Transport 的 TLS 握手超时为 10s，弱网下容易触发 handshake timeout。
	// 这里改为可配置，并保留通过 ctx 控制请求生命周期。
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   connectTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.TLSHandshakeTimeout = tlsHandshakeTimeout

	if auth == nil {
		auth = NopAuthenticator{}
	}
	return &Client{
		config: config,
		http:   &http.Client{Transport: transport},
		auth:   auth,
		logger: applog.With("component", "catapult"),
	}
}

// Launch 发起一次批量生成并消费整条事件流，返回被接受的节点数。
// ctx 被中止（阶段推进）时不报错：吞掉中止，以已接受的节点数收尾。
func (c *Client) Launch(ctx context.Context, path string, payload *GenerateRequest, sink Sink) (int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	if err := c.auth.Apply(httpReq); err != nil {
		return 0, fmt.Errorf("failed to authenticate request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		if isAbort(err) {
			c.logger.Debug("catapult aborted before response", "path", path)
			return 0, nil
		}
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return 0, fmt.Errorf("backend error (status %d): %s", resp.StatusCode, string(respBody))
	}

	accepted := 0

	// 解析 SSE 流：每帧 `data: <json>`，事件类型在 JSON 内
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		var evt event.StreamEvent
		if err := json.Unmarshal([]byte(data), &evt); err != nil {
			c.logger.Warn("malformed SSE frame dropped", "error", err)
			continue
		}

		switch evt.Type {
		case event.TypeBatchStart:
			sink.BatchStart(evt.LLMCount)
		case event.TypeNodeGenerated:
			if evt.Node == nil {
				c.logger.Warn("node_generated frame without node")
				continue
			}
			if sink.NodeGenerated(evt) {
				accepted++
			}
		case event.TypeLLMComplete:
			sink.LLMComplete(evt)
		case event.TypeLLMError:
			// 单个 LLM 失败不终止批次，其余 LLM 继续
			sink.LLMError(evt)
		case event.TypeBatchComplete:
			sink.BatchComplete(evt)
		case event.TypeError:
			sink.StreamError(evt.Message)
		default:
			c.logger.Debug("unknown SSE event type ignored", "type", evt.Type)
		}
	}

	if err := scanner.Err(); err != nil {
		if isAbort(err) {
			c.logger.Debug("catapult aborted mid-stream", "path", path, "accepted", accepted)
			return accepted, nil
		}
		return accepted, fmt.Errorf("stream read error: %w", err)
	}

	return accepted, nil
}

// Post 一次性 JSON POST（遥测与生命周期上报）。响应体被丢弃。
func (c *Client) Post(ctx context.Context, path string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if err := c.auth.Apply(httpReq); err != nil {
		return fmt.Errorf("failed to authenticate request: %w", err)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend error (status %d)", resp.StatusCode)
	}
	return nil
}

func isAbort(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
