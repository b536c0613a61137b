package tlsclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"FingerprintSync/internal/config"
	"FingerprintSync/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// Client 伴生TLS握手采集服务的HTTP客户端。
// 该服务独立进程终结TLS连接并解析ClientHello，本服务只消费其输出，
// 进程生命周期由外部托管，这里不做任何启停管理。
type Client struct {
	http    *http.Client
	baseURL string
	logger  *logrus.Logger
}

// NewClient 创建TLS采集服务客户端（服务使用自签名证书，跳过校验）
func NewClient(cfg *config.TLSCaptureConfig, logger *logrus.Logger) *Client {
	return &Client{
		http:    httpclient.NewHTTPClient(cfg.Timeout, cfg.Proxy, true, logger),
		baseURL: cfg.TLSCaptureLocalURL(),
		logger:  logger,
	}
}

// fingerprintResponse TLS服务 /api/fingerprint 的响应
type fingerprintResponse struct {
	Fingerprint json.RawMessage `json:"fingerprint"`
}

// Fetch 获取当前客户端的TLS握手指纹。
// 前端需先访问TLS服务建立连接，再经由本接口取回指纹。
func (c *Client) Fetch(ctx context.Context) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/fingerprint", nil)
	if err != nil {
		return nil, fmt.Errorf("构造TLS指纹请求失败: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求TLS服务失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("TLS服务返回异常状态: %d", resp.StatusCode)
	}

	var data fingerprintResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, fmt.Errorf("解析TLS指纹响应失败: %w", err)
	}
	return data.Fingerprint, nil
}

// Probe 探测TLS服务是否在线
func (c *Client) Probe(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/fingerprint", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.WithError(err).Debug("TLS服务探测失败")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
