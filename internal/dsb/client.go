package dsb

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"github.com/ttvtimotheus/dsbbutbetter/config"
	"github.com/ttvtimotheus/dsbbutbetter/internal/model"
)

// ── DSBmobile 门户客户端 ──────────────────────────────────
//
// 对接 DSBmobile 移动端 JSON API：
//   - GET /authid          用户名/密码换取 authid（空串 = 凭据无效）
//   - GET /dsbtimetables   课表文档列表（条目带 Childs 子文档）
//   - GET /newstab         新闻列表（课表缺失时的次级来源）
//   - 计划图片为独立主机上的普通 GET，证书链不规范，
//     下载通道按配置跳过 TLS 校验（仅此一条路径）
//
// 门户协议没有显式的"校验凭据"调用，真正的认证检查由上层
// 通过首次列表探测完成。
// ─────────────────────────────────────────────────────────────

// 门户客户端错误
var (
	// ErrInvalidCredentials 门户返回空 authid（用户名或密码错误）
	ErrInvalidCredentials = errors.New("DSBmobile 凭据无效")
)

// StatusError 资源下载返回非 200 状态码
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("HTTP %d", e.Code)
}

// Session 认证会话（值对象，不携带任何发现的计划列表）
type Session struct {
	AuthID string
}

// Client 门户客户端契约
type Client interface {
	// Login 换取 authid；凭据无效与传输失败均返回错误
	Login(ctx context.Context, username, password string) (*Session, error)
	// GetPlans 列出课表文档（主来源）
	GetPlans(ctx context.Context, sess *Session) ([]model.PlanRef, error)
	// GetNews 列出新闻文档（次级来源）
	GetNews(ctx context.Context, sess *Session) ([]model.PlanRef, error)
	// FetchImage 下载计划图片原始字节
	FetchImage(ctx context.Context, imageURL string) ([]byte, error)
}

// HTTPClient 基于 net/http 的 Client 实现
type HTTPClient struct {
	cfg    *config.DSBConfig
	api    *http.Client // API 调用，正常 TLS
	fetch  *http.Client // 图片下载，可按配置跳过证书校验
	sem    *semaphore.Weighted
	logger *zap.Logger
}

// NewHTTPClient 创建门户客户端
// 所有门户往返共享一个加权信号量，并发上限由配置决定
func NewHTTPClient(cfg *config.DSBConfig, logger *zap.Logger) *HTTPClient {
	fetchTransport := http.DefaultTransport
	if cfg.InsecureImageFetch {
		fetchTransport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &HTTPClient{
		cfg:    cfg,
		api:    &http.Client{Timeout: cfg.Timeout},
		fetch:  &http.Client{Timeout: cfg.Timeout, Transport: fetchTransport},
		sem:    semaphore.NewWeighted(cfg.MaxConcurrent),
		logger: logger,
	}
}

// Login 换取 authid
func (c *HTTPClient) Login(ctx context.Context, username, password string) (*Session, error) {
	q := url.Values{}
	q.Set("bundleid", c.cfg.BundleID)
	q.Set("appversion", c.cfg.AppVersion)
	q.Set("osversion", c.cfg.OSVersion)
	q.Set("pushid", "")
	q.Set("user", username)
	q.Set("password", password)

	var authID string
	if err := c.getJSON(ctx, c.cfg.BaseURL+"/authid?"+q.Encode(), &authID); err != nil {
		return nil, fmt.Errorf("authid 请求失败: %w", err)
	}
	if authID == "" {
		return nil, ErrInvalidCredentials
	}

	return &Session{AuthID: authID}, nil
}

// GetPlans 列出课表文档，展开 Childs 为平铺的 PlanRef 列表
func (c *HTTPClient) GetPlans(ctx context.Context, sess *Session) ([]model.PlanRef, error) {
	return c.listDocuments(ctx, "/dsbtimetables", sess)
}

// GetNews 列出新闻文档
func (c *HTTPClient) GetNews(ctx context.Context, sess *Session) ([]model.PlanRef, error) {
	return c.listDocuments(ctx, "/newstab", sess)
}

// documentItem 列表接口的条目（课表与新闻共用此结构）
type documentItem struct {
	ID     json.Number    `json:"Id"`
	Date   string         `json:"Date"`
	Title  string         `json:"Title"`
	Detail string         `json:"Detail"`
	Childs []documentItem `json:"Childs"`
}

func (c *HTTPClient) listDocuments(ctx context.Context, path string, sess *Session) ([]model.PlanRef, error) {
	q := url.Values{}
	q.Set("authid", sess.AuthID)

	var items []documentItem
	if err := c.getJSON(ctx, c.cfg.BaseURL+path+"?"+q.Encode(), &items); err != nil {
		return nil, fmt.Errorf("文档列表请求失败 %s: %w", path, err)
	}

	// 展开：有 Childs 的取子文档，无 Childs 的取条目本身
	var refs []model.PlanRef
	for _, item := range items {
		if len(item.Childs) == 0 {
			if item.Detail != "" {
				refs = append(refs, model.PlanRef{URL: item.Detail, Title: item.Title})
			}
			continue
		}
		for _, child := range item.Childs {
			if child.Detail != "" {
				refs = append(refs, model.PlanRef{URL: child.Detail, Title: child.Title})
			}
		}
	}

	c.logger.Debug("门户文档列表",
		zap.String("path", path),
		zap.Int("count", len(refs)),
	)
	return refs, nil
}

// FetchImage 下载计划图片原始字节
func (c *HTTPClient) FetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer c.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("构造下载请求失败: %w", err)
	}

	resp, err := c.fetch.Do(req)
	if err != nil {
		return nil, fmt.Errorf("下载计划图片失败: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取图片数据失败: %w", err)
	}

	c.logger.Info("计划图片下载完成",
		zap.String("url", imageURL),
		zap.Int("bytes", len(data)),
	)
	return data, nil
}

// getJSON 受信号量与超时约束的 GET + JSON 解码
func (c *HTTPClient) getJSON(ctx context.Context, rawURL string, out interface{}) error {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer c.sem.Release(1)

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.api.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Code: resp.StatusCode}
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
