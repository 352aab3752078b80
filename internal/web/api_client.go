// Package web はWeb層（画面配信とエッジ認証）のHTTPハンドラーを提供する。
//
// Web層はログインをAPI層へ中継し、発行されたトークンをHttpOnly Cookieに保存する。
// 以降のAPI呼び出しはCookieのトークンをAuthorizationヘッダーに載せ替えてAPI層へ転送する。
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// maxAPIResponseBytes はAPI層のレスポンスとして読み取る最大サイズ。
const maxAPIResponseBytes = 1 << 20

// ErrUpstream はAPI層に到達できない、または解釈できない応答を返したことを示す。
var ErrUpstream = errors.New("web: api upstream failed")

// LoginReply はAPI層のPOST /users/validateの応答。
type LoginReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Token   string `json:"token"`
	Reset   bool   `json:"reset"`
	// StatusCode はAPI層が返したHTTPステータス。
	StatusCode int `json:"-"`
}

// APIClient はAPI層を呼び出すクライアント。
type APIClient struct {
	httpClient *http.Client
	logger     *slog.Logger
	baseURL    string
}

// NewAPIClient はAPIClientの新しいインスタンスを生成する。
func NewAPIClient(httpClient *http.Client, logger *slog.Logger, baseURL string) *APIClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &APIClient{
		httpClient: httpClient,
		logger:     logger,
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Validate はAPI層に資格情報を送りトークンを受け取る。
// clientIPはブラウザのアドレスで、API層がクライアント単位のレート制限に使えるようX-Forwarded-Forで渡す。
// API層が4xx/5xxを返した場合もLoginReplyを返す（Success=false）。
// 通信失敗や応答がJSONでない場合はErrUpstreamをラップして返す。
func (c *APIClient) Validate(ctx context.Context, clientIP, userName, password string) (*LoginReply, error) {
	payload, err := json.Marshal(map[string]string{
		"user_name": userName,
		"password":  password,
	})
	if err != nil {
		return nil, fmt.Errorf("ログインリクエストのエンコードに失敗しました: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users/validate", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("HTTPリクエストの作成に失敗しました: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if clientIP != "" {
		req.Header.Set("X-Forwarded-For", clientIP)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("API層の呼び出しに失敗しました",
			slog.String("endpoint", "/users/validate"),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: レスポンスボディの読み取りに失敗しました: %v", ErrUpstream, err)
	}

	var reply LoginReply
	if err := json.Unmarshal(body, &reply); err != nil {
		c.logger.Error("API層のレスポンスのパースに失敗しました",
			slog.Int("http_status", resp.StatusCode),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: レスポンスJSONのパースに失敗しました: %v", ErrUpstream, err)
	}
	reply.StatusCode = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		reply.Success = false
		reply.Token = ""
	}
	return &reply, nil
}
