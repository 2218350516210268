package callable

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-resty/resty/v2"
)

// HTTPPathPrefix POST {prefix}/:name，body {"data": {...}}
const HTTPPathPrefix = "/callable"

type httpRequest struct {
	Data map[string]any `json:"data"`
}

type httpResponse struct {
	Result any    `json:"result,omitempty"`
	Error  *Error `json:"error,omitempty"`
}

// MountHTTP 在 gin 路由组上挂载 callable 入口
func MountHTTP(r gin.IRoutes, reg *Registry) {
	r.POST(HTTPPathPrefix+"/:name", HTTPHandler(reg))
}

func HTTPHandler(reg *Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req httpRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				e := NewError(StatusInvalidArgument, "invalid request body: %v", err)
				c.AbortWithStatusJSON(e.HTTPStatus(), httpResponse{Error: e})
				return
			}
		}
		ctx := c.Request.Context()
		if id := c.GetString(ginRequestIDKey); id != "" {
			ctx = WithRequestID(ctx, id)
		} else if id := c.GetHeader(HeaderRequestID); id != "" {
			ctx = WithRequestID(ctx, id)
		}

		res, err := reg.Call(ctx, c.Param("name"), req.Data)
		if err != nil {
			e := FromError(err)
			c.JSON(e.HTTPStatus(), httpResponse{Error: e})
			return
		}
		c.JSON(http.StatusOK, httpResponse{Result: res})
	}
}

// ginRequestIDKey 与 middleware.RequestID 写入 gin.Context 的 key 一致
const ginRequestIDKey = "request_id"

type HTTPConfig struct {
	BaseURL string        `yaml:"baseURL" mapstructure:"baseURL"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Token   string        `yaml:"token" mapstructure:"token"`
}

type HTTPClient struct {
	rc *resty.Client
}

func NewHTTPClient(cfg HTTPConfig) *HTTPClient {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json")
	if cfg.Token != "" {
		rc.SetAuthToken(cfg.Token)
	}
	return &HTTPClient{rc: rc}
}

// NewHTTPClientWith 复用调用方的 resty 客户端（测试中指向 httptest.Server）
func NewHTTPClientWith(rc *resty.Client) *HTTPClient {
	return &HTTPClient{rc: rc}
}

func (c *HTTPClient) Call(ctx context.Context, name string, payload map[string]any) (any, error) {
	var (
		ok  httpResponse
		bad httpResponse
	)
	req := c.rc.R().
		SetContext(ctx).
		SetBody(httpRequest{Data: payload}).
		SetResult(&ok).
		SetError(&bad)
	if id := RequestIDFromContext(ctx); id != "" {
		req.SetHeader(HeaderRequestID, id)
	}

	resp, err := req.Post(HTTPPathPrefix + "/" + url.PathEscape(name))
	if err != nil {
		return nil, FromError(err)
	}
	if resp.IsError() {
		if bad.Error != nil && bad.Error.Status != "" {
			return nil, bad.Error
		}
		msg := strings.TrimSpace(resp.String())
		if msg == "" {
			msg = resp.Status()
		}
		return nil, NewError(StatusFromHTTP(resp.StatusCode()), "%s", msg)
	}
	return ok.Result, nil
}
