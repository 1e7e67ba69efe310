// Package gateway 是锁服务的 HTTP 入口。
//
// GET /?userId=A 会在 A 对应的锁对象上循环加锁，持锁执行一段模拟业务后解锁，
// 再查询 user 表，把加锁结果、时间和查询结果拼成纯文本返回。
package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/db"
	"github.com/genbit2025/durable-objects-test-v2/dlock"
	"github.com/genbit2025/durable-objects-test-v2/lockobject"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
)

// UsageText 缺少 userId 时的提示
const UsageText = "Select a Durable Object to contact by using the `userId` URL query string parameter, for example, ?userId=A"

const (
	queryUserID = "userId"
	queryAmount = "amount"

	textUnavailable = "Service Unavailable"
	textInternal    = "Internal Server Error"

	// codeInternal 未带错误码的故障
	codeInternal = "INTERNAL"
)

// LockObjects 锁对象的演示方法
type LockObjects interface {
	SayHello(ctx context.Context, name string) (string, error)
	Increment(ctx context.Context, name string, amount int64) (int64, error)
	RunBiz(ctx context.Context, key string, work func(ctx context.Context) error) (lockobject.Grant, error)
}

// UserQuery 读取 user 表
type UserQuery interface {
	ListAll(ctx context.Context) (*db.QueryResult, error)
}

// Handler 持有请求处理所需的依赖
type Handler struct {
	cfg     Config
	locker  dlock.Locker
	objects LockObjects
	users   UserQuery
	logger  clog.Logger
	meter   metrics.Meter
	http    *metrics.HTTPServerMetrics
	checks  []checkTarget
}

// New 创建 Handler
func New(cfg *Config, locker dlock.Locker, objects LockObjects, users UserQuery, opts ...Option) (*Handler, error) {
	if locker == nil || objects == nil || users == nil {
		return nil, xerrors.Wrap(xerrors.ErrInvalidInput, "gateway: locker, objects and users are required")
	}
	c := Config{}
	if cfg != nil {
		c = *cfg
	}
	c.SetDefaults()

	o := &options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(o)
	}

	httpMetrics, err := metrics.NewHTTPServerMetrics(o.meter, "gateway")
	if err != nil {
		return nil, xerrors.Wrap(err, "gateway: http metrics")
	}

	checks := make([]checkTarget, 0, len(o.checks))
	for _, conn := range o.checks {
		checks = append(checks, conn)
	}

	return &Handler{
		cfg:     c,
		locker:  locker,
		objects: objects,
		users:   users,
		logger:  o.logger,
		meter:   o.meter,
		http:    httpMetrics,
		checks:  checks,
	}, nil
}

// Router 构建 gin 路由
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(metrics.GinHTTPMiddleware(h.http))

	r.GET("/", h.lockAndQuery)

	demo := r.Group("/demo")
	demo.GET("/hello", h.sayHello)
	demo.POST("/increment", h.increment)
	demo.POST("/biz", h.runBiz)

	r.GET("/healthz", h.healthz)
	r.GET("/metrics", gin.WrapH(h.meter.Handler()))
	return r
}

// NewServer 以 Handler 的路由构建 http.Server
func (h *Handler) NewServer() *http.Server {
	return &http.Server{
		Addr:              h.cfg.Addr,
		Handler:           h.Router(),
		ReadHeaderTimeout: h.cfg.ReadHeaderTimeout,
	}
}

// lockAndQuery 加锁、模拟业务、解锁，然后附带 user 表数据返回
func (h *Handler) lockAndQuery(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	grant, err := h.locker.WithLock(ctx, userID, func(ctx context.Context) error {
		return sleep(ctx, h.cfg.WorkDuration)
	})
	if err != nil {
		h.fail(c, "lock failed", userID, err)
		return
	}

	result, err := h.users.ListAll(ctx)
	if err != nil {
		h.fail(c, "user query failed", userID, err)
		return
	}
	data, err := json.Marshal(result)
	if err != nil {
		h.fail(c, "encode query result failed", userID, err)
		return
	}

	h.logger.InfoContext(ctx, "request served",
		clog.String("user_id", userID),
		clog.Bool("granted", grant.Granted),
		clog.Int("rows", result.Meta.RowsRead),
	)
	c.String(http.StatusOK, "Durable Object 加锁标识: %t  时间=%s，数据=%s", grant.Granted, grant.Timestamp(), data)
}

func (h *Handler) sayHello(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	greeting, err := h.objects.SayHello(c.Request.Context(), userID)
	if err != nil {
		h.fail(c, "say hello failed", userID, err)
		return
	}
	c.String(http.StatusOK, "%s", greeting)
}

func (h *Handler) increment(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	amount := int64(1)
	if raw := c.Query(queryAmount); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.String(http.StatusBadRequest, "invalid amount: %q", raw)
			return
		}
		amount = v
	}

	value, err := h.objects.Increment(c.Request.Context(), userID, amount)
	if err != nil {
		h.fail(c, "increment failed", userID, err)
		return
	}
	c.String(http.StatusOK, "%d", value)
}

func (h *Handler) runBiz(c *gin.Context) {
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	grant, err := h.objects.RunBiz(c.Request.Context(), userID, nil)
	if err != nil {
		h.fail(c, "run biz failed", userID, err)
		return
	}
	c.String(http.StatusOK, "Durable Object 加锁标识: %t  时间=%s", grant.Granted, grant.Timestamp())
}

// requireUserID 缺少 userId 时直接写出提示
func requireUserID(c *gin.Context) (string, bool) {
	userID := c.Query(queryUserID)
	if userID == "" {
		c.String(http.StatusOK, UsageText)
		return "", false
	}
	return userID, true
}

// fail 加锁超时返回 503，其他错误返回 500，细节与错误码只写日志
func (h *Handler) fail(c *gin.Context, msg, userID string, err error) {
	code := xerrors.GetCode(err)
	if code == "" {
		code = codeInternal
	}

	status, text := http.StatusInternalServerError, textInternal
	if code == dlock.CodeAcquireTimeout {
		status, text = http.StatusServiceUnavailable, textUnavailable
	}

	h.logger.ErrorContext(c.Request.Context(), msg,
		clog.String("user_id", userID),
		clog.Int("status", status),
		clog.ErrorWithCode(err, code),
	)
	c.String(status, "%s", text)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

