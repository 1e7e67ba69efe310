// Package bootstrap 按配置组装连接器、存储、锁对象、数据库与 HTTP 入口，
// 并负责它们的启动与逆序关闭。
package bootstrap

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/config"
	"github.com/genbit2025/durable-objects-test-v2/connector"
	"github.com/genbit2025/durable-objects-test-v2/db"
	"github.com/genbit2025/durable-objects-test-v2/dlock"
	"github.com/genbit2025/durable-objects-test-v2/internal/gateway"
	"github.com/genbit2025/durable-objects-test-v2/lockobject"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
	"github.com/genbit2025/durable-objects-test-v2/storage"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
)

// levelKey 支持热更新的日志级别配置项
const levelKey = "clog.level"

// Shutdown 释放一个资源
type Shutdown func(context.Context) error

// App 组装完成的应用
type App struct {
	Config  *AppConfig
	Logger  clog.Logger
	Meter   metrics.Meter
	Handler *gateway.Handler

	connectors map[string]connector.Connector
	shutdowns  []Shutdown
}

// New 按 cfg 组装应用。失败时已创建的资源会被释放。
func New(ctx context.Context, cfg *AppConfig) (_ *App, err error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.Server.SetDefaults()

	logger, err := clog.New(&cfg.Clog, clog.WithNamespace(ServiceName))
	if err != nil {
		return nil, xerrors.Wrap(err, "init logger")
	}

	meter, err := metrics.New(&cfg.Metrics)
	if err != nil {
		return nil, xerrors.Wrap(err, "init metrics")
	}

	app := &App{
		Config:     cfg,
		Logger:     logger,
		Meter:      meter,
		connectors: make(map[string]connector.Connector),
	}
	app.onClose(meter.Shutdown)

	defer func() {
		if err != nil {
			_ = app.Close(context.WithoutCancel(ctx))
		}
	}()

	if cfg.loader != nil {
		if err := app.watchLevel(ctx, cfg.loader); err != nil {
			return nil, err
		}
	}

	backend, err := app.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	gormConn, err := app.gormConnector(ctx, cfg.DB.Driver)
	if err != nil {
		return nil, err
	}
	database, err := db.New(ctx, gormConn, &cfg.DB, db.WithLogger(logger), db.WithMeter(meter))
	if err != nil {
		return nil, xerrors.Wrap(err, "init db")
	}
	app.onClose(func(context.Context) error { return database.Close() })
	users := db.NewUserRepository(database, &cfg.DB.Breaker, db.WithLogger(logger), db.WithMeter(meter))

	client, err := lockobject.NewClient(backend, &cfg.Object,
		lockobject.WithLogger(logger),
		lockobject.WithMeter(meter),
		lockobject.WithGreeter(database),
		lockobject.WithSerializer(cfg.Storage.Serializer),
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "init lock objects")
	}
	app.onClose(client.Close)

	locker, err := dlock.New(client, &cfg.Lock, dlock.WithLogger(logger), dlock.WithMeter(meter))
	if err != nil {
		return nil, xerrors.Wrap(err, "init locker")
	}

	checks := make([]connector.Connector, 0, len(app.connectors))
	for _, conn := range app.connectors {
		checks = append(checks, conn)
	}
	app.Handler, err = gateway.New(&cfg.Server, locker, client, users,
		gateway.WithLogger(logger),
		gateway.WithMeter(meter),
		gateway.WithHealthChecks(checks...),
	)
	if err != nil {
		return nil, xerrors.Wrap(err, "init gateway")
	}

	logger.InfoContext(ctx, "application assembled",
		clog.String("storage", cfg.Storage.Driver),
		clog.String("db", cfg.DB.Driver),
		clog.Duration("retry_interval", cfg.Lock.RetryInterval),
	)
	return app, nil
}

// Run 启动 HTTP 服务，ctx 取消后优雅关闭
func (a *App) Run(ctx context.Context) error {
	srv := a.Handler.NewServer()
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		a.Logger.InfoContext(gctx, "http server listening", clog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return xerrors.Wrap(err, "http server")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
		defer cancel()
		a.Logger.InfoContext(shutdownCtx, "http server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close 按创建的逆序释放资源
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.shutdowns) - 1; i >= 0; i-- {
		if err := a.shutdowns[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.shutdowns = nil
	return xerrors.Combine(errs...)
}

func (a *App) onClose(fn Shutdown) {
	a.shutdowns = append(a.shutdowns, fn)
}

// watchLevel 订阅 clog.level 的变更并调整日志级别，Close 时停止
func (a *App) watchLevel(ctx context.Context, loader config.Loader) error {
	watchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	events, err := loader.Watch(watchCtx, levelKey)
	if err != nil {
		cancel()
		return xerrors.Wrap(err, "watch log level")
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for event := range events {
			a.applyLevel(watchCtx, event)
		}
	}()

	a.onClose(func(context.Context) error {
		cancel()
		<-done
		return nil
	})
	return nil
}

func (a *App) applyLevel(ctx context.Context, event config.Event) {
	value, _ := event.Value.(string)
	level, err := clog.ParseLevel(value)
	if err != nil {
		a.Logger.WarnContext(ctx, "ignoring invalid log level",
			clog.Any("value", event.Value),
			clog.Error(err),
		)
		return
	}
	if err := a.Logger.SetLevel(level); err != nil {
		a.Logger.WarnContext(ctx, "failed to change log level", clog.Error(err))
		return
	}
	a.Logger.InfoContext(ctx, "log level changed",
		clog.Any("from", event.OldValue),
		clog.String("to", value),
	)
}

// openStorage 按 storage.driver 打开存储后端
func (a *App) openStorage(ctx context.Context) (storage.Backend, error) {
	opts := []storage.Option{storage.WithLogger(a.Logger)}

	switch driver := strings.ToLower(a.Config.Storage.Driver); driver {
	case storage.DriverRedis:
		conn, err := a.redisConnector(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, storage.WithRedisConnector(conn))
	case storage.DriverSQLite, storage.DriverMySQL:
		conn, err := a.gormConnector(ctx, driver)
		if err != nil {
			return nil, err
		}
		opts = append(opts, storage.WithGormConnector(conn))
	case storage.DriverEtcd:
		conn, err := a.etcdConnector(ctx)
		if err != nil {
			return nil, err
		}
		opts = append(opts, storage.WithEtcdConnector(conn))
	}

	backend, err := storage.Open(ctx, &a.Config.Storage, opts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "open storage")
	}
	a.onClose(func(context.Context) error { return backend.Close() })
	return backend, nil
}

func (a *App) connectorOptions() []connector.Option {
	return []connector.Option{connector.WithLogger(a.Logger), connector.WithMeter(a.Meter)}
}

// connect 连接并登记连接器，同一驱动只创建一次
func (a *App) connect(ctx context.Context, driver string, conn connector.Connector) error {
	if err := conn.Connect(ctx); err != nil {
		_ = conn.Close()
		return xerrors.Wrapf(err, "connect %s", driver)
	}
	a.connectors[driver] = conn
	a.onClose(func(context.Context) error { return conn.Close() })
	return nil
}

func (a *App) redisConnector(ctx context.Context) (connector.RedisConnector, error) {
	if c, ok := a.connectors[storage.DriverRedis]; ok {
		return c.(connector.RedisConnector), nil
	}
	conn, err := connector.NewRedis(&a.Config.Redis, a.connectorOptions()...)
	if err != nil {
		return nil, err
	}
	if err := a.connect(ctx, storage.DriverRedis, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

func (a *App) etcdConnector(ctx context.Context) (connector.EtcdConnector, error) {
	if c, ok := a.connectors[storage.DriverEtcd]; ok {
		return c.(connector.EtcdConnector), nil
	}
	conn, err := connector.NewEtcd(&a.Config.Etcd, a.connectorOptions()...)
	if err != nil {
		return nil, err
	}
	if err := a.connect(ctx, storage.DriverEtcd, conn); err != nil {
		return nil, err
	}
	return conn, nil
}

// gormConnector 存储与数据库使用同一驱动时共享连接
func (a *App) gormConnector(ctx context.Context, driver string) (connector.TypedConnector[*gorm.DB], error) {
	driver = strings.ToLower(driver)
	if driver == "" {
		driver = storage.DriverSQLite
	}
	if c, ok := a.connectors[driver]; ok {
		return c.(connector.TypedConnector[*gorm.DB]), nil
	}

	var (
		conn connector.TypedConnector[*gorm.DB]
		err  error
	)
	switch driver {
	case storage.DriverSQLite:
		conn, err = connector.NewSQLite(&a.Config.SQLite, a.connectorOptions()...)
	case storage.DriverMySQL:
		conn, err = connector.NewMySQL(&a.Config.MySQL, a.connectorOptions()...)
	default:
		return nil, xerrors.Wrapf(xerrors.ErrInvalidInput, "unsupported db driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := a.connect(ctx, driver, conn); err != nil {
		return nil, err
	}
	return conn, nil
}
