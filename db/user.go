package db

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/genbit2025/durable-objects-test-v2/clog"
	"github.com/genbit2025/durable-objects-test-v2/metrics"
	"github.com/genbit2025/durable-objects-test-v2/xerrors"
)

// listUsersSQL 响应中附带的全表查询
const listUsersSQL = "SELECT * FROM user"

// MetricBreakerState 熔断器状态 (Gauge)：0 closed, 1 half_open, 2 open
const MetricBreakerState = "db_breaker_state"

// User user 表的一行
type User struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"column:name;size:128" json:"name"`
	Email     string    `gorm:"column:email;size:255" json:"email"`
	CreatedAt time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName 表名固定为 user
func (User) TableName() string {
	return "user"
}

// QueryMeta 查询元信息
type QueryMeta struct {
	// Duration 查询耗时，毫秒
	Duration float64 `json:"duration"`
	RowsRead int     `json:"rows_read"`
}

// Row 查询返回的一行，保留表中的全部列，NULL 列为 nil
type Row = map[string]any

// QueryResult 查询结果，JSON 形状为 {"success":true,"meta":{...},"results":[...]}
type QueryResult struct {
	Success bool      `json:"success"`
	Meta    QueryMeta `json:"meta"`
	Results []Row     `json:"results"`
}

// UserRepository user 表的只读访问
type UserRepository struct {
	db      DB
	breaker *gobreaker.CircuitBreaker[*QueryResult]
	logger  clog.Logger
}

// NewUserRepository 创建用户仓库，查询经过熔断器
func NewUserRepository(database DB, cfg *BreakerConfig, opts ...Option) *UserRepository {
	c := Config{}
	if cfg != nil {
		c.Breaker = *cfg
	}
	c.setDefaults()
	bc := c.Breaker

	o := options{logger: clog.Discard(), meter: metrics.Discard()}
	for _, opt := range opts {
		opt(&o)
	}

	state, err := o.meter.Gauge(MetricBreakerState, "State of the user query circuit breaker")
	if err != nil {
		o.logger.Warn("failed to create metric", clog.String("metric", MetricBreakerState), clog.Error(err))
		state, _ = metrics.Discard().Gauge(MetricBreakerState, "")
	}

	r := &UserRepository{db: database, logger: o.logger}
	r.breaker = gobreaker.NewCircuitBreaker[*QueryResult](gobreaker.Settings{
		Name:        "db.user",
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= bc.ConsecutiveFailures
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			state.Set(context.Background(), float64(to), metrics.L("breaker", name))
			r.logger.Warn("circuit breaker state changed",
				clog.String("breaker", name),
				clog.String("from", from.String()),
				clog.String("to", to.String()),
			)
		},
	})
	return r
}

// ListAll 读取 user 表全部行
func (r *UserRepository) ListAll(ctx context.Context) (*QueryResult, error) {
	result, err := r.breaker.Execute(func() (*QueryResult, error) {
		return r.listAll(ctx)
	})
	if xerrors.Is(err, gobreaker.ErrOpenState) || xerrors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, ErrBreakerOpen
	}
	return result, err
}

func (r *UserRepository) listAll(ctx context.Context) (*QueryResult, error) {
	start := time.Now()
	rows := make([]Row, 0)
	if err := r.db.DB(ctx).Raw(listUsersSQL).Scan(&rows).Error; err != nil {
		return nil, xerrors.Wrap(err, "db: list users")
	}
	return &QueryResult{
		Success: true,
		Meta: QueryMeta{
			Duration: float64(time.Since(start).Microseconds()) / 1000,
			RowsRead: len(rows),
		},
		Results: rows,
	}, nil
}

// isSuccessful 调用方取消或超时不计入熔断失败
func isSuccessful(err error) bool {
	return err == nil ||
		xerrors.Is(err, context.Canceled) ||
		xerrors.Is(err, context.DeadlineExceeded)
}
