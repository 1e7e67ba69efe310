package metrics

// Label 指标标签
//
// 标签值应相对稳定，避免用户 ID、锁 key 这类高基数取值。
type Label struct {
	Key   string
	Value string
}

// L 便捷构造函数
//
//	counter.Inc(ctx, metrics.L("method", "GET"))
func L(key, value string) Label {
	return Label{Key: key, Value: value}
}

// 通用标签键
const (
	LabelService     = "service"
	LabelOperation   = "operation"
	LabelOutcome     = "outcome"
	LabelMethod      = "method"
	LabelRoute       = "route"
	LabelStatusClass = "status_class"
)

// 通用标签值
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"

	OperationHTTPServer = "http_server"
	UnknownRoute        = "unknown"
)
