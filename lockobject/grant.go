package lockobject

import "time"

// TimestampLayout ISO-8601 UTC，毫秒精度
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Grant 一次 Acquire 的结果
type Grant struct {
	Granted bool
	At      time.Time
}

// Timestamp 以 TimestampLayout 格式返回 At
func (g Grant) Timestamp() string {
	return g.At.UTC().Format(TimestampLayout)
}
