package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"
)

// Duration 可从 JSON 解析的时长
//
// JSON 中可以写成 time.ParseDuration 能识别的字符串（"500ms"、"5m"），
// 也可以写成整数毫秒，与引擎计时器的单位一致：
//
//	{"ping_interval": "500ms", "timeout_maximum": 30000}
//
// 序列化时总是输出字符串。
type Duration time.Duration

var errDurationType = errors.New("duration must be a string like \"500ms\" or integer milliseconds")

// UnmarshalJSON 实现 json.Unmarshaler
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch v := v.(type) {
	case string:
		parsed, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", v, err)
		}
		*d = Duration(parsed)
	case float64:
		if v != math.Trunc(v) || v < 0 || v > math.MaxInt64/float64(time.Millisecond) {
			return fmt.Errorf("invalid duration %v ms", v)
		}
		*d = Duration(time.Duration(v) * time.Millisecond)
	default:
		return errDurationType
	}
	return nil
}

// MarshalJSON 实现 json.Marshaler
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// Duration 返回 time.Duration
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) String() string {
	return time.Duration(d).String()
}
