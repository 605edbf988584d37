// Package alias 将 object_alias 模板中的 ${key} 替换为匹配到的 ObjectName 的 key property 值
package alias

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jmx-collector/pkg/jmx"
)

// MaxSubstitutions 单个模板允许的替换次数上限，防止 value 中再次出现占位符导致死循环
const MaxSubstitutions = 64

var (
	ErrUnknownKey           = errors.New("alias: unknown key")
	ErrTooManySubstitutions = errors.New("alias: too many substitutions")
)

// Resolve 反复查找最左侧的 ${key} 并替换为 objectName 中 key 对应的值，直到没有占位符
func Resolve(template, objectName string) (string, error) {
	if !strings.Contains(template, "${") {
		return template, nil
	}
	kp, err := jmx.ParseKeyProperties(objectName)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", template, err)
	}

	out := template
	for n := 0; ; n++ {
		start, end, key, ok := leftmost(out)
		if !ok {
			return out, nil
		}
		if n >= MaxSubstitutions {
			return "", fmt.Errorf("resolve %q against %s: %w", template, objectName, ErrTooManySubstitutions)
		}
		value, found := kp.Get(key)
		if !found {
			return "", fmt.Errorf("resolve %q: key %q not in %s: %w", template, key, objectName, ErrUnknownKey)
		}
		out = out[:start] + value + out[end:]
	}
}

// leftmost 返回第一个完整 ${key} 的区间 [start, end)
func leftmost(s string) (start, end int, key string, ok bool) {
	start = strings.Index(s, "${")
	if start < 0 {
		return 0, 0, "", false
	}
	closing := strings.IndexByte(s[start+2:], '}')
	if closing < 0 {
		return 0, 0, "", false
	}
	end = start + 2 + closing + 1
	return start, end, s[start+2 : end-1], true
}
