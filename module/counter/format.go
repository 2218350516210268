package counter

import "strconv"

const DefaultPadLength = 5

// Format 渲染展示 ID：prefix + 左侧补零到至少 padLength 位；位数超出时不截断。
func Format(prefix string, seq int64, padLength int) string {
	digits := strconv.FormatInt(seq, 10)
	if n := padLength - len(digits); n > 0 {
		buf := make([]byte, 0, len(prefix)+padLength)
		buf = append(buf, prefix...)
		for i := 0; i < n; i++ {
			buf = append(buf, '0')
		}
		return string(append(buf, digits...))
	}
	return prefix + digits
}
