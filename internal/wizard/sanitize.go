package wizard

import "strings"

// MaxFieldLength 车场码/车牌号的最大长度
const MaxFieldLength = 10

// 超长时的字段错误文案（与现网一致）
const (
	errLotCodeTooLong = "Maximum lot code length reached."
	errPlateTooLong   = "Maximum license plate length reached."
)

// sanitize 输入净化：转大写并去掉所有非字母数字字符
// 每次按键等价的调用都要过这里，而不是只在提交时做
func sanitize(input string) string {
	var b strings.Builder
	b.Grow(len(input))
	for _, r := range strings.ToUpper(input) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
