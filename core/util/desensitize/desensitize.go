// Package desensitize 日志中的个人信息脱敏
package desensitize

import "strings"

// Email 保留本地部分前 3 位和 @ 之后的域名，本地部分不足 4 位时整体遮盖
// 例如：alice@example.com -> ali****@example.com，bob@example.com -> ****@example.com
func Email(email string) string {
	index := strings.LastIndexByte(email, '@')
	switch {
	case index == -1:
		return Custom(email, 1)
	case index < 4:
		return "****" + email[index:]
	default:
		return email[:3] + "****" + email[index:]
	}
}

// Name 姓名脱敏，只保留首字符
// 例如：张三 -> 张*，Alice -> A****
func Name(name string) string {
	runes := []rune(name)
	if len(runes) <= 1 {
		return name
	}
	return string(runes[0]) + strings.Repeat("*", len(runes)-1)
}

// Custom 保留前 keep 位和后 keep 位
func Custom(s string, keep int) string {
	length := len(s)
	if length <= keep*2 {
		return strings.Repeat("*", length)
	}
	return s[:keep] + strings.Repeat("*", length-keep*2) + s[length-keep:]
}
