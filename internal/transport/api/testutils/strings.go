package testutils

import "strings"

// WidePassword строка из runes четырехбайтовых символов. Длина в рунах мала,
// а в байтах при runes > 18 больше лимита bcrypt в 72 байта.
func WidePassword(runes int) string {
	return strings.Repeat("🔑", runes)
}
