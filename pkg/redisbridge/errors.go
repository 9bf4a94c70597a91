package redisbridge

import (
	"regexp"
)

// userScriptLinePrefix matches the line-number prefix gopher-lua attaches
// to a runtime error raised while executing a chunk loaded under the
// "user_script" chunkname, e.g. "user_script:3: attempt to call a nil value".
var userScriptLinePrefix = regexp.MustCompile(`^user_script:(\d+):\s?(.*)$`)

// DecorateUserScriptError rewrites an error message that begins with the
// literal "user_script:" into the Redis-exact form:
//
//	user_script:N: MESSAGE script: <sha1-hex>, on @user_script:N.
//
// Any other error text is returned unchanged, per spec.md §4.3.
func DecorateUserScriptError(msg string, scriptSHA1 string) string {
	m := userScriptLinePrefix.FindStringSubmatch(msg)
	if m == nil {
		return msg
	}
	line, message := m[1], m[2]
	return "user_script:" + line + ": " + message +
		" script: " + scriptSHA1 + ", on @user_script:" + line + "."
}
