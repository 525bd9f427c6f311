package domain

import "strings"

// NormalizeInitData strips host-supplied wrapping from a raw Telegram init
// data string: at most one leading "#", then at most one leading
// "tgWebAppData=", in that order. Total and idempotent; empty in, empty out.
func NormalizeInitData(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "#")
	s = strings.TrimPrefix(s, "tgWebAppData=")
	return s
}
