package model

import "fmt"

// Platform is the closed set of supported publishing targets. Adapters are
// registered per tag at startup; unchecked strings never reach adapter code.
type Platform string

const (
	PlatformWeibo  Platform = "weibo"
	PlatformWechat Platform = "wechat"
)

// ParsePlatform validates a raw platform tag coming from HTTP or storage.
func ParsePlatform(s string) (Platform, error) {
	switch Platform(s) {
	case PlatformWeibo, PlatformWechat:
		return Platform(s), nil
	}
	return "", fmt.Errorf("unsupported platform: %q", s)
}

func (p Platform) String() string { return string(p) }
