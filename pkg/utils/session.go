package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// LikeSessionID 匿名点赞会话：同一 IP 对同一篇文章一个会话
func LikeSessionID(slug, ip string) string {
	sum := sha256.Sum256([]byte(slug + "___" + ip))
	return hex.EncodeToString(sum[:])
}
