package utils

import (
	"fmt"
	"hash/fnv"
)

const defaultAvatarCount = 8

// DefaultAvatar 按用户 id 选择固定的默认头像
func DefaultAvatar(userID string) string {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID))
	return fmt.Sprintf("/images/default-avatar/%d.png", h.Sum32()%defaultAvatarCount+1)
}

// AvatarOrDefault 头像为空时回退到默认头像
func AvatarOrDefault(image *string, userID string) string {
	if image != nil && *image != "" {
		return *image
	}
	return DefaultAvatar(userID)
}
