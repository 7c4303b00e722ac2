package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// ContentMD5 计算图片内容的 MD5，用作缓存键
func ContentMD5(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}
