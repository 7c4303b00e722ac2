package utils

import (
	"github.com/google/uuid"
)

// NewID 生成随机 ID，用于会话和预览资源
func NewID() string {
	return uuid.New().String()
}

// IsID 校验客户端传来的 ID 格式
func IsID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
