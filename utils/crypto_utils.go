package utils

import (
	"crypto/md5"
	"encoding/hex"
)

// CalculateMD5 计算字符串的MD5哈希值，返回32位小写十六进制字符串
// 仅用于生成缓存键和文件名，不用于安全场景
func CalculateMD5(input string) string {
	return CalculateMD5Bytes([]byte(input))
}

// CalculateMD5Bytes 计算字节切片的MD5哈希值
func CalculateMD5Bytes(input []byte) string {
	sum := md5.Sum(input)
	return hex.EncodeToString(sum[:])
}
