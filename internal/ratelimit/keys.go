package ratelimit

import (
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// hashedKey 共用儲存中不保存原始 IP，只保存雜湊後的鍵
func hashedKey(prefix, identifier string) string {
	sum := blake2b.Sum256([]byte(identifier))
	return prefix + ":" + hex.EncodeToString(sum[:16])
}
