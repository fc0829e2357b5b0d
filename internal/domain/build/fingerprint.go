package build

import (
	"crypto/sha256"
	"encoding/hex"
)

// Fingerprint 汇总一次 build 的全部输入哈希。
// 输入没变 fingerprint 就不变，serve 端靠它跳过无意义的 rebuild。
type Fingerprint struct {
	ContentHash string
	ThemeHash   string
	ConfigHash  string
	RenderHash  string
}

func (f *Fingerprint) ComputeRenderHash() {
	h := sha256.New()
	h.Write([]byte(f.ContentHash))
	h.Write([]byte(f.ThemeHash))
	h.Write([]byte(f.ConfigHash))
	f.RenderHash = hex.EncodeToString(h.Sum(nil))
}

func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashStrings 对已排序的哈希列表再做一次汇总哈希
func HashStrings(items []string) string {
	h := sha256.New()
	for _, s := range items {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}
