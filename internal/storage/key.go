package storage

import (
	"path"
	"strings"
)

// ObjectKey builds the content-addressed storage key
// <namespace>/<brandPrefix>/<contentHash>/<fileName>.
// Because the hash segment derives from file contents, identical bytes map to
// the same prefix regardless of which SKU uploaded them.
func ObjectKey(namespace, skuCode, contentHash, fileName string) string {
	return path.Join(namespace, BrandPrefix(skuCode), contentHash, fileName)
}

// BrandPrefix groups related SKUs for operational browsing: the lowercase
// first two characters of the SKU code, or "xx" when the code is too short.
func BrandPrefix(skuCode string) string {
	runes := []rune(strings.ToLower(strings.TrimSpace(skuCode)))
	if len(runes) < 2 {
		return "xx"
	}
	return string(runes[:2])
}
