package utils

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// SplitFilename splits a file name into stem and extension (without the dot).
// A leading dot starts a hidden name, not an extension: ".env" -> (".env", "").
func SplitFilename(name string) (stem, ext string) {
	base := filepath.Base(name)
	e := filepath.Ext(base)
	stem = strings.TrimSuffix(base, e)
	if stem == "" {
		return base, ""
	}
	return stem, strings.TrimPrefix(e, ".")
}

// JoinFilename builds "stem.ext", or just stem when ext is empty
func JoinFilename(stem, ext string) string {
	if ext == "" {
		return stem
	}
	return stem + "." + ext
}

// IsSafeBaseName reports whether name can be used as a single path element
func IsSafeBaseName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && !strings.ContainsRune(name, 0)
}

// RandomBaseName returns a fresh random token usable as a file name stem
func RandomBaseName() string {
	return uuid.NewString()
}
