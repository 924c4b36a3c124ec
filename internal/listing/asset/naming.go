package asset

import (
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// ObjectName returns a fresh collision-free file name that keeps the client's
// extension when it looks like one.
func ObjectName(original string) string {
	return uuid.NewString() + extension(original)
}

func extension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 6 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
