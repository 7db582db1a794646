package chapters

import (
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/brogergvhs/noveld/internal/providers"
)

const fileExt = ".txt"

type Chapter struct {
	providers.Chapter
}

func Wrap(list []providers.Chapter) []Chapter {
	out := make([]Chapter, len(list))
	for i, ch := range list {
		out[i] = Chapter{Chapter: ch}
	}

	return out
}

var keyReplacer = strings.NewReplacer(
	"?", "",
	":", "：",
	"/", "／",
	"\\", "＼",
	"\x00", "",
)

// NormalizeKey turns a chapter title into its on-disk key.
func NormalizeKey(title string) string {
	s := norm.NFC.String(title)
	s = keyReplacer.Replace(s)
	s = strings.TrimSpace(s)

	// "." and ".." cannot be file names.
	if strings.Trim(s, ".") == "" {
		return ""
	}

	return s
}

// Key is the durable identity of the chapter within a destination.
func (c Chapter) Key() string {
	if k := NormalizeKey(c.Title); k != "" {
		return k
	}

	return fmt.Sprintf("chapter_%04d", c.Index)
}

func (c Chapter) FileName() string {
	return KeyFileName(c.Key())
}

func (c Chapter) Path(dest string) string {
	return filepath.Join(dest, c.FileName())
}

func KeyFileName(key string) string {
	return key + fileExt
}
