package partstore

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/yourname/chunk_upload/internal/models"
)

const (
	partSuffix    = ".part"
	stagingSuffix = ".tmp"

	// Имя части и staging-файла должно уложиться в NAME_MAX (255).
	maxKeyLen = 200
)

// PartName возвращает имя файла части: <index>_<key>.part.
// Индекс не содержит '_', поэтому имя однозначно разбирается обратно.
func PartName(key string, index int) string {
	return strconv.Itoa(index) + "_" + key + partSuffix
}

// ParsePartName: обратная к PartName функция. Неканонические индексы ("01") не принимаются.
func ParsePartName(name string) (key string, index int, ok bool) {
	base, found := strings.CutSuffix(name, partSuffix)
	if !found {
		return "", 0, false
	}

	idxStr, key, found := strings.Cut(base, "_")
	if !found || idxStr == "" || key == "" {
		return "", 0, false
	}
	for _, c := range idxStr {
		if c < '0' || c > '9' {
			return "", 0, false
		}
	}

	index, err := strconv.Atoi(idxStr)
	if err != nil || strconv.Itoa(index) != idxStr {
		return "", 0, false
	}

	return key, index, true
}

// stagingName даёт скрытое уникальное имя для недописанного файла target.
func stagingName(target string) string {
	return "." + target + "." + uuid.NewString() + stagingSuffix
}

func isStagingName(name string) bool {
	return strings.HasPrefix(name, ".") && strings.HasSuffix(name, stagingSuffix)
}

// ValidateKey проверяет, что ключ загрузки: это одно имя файла внутри каталога загрузок
// и не пересекается с именами частей и staging-файлов.
func ValidateKey(key string) error {
	switch {
	case key == "":
		return fmt.Errorf("%w: file name is empty", models.ErrBadRequest)
	case len(key) > maxKeyLen:
		return fmt.Errorf("%w: file name is longer than %d bytes", models.ErrBadRequest, maxKeyLen)
	case key == "." || key == "..":
		return fmt.Errorf("%w: file name %q is not allowed", models.ErrBadRequest, key)
	case strings.ContainsAny(key, "/\\\x00"):
		return fmt.Errorf("%w: file name %q must not contain path separators", models.ErrBadRequest, key)
	case strings.HasSuffix(key, partSuffix):
		return fmt.Errorf("%w: file name %q uses reserved suffix %s", models.ErrBadRequest, key, partSuffix)
	case isStagingName(key):
		return fmt.Errorf("%w: file name %q looks like a staging file", models.ErrBadRequest, key)
	}
	return nil
}
