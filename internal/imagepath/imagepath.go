// Package imagepath builds and orders the object keys of card images.
//
// Keys look like {user}/images/{domain}/{topic}/{topic}_{YYYYMMDD_HHMMSS}_{seq}.{ext}
// and always use forward slashes, whatever the storage backend.
package imagepath

import (
	"errors"
	"fmt"
	"path"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/dtroode/flashcards-server/internal/model"
)

// ErrUnsupportedType is returned for uploads with a non-image extension.
var ErrUnsupportedType = errors.New("unsupported image type")

// DefaultExtension is used for uploads without an extension.
const DefaultExtension = ".png"

const timestampLayout = "20060102_150405"

var (
	allowedExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp"}
	forbidden         = `\/:*?"<>|`
	legacyPattern     = regexp.MustCompile(`_(\d{8}_\d{6})_(\d+)`)
)

// Sanitize removes the characters \ / : * ? " < > | from name.
func Sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(forbidden, r) {
			return -1
		}
		return r
	}, name)
}

// segment turns a name into a single safe path element.
func segment(name string) string {
	s := Sanitize(name)
	switch s {
	case "", ".", "..":
		return "_"
	}
	return s
}

// Extension returns the lower-cased extension of an upload file name.
func Extension(filename string) (string, error) {
	ext := strings.ToLower(path.Ext(filename))
	if ext == "" {
		return DefaultExtension, nil
	}
	if !slices.Contains(allowedExtensions, ext) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, ext)
	}
	return ext, nil
}

// IsImage reports whether key has an accepted image extension.
func IsImage(key string) bool {
	return slices.Contains(allowedExtensions, strings.ToLower(path.Ext(key)))
}

// UserPrefix is the prefix of every image owned by username.
func UserPrefix(username string) string {
	return segment(username) + "/images/"
}

// DomainPrefix is the prefix of the images of a domain.
func DomainPrefix(username, domain string) string {
	return UserPrefix(username) + segment(domain) + "/"
}

// TopicPrefix is the prefix of the images of a topic.
func TopicPrefix(username, domain, topic string) string {
	return DomainPrefix(username, domain) + segment(topic) + "/"
}

// Key builds the object key of a new image.
func Key(username, domain, topic string, at time.Time, seq int, ext string) string {
	name := fmt.Sprintf("%s_%s_%d%s", segment(topic), at.Format(timestampLayout), seq, ext)
	return TopicPrefix(username, domain, topic) + name
}

// Relocate moves key under another domain folder, keeping its topic folder
// and file name.
func Relocate(key, username, oldDomain, newDomain string) (string, bool) {
	oldPrefix := DomainPrefix(username, oldDomain)
	rest, ok := strings.CutPrefix(key, oldPrefix)
	if !ok {
		return key, false
	}
	return DomainPrefix(username, newDomain) + rest, true
}

// InTopic reports whether key is a direct child of the topic prefix.
func InTopic(key, username, domain, topic string) bool {
	rest, ok := strings.CutPrefix(key, TopicPrefix(username, domain, topic))
	return ok && rest != "" && !strings.Contains(rest, "/")
}

// SortLegacy orders images found on storage for cards that predate the
// explicit image list. Names carrying _{timestamp}_{seq} come first, ordered
// by sequence and then timestamp; the rest follow by modification time.
func SortLegacy(objects []model.ObjectInfo) []model.ObjectInfo {
	type item struct {
		info      model.ObjectInfo
		matched   bool
		seq       int
		timestamp string
	}

	items := make([]item, 0, len(objects))
	for _, obj := range objects {
		it := item{info: obj}
		if m := legacyPattern.FindStringSubmatch(path.Base(obj.Key)); m != nil {
			if seq, err := strconv.Atoi(m[2]); err == nil {
				it.matched = true
				it.seq = seq
				it.timestamp = m[1]
			}
		}
		items = append(items, it)
	}

	slices.SortStableFunc(items, func(a, b item) int {
		switch {
		case a.matched && !b.matched:
			return -1
		case !a.matched && b.matched:
			return 1
		case a.matched:
			if a.seq != b.seq {
				return a.seq - b.seq
			}
			return strings.Compare(a.timestamp, b.timestamp)
		default:
			return a.info.LastModified.Compare(b.info.LastModified)
		}
	})

	sorted := make([]model.ObjectInfo, len(items))
	for i, it := range items {
		sorted[i] = it.info
	}
	return sorted
}
