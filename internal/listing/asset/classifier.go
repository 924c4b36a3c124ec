package asset

import (
	"net/url"
	"path"
	"strings"
)

// Ref is a classified image locator.
type Ref struct {
	Kind Kind
	Key  string
}

// Classifier decides which backend owns a locator. It is the only code that
// inspects locator shape.
type Classifier struct {
	// LocalPrefix is the public URL path local files are served under, e.g.
	// "/uploads/". It is normalised with PublicPrefix.
	LocalPrefix string
	// Bucket and ObjectPrefix identify remote objects: ".../<bucket>/<prefix>/<name>".
	Bucket       string
	ObjectPrefix string
}

// Classify returns KindUnknown for anything it does not recognise, including
// keys that would escape their root.
func (c Classifier) Classify(locator string) Ref {
	if c.LocalPrefix != "" {
		if prefix := PublicPrefix(c.LocalPrefix); strings.HasPrefix(locator, prefix) {
			key := strings.TrimPrefix(locator, prefix)
			if safeKey(key) {
				return Ref{Kind: KindLocal, Key: key}
			}
			return Ref{Kind: KindUnknown}
		}
	}

	if c.Bucket == "" {
		return Ref{Kind: KindUnknown}
	}
	u, err := url.Parse(locator)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Ref{Kind: KindUnknown}
	}
	marker := "/" + c.Bucket + "/"
	i := strings.Index(u.Path, marker)
	if i < 0 {
		return Ref{Kind: KindUnknown}
	}
	key := u.Path[i+len(marker):]
	if c.ObjectPrefix != "" && !strings.HasPrefix(key, strings.Trim(c.ObjectPrefix, "/")+"/") {
		return Ref{Kind: KindUnknown}
	}
	if !safeKey(key) {
		return Ref{Kind: KindUnknown}
	}
	return Ref{Kind: KindRemote, Key: key}
}

// PublicPrefix puts a URL path prefix into the "/uploads/" form. Local storage
// builds locators with it and Classify strips it, so "/uploads", "uploads/" and
// "/uploads/" all name the same route.
func PublicPrefix(p string) string {
	p = strings.Trim(strings.TrimSpace(p), "/")
	if p == "" {
		return "/"
	}
	return "/" + p + "/"
}

func safeKey(key string) bool {
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, `\`) {
		return false
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == ".." || seg == "." || seg == "" {
			return false
		}
	}
	return path.Clean(key) == key
}
