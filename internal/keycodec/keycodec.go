// Package keycodec generates and parses composite pipeline keys of the
// form profile-plugin-user. The profile and plugin parts have spaces
// replaced by underscores so the key stays a single shell-friendly token;
// the user part is either auto-incremented, zero-padded, or verbatim.
package keycodec

import (
	"context"
	"fmt"
	"strconv"
	"strings"
)

// Scanner lists existing pipeline keys that share a prefix. The
// persistence store satisfies this.
type Scanner interface {
	ScanKeys(ctx context.Context, appName, prefix string) ([]string, error)
}

// Key is a freshly generated composite key.
type Key struct {
	Full   string
	Prefix string
	User   string
}

// Parts is a parsed composite key. Missing segments are empty strings.
type Parts struct {
	Profile string
	Plugin  string
	User    string
}

// Prefix returns the key prefix for a profile/plugin pair.
func Prefix(profile, plugin string) string {
	return sanitize(profile) + "-" + sanitize(plugin) + "-"
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, " ", "_")
}

// Generate builds the next key for the given profile and plugin.
//
// An empty userInput scans the existing keys under the prefix, takes the
// highest purely numeric suffix, and uses max+1 (1 when none exist). An
// all-digit userInput is normalized through the same zero-padding rule.
// Anything else becomes the suffix verbatim.
func Generate(ctx context.Context, sc Scanner, appName, profile, plugin, userInput string) (Key, error) {
	prefix := Prefix(profile, plugin)

	var user string
	switch {
	case userInput == "":
		keys, err := sc.ScanKeys(ctx, appName, prefix)
		if err != nil {
			return Key{}, err
		}
		next := 1
		for _, k := range keys {
			suffix := strings.TrimPrefix(k, prefix)
			if n, ok := numericSuffix(suffix); ok && n >= next {
				next = n + 1
			}
		}
		user = pad(next)
	case isDigits(userInput):
		n, err := strconv.Atoi(userInput)
		if err != nil {
			// Digit string too large to normalize; keep it as given.
			user = userInput
		} else {
			user = pad(n)
		}
	default:
		user = userInput
	}

	return Key{
		Full:   prefix + user,
		Prefix: prefix,
		User:   user,
	}, nil
}

// Parse splits key on its first two separators. Fewer than three
// segments yield empty strings for the missing parts.
func Parse(key string) Parts {
	segs := strings.SplitN(key, "-", 3)

	var p Parts
	if len(segs) > 0 {
		p.Profile = segs[0]
	}
	if len(segs) > 1 {
		p.Plugin = segs[1]
	}
	if len(segs) > 2 {
		p.User = segs[2]
	}
	return p
}

// pad formats n two-digit zero-padded below 100, plain decimal otherwise.
func pad(n int) string {
	if n < 100 {
		return fmt.Sprintf("%02d", n)
	}
	return strconv.Itoa(n)
}

func numericSuffix(s string) (int, bool) {
	if !isDigits(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
