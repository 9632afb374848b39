package query

import (
	"net/url"
	"strings"
)

// Key identifies a cached query as a tuple of segments.
type Key []string

func (k Key) String() string {
	escaped := make([]string, len(k))
	for i, segment := range k {
		escaped[i] = url.PathEscape(segment)
	}
	return strings.Join(escaped, "/")
}

// HasPrefix reports whether prefix is a leading run of whole segments of k.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	for i := range prefix {
		if k[i] != prefix[i] {
			return false
		}
	}
	return true
}

// Query keys. The issues prefix covers every issue-derived read.
var (
	IssuesPrefix      = Key{"issues"}
	AllIssuesKey      = Key{"issues", "all"}
	WithSubmittersKey = Key{"issues", "all", "with-submitters"}
	WorkerRatingsKey  = Key{"worker-ratings"}
	WorkersKey        = Key{"workers"}
)

func UserIssues(userID string) Key {
	return Key{"issues", "user", userID}
}

func WorkerIssues(userID string) Key {
	return Key{"issues", "worker", userID}
}

// IssueByID keeps single issues under their own segment so an id such as
// "all" cannot shadow a collection key.
func IssueByID(id string) Key {
	return Key{"issues", "detail", id}
}
