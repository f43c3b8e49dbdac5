package slackbot

import (
	"log"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/slack-go/slack"
)

const userCacheTTL = 5 * time.Minute

// UserLister is the part of the Slack API used for member resolution.
type UserLister interface {
	GetUsers(options ...slack.GetUsersOption) ([]slack.User, error)
}

// Directory resolves configured member entries (Slack IDs or display names)
// to Slack user IDs, caching the workspace user list.
type Directory struct {
	api UserLister

	mu        sync.Mutex
	users     []slack.User
	fetchedAt time.Time
	now       func() time.Time
}

func NewDirectory(api UserLister) *Directory {
	return &Directory{api: api, now: time.Now}
}

func (d *Directory) cachedUsers() ([]slack.User, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.users != nil && d.now().Sub(d.fetchedAt) < userCacheTTL {
		return d.users, nil
	}
	users, err := d.api.GetUsers()
	if err != nil {
		return nil, err
	}
	d.users = users
	d.fetchedAt = d.now()
	return users, nil
}

// Resolve returns the IDs it could resolve and the entries it could not.
func (d *Directory) Resolve(entries []string) ([]string, []string, error) {
	var ids []string
	var names []string

	for _, raw := range entries {
		val := strings.TrimSpace(raw)
		if val == "" {
			continue
		}
		if isLikelySlackID(val) {
			ids = append(ids, val)
		} else {
			names = append(names, val)
		}
	}

	if len(names) == 0 {
		log.Printf("resolve members: ids=%d names=0", len(ids))
		return uniqueStrings(ids), nil, nil
	}

	users, err := d.cachedUsers()
	if err != nil {
		log.Printf("resolve members: get users error: %v", err)
		return uniqueStrings(ids), names, err
	}

	var unresolved []string
	for _, name := range names {
		if id, ok := matchUser(users, name); ok {
			ids = append(ids, id)
		} else {
			unresolved = append(unresolved, name)
		}
	}

	log.Printf("resolve members: ids=%d unresolved=%d", len(ids), len(unresolved))
	return uniqueStrings(ids), unresolved, nil
}

// matchUser prefers an exact handle or name match and falls back to token
// matching, skipping deleted accounts and bots.
func matchUser(users []slack.User, name string) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for _, u := range users {
		if u.Deleted || u.IsBot {
			continue
		}
		for _, n := range []string{u.Name, u.RealName, u.Profile.DisplayName} {
			if strings.ToLower(strings.TrimSpace(n)) == key {
				return u.ID, true
			}
		}
	}
	for _, u := range users {
		if u.Deleted || u.IsBot {
			continue
		}
		if nameMatches(name, u.RealName) || nameMatches(name, u.Profile.DisplayName) {
			return u.ID, true
		}
	}
	return "", false
}

func isLikelySlackID(val string) bool {
	if len(val) < 9 {
		return false
	}
	for i, r := range val {
		if i == 0 {
			if r != 'U' && r != 'W' {
				return false
			}
			continue
		}
		if (r < 'A' || r > 'Z') && (r < '0' || r > '9') {
			return false
		}
	}
	return true
}

func uniqueStrings(vals []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, v := range vals {
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

var parenPattern = regexp.MustCompile(`\([^)]*\)|（[^）]*）`)

func nameTokens(s string) []string {
	s = parenPattern.ReplaceAllString(s, " ")
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return (r < 'a' || r > 'z') && (r < '0' || r > '9')
	})
}

// nameMatches reports whether every token of the shorter name appears in the
// longer one, so "Alice" matches "Alice Smith (PM)".
func nameMatches(entry, candidate string) bool {
	a, b := nameTokens(entry), nameTokens(candidate)
	if len(a) == 0 || len(b) == 0 {
		return false
	}
	return allIn(a, b) || allIn(b, a)
}

func allIn(needles, haystack []string) bool {
	set := make(map[string]bool, len(haystack))
	for _, t := range haystack {
		set[t] = true
	}
	for _, t := range needles {
		if !set[t] {
			return false
		}
	}
	return true
}
