package slackbot

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/slack-go/slack"

	"tasklens/internal/domain"
)

func TestParseTaskText(t *testing.T) {
	tests := []struct {
		in          string
		title, desc string
	}{
		{"  Write the quarterly report  ", "Write the quarterly report", ""},
		{"Call the bank\nabout the mortgage\nand the card", "Call the bank", "about the mortgage\nand the card"},
		{"", "", ""},
		{"\nonly details", "", "only details"},
	}
	for _, tt := range tests {
		title, desc := parseTaskText(tt.in)
		if title != tt.title || desc != tt.desc {
			t.Fatalf("parseTaskText(%q) = (%q, %q), want (%q, %q)", tt.in, title, desc, tt.title, tt.desc)
		}
	}
}

func TestParseDoneArg(t *testing.T) {
	if n, err := parseDoneArg("2", 3); err != nil || n != 2 {
		t.Fatalf("expected 2, got %d err=%v", n, err)
	}
	if n, err := parseDoneArg(" #3 ", 3); err != nil || n != 3 {
		t.Fatalf("expected 3, got %d err=%v", n, err)
	}
	if n, err := parseDoneArg("", 1); err != nil || n != 1 {
		t.Fatalf("expected implicit 1, got %d err=%v", n, err)
	}
	for _, in := range []string{"", "0", "4", "abc"} {
		if _, err := parseDoneArg(in, 3); err == nil {
			t.Fatalf("expected error for %q", in)
		}
	}
	if _, err := parseDoneArg("1", 0); err == nil || !strings.Contains(err.Error(), "No open tasks") {
		t.Fatalf("expected no open tasks error, got %v", err)
	}
}

func TestFormatTaskLine(t *testing.T) {
	got := formatTaskLine(1, domain.Task{Title: "Plan sprint"})
	if got != "1. Plan sprint" {
		t.Fatalf("unexpected line: %q", got)
	}
	got = formatTaskLine(2, domain.Task{Title: "Plan sprint", Description: "with the team"})
	if got != "2. Plan sprint _with the team_" {
		t.Fatalf("unexpected line: %q", got)
	}
}

func TestLatestPeriod(t *testing.T) {
	w1 := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	w2 := w1.AddDate(0, 0, 7)
	list := []domain.Insight{
		{ID: "a", PeriodStart: w1},
		{ID: "b", PeriodStart: w2},
		{ID: "c", PeriodStart: w2},
	}
	got := latestPeriod(list, w2)
	if len(got) != 2 || got[0].ID != "b" || got[1].ID != "c" {
		t.Fatalf("unexpected filtered insights: %+v", got)
	}
	if got := latestPeriod(list, w2.AddDate(0, 0, 7)); len(got) != 3 {
		t.Fatalf("expected all insights when none match, got %d", len(got))
	}
}

func TestFormatStats(t *testing.T) {
	allTime := domain.ClassificationStats{TotalClassifications: 10, FallbackCount: 2, AvgConfidence: 0.81}
	recent := domain.ClassificationStats{
		TotalClassifications: 4,
		AvgConfidence:        0.7,
		BucketBelow50:        1,
		Bucket90Plus:         3,
		ByActionDomain: []domain.CategoryCount[domain.ActionDomain]{
			{Category: domain.WorkProject, Count: 3},
		},
	}
	out := formatStats(allTime, recent)
	for _, want := range []string{
		"*Tagging Dashboard*",
		"- Tagged: 10",
		"- Keyword fallbacks: 2",
		"- Avg confidence: 0.81",
		"- <50%: 1",
		"- 90%+: 3",
		"*Action Domains (last 4 weeks)*",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("stats output missing %q:\n%s", want, out)
		}
	}

	empty := formatStats(domain.ClassificationStats{}, domain.ClassificationStats{})
	if strings.Contains(empty, "Avg confidence") || strings.Contains(empty, "Action Domains") {
		t.Fatalf("empty stats should omit averages and domains:\n%s", empty)
	}
}

func TestHelpLines(t *testing.T) {
	member := strings.Join(helpLines(false), "\n")
	if strings.Contains(member, "/tag-stats") {
		t.Fatalf("member help should not list manager commands")
	}
	manager := strings.Join(helpLines(true), "\n")
	if !strings.Contains(manager, "/tag-stats") || !strings.Contains(manager, "/insights") {
		t.Fatalf("manager help missing commands:\n%s", manager)
	}
}

type fakeUsers struct {
	users []slack.User
	err   error
	calls int
}

func (f *fakeUsers) GetUsers(...slack.GetUsersOption) ([]slack.User, error) {
	f.calls++
	return f.users, f.err
}

func slackUser(id, name, realName string) slack.User {
	u := slack.User{ID: id, Name: name, RealName: realName}
	u.Profile.DisplayName = name
	return u
}

func TestDirectoryResolve(t *testing.T) {
	bot := slackUser("UBOT00001", "alice", "Alice Bot")
	bot.IsBot = true
	api := &fakeUsers{users: []slack.User{
		bot,
		slackUser("U11111111", "alice", "Alice Smith (PM)"),
		slackUser("U22222222", "bob.k", "Bob Kim"),
	}}
	dir := NewDirectory(api)

	ids, unresolved, err := dir.Resolve([]string{"U33333333", "alice", "Bob", "Carol", "U33333333", " "})
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	want := []string{"U33333333", "U11111111", "U22222222"}
	if strings.Join(ids, ",") != strings.Join(want, ",") {
		t.Fatalf("ids = %v, want %v", ids, want)
	}
	if len(unresolved) != 1 || unresolved[0] != "Carol" {
		t.Fatalf("unexpected unresolved: %v", unresolved)
	}

	if _, _, err := dir.Resolve([]string{"bob.k"}); err != nil {
		t.Fatalf("second Resolve failed: %v", err)
	}
	if api.calls != 1 {
		t.Fatalf("expected cached users, got %d GetUsers calls", api.calls)
	}

	now := time.Now()
	dir.now = func() time.Time { return now.Add(userCacheTTL + time.Second) }
	if _, _, err := dir.Resolve([]string{"bob.k"}); err != nil {
		t.Fatalf("third Resolve failed: %v", err)
	}
	if api.calls != 2 {
		t.Fatalf("expected cache refresh after TTL, got %d calls", api.calls)
	}
}

func TestDirectoryResolveIDsOnlySkipsLookup(t *testing.T) {
	api := &fakeUsers{err: errors.New("should not be called")}
	ids, unresolved, err := NewDirectory(api).Resolve([]string{"W12345678", "U12345678"})
	if err != nil || len(unresolved) != 0 || len(ids) != 2 {
		t.Fatalf("unexpected result ids=%v unresolved=%v err=%v", ids, unresolved, err)
	}
	if api.calls != 0 {
		t.Fatalf("GetUsers should not be called for IDs")
	}
}

func TestDirectoryResolveLookupError(t *testing.T) {
	api := &fakeUsers{err: errors.New("rate limited")}
	ids, unresolved, err := NewDirectory(api).Resolve([]string{"U12345678", "dana"})
	if err == nil {
		t.Fatalf("expected lookup error")
	}
	if len(ids) != 1 || len(unresolved) != 1 {
		t.Fatalf("expected partial result, got ids=%v unresolved=%v", ids, unresolved)
	}
}

func TestIsLikelySlackID(t *testing.T) {
	cases := map[string]bool{
		"U12345678": true,
		"W0ABCDEF1": true,
		"u12345678": false,
		"U1234":     false,
		"alice":     false,
		"U1234567-": false,
	}
	for in, want := range cases {
		if got := isLikelySlackID(in); got != want {
			t.Fatalf("isLikelySlackID(%q) = %v, want %v", in, got, want)
		}
	}
}
