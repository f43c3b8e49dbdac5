// Package digest generates weekly insights for every member and delivers
// them as Slack direct messages on a cron schedule.
package digest

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"tasklens/internal/domain"
	"tasklens/internal/insights"
)

type Generator interface {
	CreateInsightsForPeriod(ctx context.Context, userID string, start, end time.Time) ([]domain.Insight, error)
	MarkViewed(ctx context.Context, id string) error
}

type Sender interface {
	SendDM(userID, text string) error
}

type MemberResolver interface {
	Resolve(entries []string) ([]string, []string, error)
}

type Options struct {
	Schedule     string
	Members      []string
	MondayCutoff string
	Location     *time.Location
}

// Result tracks per-member outcomes of one digest run.
type Result struct {
	Members    int
	Sent       int
	Empty      int
	Unresolved []string
	Errors     []string
}

type Digest struct {
	gen      Generator
	sender   Sender
	resolver MemberResolver
	opts     Options
	now      func() time.Time
}

func New(gen Generator, sender Sender, resolver MemberResolver, opts Options) *Digest {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	return &Digest{gen: gen, sender: sender, resolver: resolver, opts: opts, now: time.Now}
}

// Run generates the current insight week for each member and DMs it. Members
// with no insights are skipped so nobody gets an empty reflection.
func (d *Digest) Run(ctx context.Context) (Result, error) {
	ids, unresolved, err := d.resolver.Resolve(d.opts.Members)
	result := Result{Unresolved: unresolved}
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("resolve members: %v", err))
	}
	if len(ids) == 0 {
		if err != nil {
			return result, fmt.Errorf("no members resolved: %w", err)
		}
		return result, nil
	}
	result.Members = len(ids)

	start, end := domain.InsightWeekRange(d.now().In(d.opts.Location), d.opts.MondayCutoff)
	log.Printf("digest range %s - %s members=%d", start.Format("2006-01-02"), end.Format("2006-01-02"), len(ids))

	for _, userID := range ids {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		list, err := d.gen.CreateInsightsForPeriod(ctx, userID, start, end)
		if err != nil {
			log.Printf("digest generate error user=%s: %v", userID, err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", userID, err))
			continue
		}
		if len(list) == 0 {
			result.Empty++
			continue
		}
		if err := d.sender.SendDM(userID, insights.FormatMessage(start, end, list)); err != nil {
			log.Printf("digest send error user=%s: %v", userID, err)
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", userID, err))
			continue
		}
		for _, in := range list {
			if err := d.gen.MarkViewed(ctx, in.ID); err != nil {
				log.Printf("digest mark viewed error id=%s: %v", in.ID, err)
			}
		}
		result.Sent++
	}
	return result, nil
}

// FormatSummary returns a one-line human-readable summary of a Result.
func FormatSummary(result Result) string {
	msg := fmt.Sprintf("Sent %d of %d digests", result.Sent, result.Members)
	var extra []string
	if result.Empty > 0 {
		extra = append(extra, fmt.Sprintf("%d with no activity", result.Empty))
	}
	if len(result.Unresolved) > 0 {
		extra = append(extra, fmt.Sprintf("unresolved: %s", strings.Join(result.Unresolved, ", ")))
	}
	if len(extra) > 0 {
		msg += fmt.Sprintf(" (%s)", strings.Join(extra, "; "))
	}
	msg += "."
	if len(result.Errors) > 0 {
		msg += fmt.Sprintf("\nErrors:\n%s", strings.Join(result.Errors, "\n"))
	}
	return msg
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ParseSchedule parses a 5-field cron expression or a descriptor such as
// "@weekly". Config validation and the scheduler both go through it.
func ParseSchedule(expr string) (cron.Schedule, error) {
	return scheduleParser.Parse(strings.TrimSpace(expr))
}

// Start runs the digest on the configured cron schedule until ctx is
// cancelled. An empty schedule or member list disables it.
func (d *Digest) Start(ctx context.Context) error {
	schedule := strings.TrimSpace(d.opts.Schedule)
	if schedule == "" {
		log.Println("Digest disabled (digest_schedule not set)")
		return nil
	}
	if len(d.opts.Members) == 0 {
		log.Println("Digest disabled: no members configured")
		return nil
	}

	sched, err := ParseSchedule(schedule)
	if err != nil {
		return fmt.Errorf("invalid digest_schedule '%s': %w", schedule, err)
	}
	log.Printf("Digest scheduled (cron: %s) for %d members", schedule, len(d.opts.Members))

	go func() {
		for {
			now := d.now().In(d.opts.Location)
			next := sched.Next(now)
			wait := next.Sub(now)
			log.Printf("Next digest at %s (in %s)", next.Format("Mon Jan 2 15:04"), wait.Round(time.Minute))

			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				log.Println("Digest scheduler stopped")
				return
			case <-timer.C:
			}

			result, runErr := d.Run(ctx)
			if runErr != nil {
				log.Printf("Digest error: %v", runErr)
			}
			log.Printf("Digest complete: %s", FormatSummary(result))
		}
	}()
	return nil
}
