// Package cache memoizes built prompts by request, in memory with an
// optional durable tier.
package cache

import (
	"fmt"
	"time"

	"github.com/HartBrook/promptforge/internal/prompt"
)

// Entry is one cached prompt and its bookkeeping.
type Entry struct {
	Key        string               `json:"key"`
	Prompt     *prompt.PromptObject `json:"prompt"`
	Hits       int                  `json:"hits"`
	CreatedAt  time.Time            `json:"created_at"`
	LastAccess time.Time            `json:"last_access"`
}

// clone copies e, including its prompt.
func (e *Entry) clone() *Entry {
	c := *e
	c.Prompt = e.Prompt.Clone()
	return &c
}

// Age returns a human-readable time since the entry was last used.
func (e *Entry) Age(now time.Time) string {
	d := now.Sub(e.LastAccess)

	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return plural(int(d.Minutes()), "minute")
	case d < 24*time.Hour:
		return plural(int(d.Hours()), "hour")
	default:
		return plural(int(d.Hours()/24), "day")
	}
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s ago", unit)
	}
	return fmt.Sprintf("%d %ss ago", n, unit)
}
