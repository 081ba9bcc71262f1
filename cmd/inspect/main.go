package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/strandline/quality-controller/internal/history"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to quality_history.db")
	last := flag.Int("last", 20, "show N most recent sessions")
	session := flag.String("session", "", "show one session and its transition chain")
	limit := flag.Int("limit", 500, "max transitions shown per session")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/quality_history.db [--last N] [--session id] [--limit N] [--json]")
		os.Exit(2)
	}

	store, err := history.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	if *session != "" {
		err = runDetailMode(store, *session, *limit, *jsonOut)
	} else {
		err = runListMode(store, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region list-mode

type listRow struct {
	SessionID   string `json:"session_id"`
	GPUTier     string `json:"gpu_tier"`
	Mobile      bool   `json:"mobile"`
	LowPower    bool   `json:"low_power"`
	Level       string `json:"level,omitempty"`
	Transitions int    `json:"transitions"`
	StartedAt   string `json:"started_at"`
	Duration    string `json:"duration,omitempty"`
}

func runListMode(store *history.Store, last int, jsonOut bool) error {
	sessions, err := store.ListSessions(last)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	// store returns newest first, reverse for chronological
	rows := make([]listRow, len(sessions))
	for i, sess := range sessions {
		chain, err := store.ListTransitions(sess.ID, -1)
		if err != nil {
			return err
		}
		r := listRow{
			SessionID:   sess.ID,
			GPUTier:     string(sess.Profile.GPUTier),
			Mobile:      sess.Profile.IsMobile,
			LowPower:    sess.Profile.IsLowPower,
			Transitions: len(chain),
			StartedAt:   sess.StartedAt.Format(time.RFC3339),
		}
		if len(chain) > 0 {
			r.Level = string(chain[len(chain)-1].To)
		}
		if !sess.Open() {
			r.Duration = sess.EndedAt.Sub(sess.StartedAt).Round(time.Second).String()
		}
		rows[len(sessions)-1-i] = r
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %-6s  %-6s  %-9s  %-7s  %5s  %-9s  %s\n",
		"Session", "GPU", "Mobile", "Low Power", "Level", "Moves", "Duration", "Started")
	fmt.Printf("%-10s+-%-6s+-%-6s+-%-9s+-%-7s+-%5s+-%-9s+-%s\n",
		"----------", "------", "------", "---------", "-------", "-----", "---------", "--------------------")
	for _, r := range rows {
		duration := r.Duration
		if duration == "" {
			duration = "open"
		}
		fmt.Printf("%-10s  %-6s  %-6v  %-9v  %-7s  %5d  %-9s  %s\n",
			shortID(r.SessionID), orDash(r.GPUTier), r.Mobile, r.LowPower, orDash(r.Level),
			r.Transitions, duration, r.StartedAt)
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	SessionID   string           `json:"session_id"`
	Profile     any              `json:"profile"`
	StartedAt   string           `json:"started_at"`
	EndedAt     string           `json:"ended_at,omitempty"`
	Active      string           `json:"active_version,omitempty"`
	Transitions []transitionView `json:"transitions"`
}

type transitionView struct {
	VersionID string  `json:"version_id"`
	ParentID  string  `json:"parent_id,omitempty"`
	From      string  `json:"from"`
	To        string  `json:"to"`
	Trigger   string  `json:"trigger"`
	FPS       int     `json:"fps"`
	FrameTime float64 `json:"frame_time_ms"`
	Reason    string  `json:"reason"`
	CreatedAt string  `json:"created_at"`
}

func runDetailMode(store *history.Store, sessionID string, limit int, jsonOut bool) error {
	sess, err := store.GetSession(sessionID)
	if err != nil {
		return err
	}
	chain, err := store.ListTransitions(sessionID, limit)
	if err != nil {
		return err
	}

	out := detailOutput{
		SessionID:   sess.ID,
		Profile:     sess.Profile,
		StartedAt:   sess.StartedAt.Format(time.RFC3339),
		Transitions: make([]transitionView, 0, len(chain)),
	}
	if !sess.Open() {
		out.EndedAt = sess.EndedAt.Format(time.RFC3339)
	}
	if cur, err := store.Current(sessionID); err == nil {
		out.Active = cur.VersionID
	}
	for _, rec := range chain {
		out.Transitions = append(out.Transitions, transitionView{
			VersionID: rec.VersionID,
			ParentID:  rec.ParentID,
			From:      string(rec.From),
			To:        string(rec.To),
			Trigger:   string(rec.Trigger),
			FPS:       rec.Metrics.FPS,
			FrameTime: rec.Metrics.FrameTime,
			Reason:    rec.Reason,
			CreatedAt: rec.CreatedAt.Format(time.RFC3339),
		})
	}

	if jsonOut {
		return printJSON(out)
	}

	fmt.Printf("Session:    %s\n", out.SessionID)
	fmt.Printf("GPU tier:   %s\n", orDash(string(sess.Profile.GPUTier)))
	fmt.Printf("Mobile:     %v\n", sess.Profile.IsMobile)
	fmt.Printf("Touch:      %v\n", sess.Profile.IsTouch)
	fmt.Printf("Low power:  %v\n", sess.Profile.IsLowPower)
	fmt.Printf("Started:    %s\n", out.StartedAt)
	fmt.Printf("Ended:      %s\n", orDash(out.EndedAt))
	fmt.Printf("Active:     %s\n", orDash(shortID(out.Active)))

	if len(out.Transitions) == 0 {
		fmt.Println("\nno transitions recorded")
		return nil
	}
	fmt.Printf("\n%-10s  %-10s  %-8s  %-8s  %-10s  %4s  %9s  %s\n",
		"Version", "Parent", "From", "To", "Trigger", "FPS", "Frame ms", "Reason")
	for _, t := range out.Transitions {
		fmt.Printf("%-10s  %-10s  %-8s  %-8s  %-10s  %4d  %9.2f  %s\n",
			shortID(t.VersionID), orDash(shortID(t.ParentID)), orDash(t.From), t.To, t.Trigger,
			t.FPS, t.FrameTime, t.Reason)
	}
	return nil
}

// #endregion detail-mode

// #region output

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// #endregion output
