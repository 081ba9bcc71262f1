package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/strandline/quality-controller/internal/history"
	"github.com/strandline/quality-controller/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to quality_history.db (DB mode)")
	sessionID := flag.String("session", "", "session to replay in DB mode (default: most recent)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	delayMS := flag.Int64("delay-ms", 0, "adaptation delay the session ran with in DB mode (default 3000)")
	timeout := flag.Duration("timeout", 30*time.Second, "abort a replay that takes longer than this")
	flag.Parse()

	if (*dbPath == "" && *fixturePath == "") || (*dbPath != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/quality_history.db [--session id] [--delay-ms N]")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	var f *replay.Fixture
	var err error
	if *fixturePath != "" {
		f, err = replay.LoadFixture(*fixturePath)
	} else {
		f, err = fixtureFromDB(*dbPath, *sessionID, replay.FixtureConfig{AdaptationDelayMS: *delayMS})
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "load trace: %v\n", err)
		os.Exit(2)
	}

	results, summary, err := replay.Replay(ctx, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		os.Exit(2)
	}
	os.Exit(printComparison(results, summary))
}

// #endregion main

// #region db-extract

func fixtureFromDB(dbPath, sessionID string, cfg replay.FixtureConfig) (*replay.Fixture, error) {
	store, err := history.NewStore(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	if sessionID == "" {
		sessions, err := store.ListSessions(1)
		if err != nil {
			return nil, err
		}
		if len(sessions) == 0 {
			return nil, fmt.Errorf("no sessions in %s", dbPath)
		}
		sessionID = sessions[0].ID
	}

	sess, err := store.GetSession(sessionID)
	if err != nil {
		return nil, err
	}
	chain, err := store.ListTransitions(sessionID, -1)
	if err != nil {
		return nil, err
	}
	if len(chain) == 0 {
		return nil, fmt.Errorf("session %s has no transitions", sessionID)
	}
	return replay.FromSession(sess, chain, cfg)
}

// #endregion db-extract

// #region output

// printComparison outputs a comparison table and returns the exit code.
func printComparison(results []replay.Result, summary replay.Summary) int {
	if summary.Description != "" {
		fmt.Printf("%s\n\n", summary.Description)
	}
	fmt.Printf("%-9s| %-15s| %-15s| %s\n", "At (ms)", "Expected", "Replayed", "Match")
	fmt.Printf("%-9s+%-15s+%-15s+%s\n",
		"---------", "----------------", "----------------", "------")

	for _, r := range results {
		want := string(r.WantLevel)
		if r.WantAdapting != nil {
			want += adaptingMark(*r.WantAdapting)
		}
		got := string(r.GotLevel) + adaptingMark(r.GotAdapting)
		match := "OK"
		if !r.Passed {
			match = "DIFF"
		}
		fmt.Printf("%-9d| %-15s| %-15s| %s\n", r.AtMS, want, got, match)
	}

	fmt.Printf("\nSummary: %d total, %d match, %d diverge (initial %s, final %s, %d transitions)\n",
		summary.Expectations, summary.Passed, summary.Failed,
		summary.InitialLevel, summary.FinalLevel, summary.Transitions)

	if !summary.OK() {
		return 1
	}
	return 0
}

func adaptingMark(adapting bool) string {
	if adapting {
		return " (adapting)"
	}
	return ""
}

// #endregion output
