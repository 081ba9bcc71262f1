package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/strandline/quality-controller/internal/history"
	"github.com/strandline/quality-controller/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to quality_history.db")
	sessionID := flag.String("session", "", "session to export (default: most recent)")
	delayMS := flag.Int64("delay-ms", 0, "adaptation delay the session ran with (default 3000)")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --out path/to/fixture.json [--session id] [--delay-ms N]")
		os.Exit(2)
	}

	if err := run(*dbPath, *sessionID, *delayMS, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region export

func run(dbPath, sessionID string, delayMS int64, outPath string) error {
	store, err := history.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	if sessionID == "" {
		sessions, err := store.ListSessions(1)
		if err != nil {
			return err
		}
		if len(sessions) == 0 {
			return fmt.Errorf("no sessions in %s", dbPath)
		}
		sessionID = sessions[0].ID
	}

	sess, err := store.GetSession(sessionID)
	if err != nil {
		return err
	}
	chain, err := store.ListTransitions(sessionID, -1)
	if err != nil {
		return err
	}

	f, err := replay.FromSession(sess, chain, replay.FixtureConfig{AdaptationDelayMS: delayMS})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}

	fmt.Printf("Exported session %s: %d steps, %d expectations -> %s\n",
		shortID(sess.ID), len(f.Steps), len(f.Expectations), outPath)
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion export
