package web

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sweeney/squat-coach/internal/store"
)

// SessionsJSON is the JSON representation of session history.
type SessionsJSON struct {
	Sessions []SessionJSON `json:"sessions"`
}

// SessionJSON is one stored session.
type SessionJSON struct {
	ID              string `json:"id"`
	StartTime       string `json:"start_time"`
	EndTime         string `json:"end_time"`
	DurationSeconds int64  `json:"duration_seconds"`
	Outcome         string `json:"outcome"`
	Correct         int    `json:"correct"`
	Incorrect       int    `json:"incorrect"`
}

func formatSessions(sessions []store.Session) ([]byte, error) {
	sj := SessionsJSON{Sessions: make([]SessionJSON, 0, len(sessions))}
	for _, s := range sessions {
		outcome := s.Outcome
		if outcome == "" {
			outcome = "INTERRUPTED"
		}
		sj.Sessions = append(sj.Sessions, SessionJSON{
			ID:              s.ID,
			StartTime:       s.Started.UTC().Format(time.RFC3339),
			EndTime:         s.Ended.UTC().Format(time.RFC3339),
			DurationSeconds: int64(s.Ended.Sub(s.Started).Truncate(time.Second).Seconds()),
			Outcome:         outcome,
			Correct:         s.Correct,
			Incorrect:       s.Incorrect,
		})
	}

	data, err := json.MarshalIndent(sj, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode sessions: %w", err)
	}
	return data, nil
}
