package store

import (
	"context"
	"fmt"
	"time"

	"github.com/roach88/playscript/internal/ir"
)

// BeginRun inserts a run record with status running.
// Duplicate ids are silently ignored.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs (id, script, started_at, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, run.ID, run.Script, formatTime(run.StartedAt), string(StatusRunning))
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// FinishRun records the outcome of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, status RunStatus, finishedAt time.Time, errText string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE runs SET status = ?, finished_at = ?, error = ?
		WHERE id = ?
	`, string(status), formatTime(finishedAt), errText, runID)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run: run %s not found", runID)
	}
	return nil
}

// WriteEvent appends a trace event. The id is computed from the run id,
// seq and payload when empty. Uses ON CONFLICT DO NOTHING so rewriting the
// same event is a no-op.
func (s *Store) WriteEvent(ctx context.Context, ev Event) error {
	payloadJSON, err := marshalPayload(ev.Payload)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	if ev.ID == "" {
		ev.ID, err = ir.EventID(ev.RunID, ev.Seq, withType(ev))
		if err != nil {
			return fmt.Errorf("write event: %w", err)
		}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events (id, run_id, seq, line, type, payload)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`, ev.ID, ev.RunID, ev.Seq, ev.Line, string(ev.Type), payloadJSON)
	if err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	return nil
}

// withType folds the event type and line into the hashed payload so two
// events that differ only in type get different ids.
func withType(ev Event) ir.IRObject {
	obj := make(ir.IRObject, len(ev.Payload)+2)
	for k, v := range ev.Payload {
		obj[k] = v
	}
	obj["_type"] = ir.IRString(ev.Type)
	obj["_line"] = ir.IRInt(ev.Line)
	return obj
}

// timeLayout has fixed-width fractions so stored times sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}
