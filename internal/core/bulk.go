package core

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/JonMunkholm/formconsole/internal/logging"
)

// Outcome is the result of one item in a bulk operation. An unrecorded item
// was applied but its activity record failed; it counts as applied and stops
// the run. Skipped items were not attempted after an earlier failure.
type Outcome string

const (
	OutcomeSuccess    Outcome = "success"
	OutcomeUnrecorded Outcome = "unrecorded"
	OutcomeError      Outcome = "error"
	OutcomeSkipped    Outcome = "skipped"
)

// BulkItemResult reports one item of a bulk operation.
type BulkItemResult struct {
	ID      string  `json:"id"`
	Outcome Outcome `json:"outcome"`
	Error   string  `json:"error,omitempty"`

	err error
}

// Err returns the item's failure, if any.
func (r BulkItemResult) Err() error {
	return r.err
}

// BulkResult reports a sequential bulk operation. Items run in order and the
// run stops at the first failure; items applied before it stay applied.
// Unrecorded counts the applied items, also included in Succeeded, whose
// activity was not logged.
type BulkResult struct {
	BatchID    string           `json:"batchId"`
	Action     string           `json:"action"`
	Results    []BulkItemResult `json:"results"`
	Succeeded  int              `json:"succeeded"`
	Unrecorded int              `json:"unrecorded"`
	Failed     int              `json:"failed"`
	Skipped    int              `json:"skipped"`
}

// Err returns a single aggregate error when any item failed or went
// unrecorded.
func (r *BulkResult) Err() error {
	if r.Failed == 0 && r.Unrecorded == 0 {
		return nil
	}
	for _, item := range r.Results {
		if item.err != nil {
			return &BulkError{
				Action:   r.Action,
				FailedID: item.ID,
				Applied:  r.Succeeded,
				Total:    len(r.Results),
				Cause:    item.err,
			}
		}
	}
	return nil
}

// BulkError is the aggregate failure of a bulk operation.
type BulkError struct {
	Action   string
	FailedID string
	Applied  int
	Total    int
	Cause    error
}

func (e *BulkError) Error() string {
	return fmt.Sprintf("bulk %s: %d of %d applied, stopped at %s: %v",
		e.Action, e.Applied, e.Total, e.FailedID, e.Cause)
}

func (e *BulkError) Unwrap() error {
	return e.Cause
}

// runBulk applies fn to each id in order, stopping at the first failure.
func (s *Service) runBulk(ctx context.Context, action string, ids []string, fn func(ctx context.Context, id string) error) (*BulkResult, error) {
	ids = dedupeIDs(ids)
	if len(ids) == 0 {
		return nil, &ValidationError{Field: "ids", Message: "no ids provided"}
	}

	res := &BulkResult{
		BatchID: uuid.New().String(),
		Action:  action,
		Results: make([]BulkItemResult, 0, len(ids)),
	}
	logger := logging.WithFields(ctx, "batch_id", res.BatchID, "action", action)
	logger.Info("bulk operation started", "items", len(ids))

	stopped := false
	for _, id := range ids {
		if stopped {
			res.Results = append(res.Results, BulkItemResult{ID: id, Outcome: OutcomeSkipped})
			res.Skipped++
			continue
		}
		err := fn(ctx, id)
		var actErr *ActivityError
		if errors.As(err, &actErr) {
			logger.Warn("bulk item applied without activity", "id", id, "error", err)
			res.Results = append(res.Results, BulkItemResult{ID: id, Outcome: OutcomeUnrecorded, Error: err.Error(), err: err})
			res.Succeeded++
			res.Unrecorded++
			stopped = true
			continue
		}
		if err != nil {
			logger.Warn("bulk item failed", "id", id, "error", err)
			res.Results = append(res.Results, BulkItemResult{ID: id, Outcome: OutcomeError, Error: err.Error(), err: err})
			res.Failed++
			stopped = true
			continue
		}
		res.Results = append(res.Results, BulkItemResult{ID: id, Outcome: OutcomeSuccess})
		res.Succeeded++
	}

	logger.Info("bulk operation finished",
		"succeeded", res.Succeeded, "unrecorded", res.Unrecorded,
		"failed", res.Failed, "skipped", res.Skipped)
	return res, nil
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// BulkApproveUsers approves users one at a time.
func (s *Service) BulkApproveUsers(ctx context.Context, actor Actor, uids []string, note string) (*BulkResult, error) {
	return s.runBulk(ctx, "approve users", uids, func(ctx context.Context, uid string) error {
		return s.ApproveUser(ctx, actor, uid, note)
	})
}

// BulkRejectUsers rejects users one at a time. A blank reason fails before
// any write.
func (s *Service) BulkRejectUsers(ctx context.Context, actor Actor, uids []string, reason string) (*BulkResult, error) {
	reason, err := requireReason(reason)
	if err != nil {
		return nil, err
	}
	return s.runBulk(ctx, "reject users", uids, func(ctx context.Context, uid string) error {
		return s.RejectUser(ctx, actor, uid, reason)
	})
}

// BulkApproveTemplates approves templates one at a time.
func (s *Service) BulkApproveTemplates(ctx context.Context, actor Actor, ids []string, note string) (*BulkResult, error) {
	return s.runBulk(ctx, "approve templates", ids, func(ctx context.Context, id string) error {
		return s.ApproveTemplate(ctx, actor, id, note)
	})
}

// BulkRejectTemplates rejects templates one at a time.
func (s *Service) BulkRejectTemplates(ctx context.Context, actor Actor, ids []string, reason string) (*BulkResult, error) {
	reason, err := requireReason(reason)
	if err != nil {
		return nil, err
	}
	return s.runBulk(ctx, "reject templates", ids, func(ctx context.Context, id string) error {
		return s.RejectTemplate(ctx, actor, id, reason)
	})
}
