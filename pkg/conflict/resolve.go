package conflict

import (
	"log/slog"
	"time"
)

// Action is what the orchestrator does to a touchpoint after a conflict has
// been resolved.
type Action string

const (
	// ActionSkip leaves both sides as they are.
	ActionSkip Action = "skip"

	// ActionPublish pushes local content over the remote copy.
	ActionPublish Action = "publish"

	// ActionAdoptRemote accepts the remote copy as current: the ledger is
	// updated to the remote fingerprint and no publish happens.
	ActionAdoptRemote Action = "adopt_remote"

	// ActionManual surfaces the conflict and does nothing else.
	ActionManual Action = "manual"
)

// Resolve maps a policy onto the action to take for one conflict. Merge is
// last-writer-wins decided by modification time: the platform's read-back is
// metadata-only, so a field-by-field union against remote content is not
// possible. The winner is logged so merge outcomes stay auditable.
func Resolve(resolution Resolution, c Conflict, localUpdatedAt, remoteUpdatedAt time.Time, logger *slog.Logger) Action {
	switch resolution {
	case ResolutionSkip:
		return ActionSkip
	case ResolutionOverwrite:
		return ActionPublish
	case ResolutionManual:
		return ActionManual
	case ResolutionMerge:
		if c.Structural() {
			// ValidateResolution rejects this upstream; refuse to guess here.
			return ActionManual
		}

		if remoteUpdatedAt.After(localUpdatedAt) {
			logger.Info("Merge resolved in favor of remote copy",
				"touchpoint_id", c.TouchpointID,
				"local_updated_at", localUpdatedAt,
				"remote_updated_at", remoteUpdatedAt)

			return ActionAdoptRemote
		}

		logger.Info("Merge resolved in favor of local copy",
			"touchpoint_id", c.TouchpointID,
			"local_updated_at", localUpdatedAt,
			"remote_updated_at", remoteUpdatedAt)

		return ActionPublish
	}

	return ActionManual
}
