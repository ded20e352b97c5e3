package scheduler

import (
	"github.com/rs/zerolog"

	"github.com/aristath/reportdesk/internal/database"
)

// walFramesWarning is the WAL size, in frames, above which a checkpoint is forced.
const walFramesWarning = 1000

// CheckWALCheckpointsJob monitors WAL checkpoint status and truncates a WAL that grew
// too large
type CheckWALCheckpointsJob struct {
	log       zerolog.Logger
	databases map[string]*database.DB
}

// NewCheckWALCheckpointsJob creates a new CheckWALCheckpointsJob over the given
// databases, keyed by name. Nil databases are skipped.
func NewCheckWALCheckpointsJob(databases map[string]*database.DB) *CheckWALCheckpointsJob {
	return &CheckWALCheckpointsJob{
		log:       zerolog.Nop(),
		databases: databases,
	}
}

// SetLogger sets the logger for the job
func (j *CheckWALCheckpointsJob) SetLogger(log zerolog.Logger) {
	j.log = log
}

// Name returns the job name
func (j *CheckWALCheckpointsJob) Name() string {
	return "check_wal_checkpoints"
}

// Run executes the check WAL checkpoints job
func (j *CheckWALCheckpointsJob) Run() error {
	checkedCount := 0
	for name, db := range j.databases {
		if db == nil {
			continue
		}

		// PRAGMA wal_checkpoint returns: busy, log, checkpointed
		var busy, log, checkpointed int
		err := db.Conn().QueryRow("PRAGMA wal_checkpoint(PASSIVE)").Scan(&busy, &log, &checkpointed)
		if err != nil {
			j.log.Warn().
				Err(err).
				Str("database", name).
				Msg("Failed to check WAL checkpoint")
			continue
		}

		if log > walFramesWarning {
			j.log.Warn().
				Str("database", name).
				Int("wal_frames", log).
				Int("checkpointed", checkpointed).
				Msg("WAL file is large, truncating")
			if err := db.WALCheckpoint("TRUNCATE"); err != nil {
				j.log.Warn().Err(err).Str("database", name).Msg("Failed to truncate WAL")
			}
		} else {
			j.log.Debug().
				Str("database", name).
				Int("wal_frames", log).
				Msg("WAL checkpoint status OK")
		}

		checkedCount++
	}

	j.log.Info().
		Int("checked", checkedCount).
		Msg("WAL checkpoint check completed")

	return nil
}
