package scheduler

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/reportdesk/internal/database"
)

func TestCheckWALCheckpointsJob_Name(t *testing.T) {
	job := &CheckWALCheckpointsJob{
		log: zerolog.Nop(),
	}
	assert.Equal(t, "check_wal_checkpoints", job.Name())
}

func TestCheckWALCheckpointsJob_Run_NoDatabases(t *testing.T) {
	log := zerolog.New(nil).Level(zerolog.Disabled)
	job := NewCheckWALCheckpointsJob(map[string]*database.DB{"store": nil})
	job.SetLogger(log)

	err := job.Run()
	assert.NoError(t, err) // Should handle nil databases gracefully
}

func TestCheckWALCheckpointsJob_Run_OnDiskDatabase(t *testing.T) {
	db, err := database.New(database.Config{
		Path: t.TempDir() + "/store.db",
		Name: "store",
	})
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.Migrate())

	job := NewCheckWALCheckpointsJob(map[string]*database.DB{"store": db})
	assert.NoError(t, job.Run())
}
