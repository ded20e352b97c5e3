package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

type countingJob struct {
	runs int
	err  error
}

func (j *countingJob) Name() string { return "counting" }

func (j *countingJob) Run() error {
	j.runs++
	return j.err
}

func TestScheduler_AddJob(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))

	tests := []struct {
		name     string
		schedule string
		wantErr  bool
	}{
		{name: "six fields", schedule: "0 0 2 * * *"},
		{name: "descriptor", schedule: "@hourly"},
		{name: "interval", schedule: "@every 30s"},
		{name: "five fields rejected", schedule: "0 2 * * *", wantErr: true},
		{name: "garbage", schedule: "often", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.AddJob(tt.schedule, &countingJob{})
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestScheduler_RunNow(t *testing.T) {
	s := New(zerolog.New(nil).Level(zerolog.Disabled))
	job := &countingJob{err: errors.New("boom")}

	assert.Error(t, s.RunNow(job))
	assert.Equal(t, 1, job.runs)

	s.Start()
	s.Stop()
}
