package mcp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sriram-PR/aio-diagnoser/pkg/models"
)

func testRequest(site string) models.DiagnosisRequest {
	return models.DiagnosisRequest{URL: site, Industry: "歯科医院", Region: "渋谷区"}
}

func createTestJob(t *testing.T, jm *JobManager, site string) Job {
	t.Helper()
	job, created := jm.CreateJob(testRequest(site))
	require.True(t, created)
	require.NotEmpty(t, job.ID)
	return job
}

func mustGetJob(t *testing.T, jm *JobManager, id string) Job {
	t.Helper()
	job, ok := jm.GetJob(id)
	require.True(t, ok)
	return job
}

func waitForStatus(t *testing.T, jm *JobManager, id string, want JobStatus) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		job = mustGetJob(t, jm, id)
		return job.Status == want
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestNewJobManager(t *testing.T) {
	jm := NewJobManager(2)
	require.NotNil(t, jm)
	assert.Empty(t, jm.ListJobs())

	// Non-positive limits still allow one job at a time
	assert.NotNil(t, NewJobManager(0).sem)
}

func TestCreateJob(t *testing.T) {
	t.Run("new job fields correct", func(t *testing.T) {
		jm := NewJobManager(1)
		job := createTestJob(t, jm, "example.com")

		assert.Equal(t, testRequest("example.com"), job.Request)
		assert.Equal(t, JobStatusPending, job.Status)
		assert.False(t, job.StartedAt.IsZero())
		assert.True(t, job.CompletedAt.IsZero())
		assert.Empty(t, job.DiagnosisID)
		assert.Empty(t, job.ErrorMessage)
	})

	t.Run("equivalent active request returns same job", func(t *testing.T) {
		jm := NewJobManager(1)
		job1 := createTestJob(t, jm, "example.com")
		job2, created := jm.CreateJob(models.DiagnosisRequest{URL: " Example.com ", Industry: "歯科医院", Region: "渋谷区"})
		assert.False(t, created)
		assert.Equal(t, job1.ID, job2.ID)
	})

	t.Run("new job allowed after completion", func(t *testing.T) {
		jm := NewJobManager(1)
		job1 := createTestJob(t, jm, "example.com")
		jm.UpdateStatus(job1.ID, JobStatusCompleted, "")

		job2 := createTestJob(t, jm, "example.com")
		assert.NotEqual(t, job1.ID, job2.ID)
	})

	t.Run("different region is independent", func(t *testing.T) {
		jm := NewJobManager(1)
		job1 := createTestJob(t, jm, "example.com")
		job2, created := jm.CreateJob(models.DiagnosisRequest{URL: "example.com", Industry: "歯科医院", Region: "新宿区"})
		assert.True(t, created)
		assert.NotEqual(t, job1.ID, job2.ID)
	})
}

func TestGetJob(t *testing.T) {
	jm := NewJobManager(1)

	t.Run("exists returns job", func(t *testing.T) {
		job := createTestJob(t, jm, "example.com")
		got := mustGetJob(t, jm, job.ID)
		assert.Equal(t, job.ID, got.ID)
	})

	t.Run("missing returns false", func(t *testing.T) {
		_, ok := jm.GetJob("nonexistent-id")
		assert.False(t, ok)
	})
}

func TestIsRunning(t *testing.T) {
	jm := NewJobManager(1)

	t.Run("true for pending", func(t *testing.T) {
		createTestJob(t, jm, "pending.example")
		assert.True(t, jm.IsRunning(testRequest("pending.example")))
	})

	t.Run("true for running", func(t *testing.T) {
		job := createTestJob(t, jm, "running.example")
		jm.UpdateStatus(job.ID, JobStatusRunning, "")
		assert.True(t, jm.IsRunning(testRequest("running.example")))
	})

	t.Run("false for failed", func(t *testing.T) {
		job := createTestJob(t, jm, "failed.example")
		jm.UpdateStatus(job.ID, JobStatusFailed, "something broke")
		assert.False(t, jm.IsRunning(testRequest("failed.example")))
	})

	t.Run("false for cancelled", func(t *testing.T) {
		job := createTestJob(t, jm, "cancelled.example")
		jm.CancelJob(job.ID)
		assert.False(t, jm.IsRunning(testRequest("cancelled.example")))
	})

	t.Run("false for nonexistent", func(t *testing.T) {
		assert.False(t, jm.IsRunning(testRequest("ghost.example")))
	})
}

func TestUpdateStatus(t *testing.T) {
	t.Run("to failed sets ErrorMessage and CompletedAt", func(t *testing.T) {
		jm := NewJobManager(1)
		job := createTestJob(t, jm, "example.com")
		assert.True(t, jm.UpdateStatus(job.ID, JobStatusFailed, "out of memory"))

		got := mustGetJob(t, jm, job.ID)
		assert.Equal(t, JobStatusFailed, got.Status)
		assert.Equal(t, "out of memory", got.ErrorMessage)
		assert.False(t, got.CompletedAt.IsZero())
	})

	t.Run("finished job is not reopened", func(t *testing.T) {
		jm := NewJobManager(1)
		job := createTestJob(t, jm, "example.com")
		jm.UpdateStatus(job.ID, JobStatusCompleted, "")
		assert.False(t, jm.UpdateStatus(job.ID, JobStatusRunning, ""))
		assert.Equal(t, JobStatusCompleted, mustGetJob(t, jm, job.ID).Status)
	})

	t.Run("nonexistent is no-op", func(t *testing.T) {
		jm := NewJobManager(1)
		assert.False(t, jm.UpdateStatus("fake-id", JobStatusRunning, ""))
	})
}

func TestStart(t *testing.T) {
	t.Run("success stores result", func(t *testing.T) {
		jm := NewJobManager(1)
		job := createTestJob(t, jm, "example.com")
		want := &models.DiagnosisResult{ID: "diag-1", TotalScore: 64}

		jm.Start(job.ID, func(ctx context.Context) (*models.DiagnosisResult, error) {
			return want, nil
		})

		got := waitForStatus(t, jm, job.ID, JobStatusCompleted)
		assert.Equal(t, "diag-1", got.DiagnosisID)
		assert.False(t, got.CompletedAt.IsZero())
		assert.Same(t, want, jm.Result("diag-1"))
		assert.Nil(t, jm.Result("other"))
		assert.False(t, jm.IsRunning(testRequest("example.com")))
	})

	t.Run("error marks failed", func(t *testing.T) {
		jm := NewJobManager(1)
		job := createTestJob(t, jm, "example.com")

		jm.Start(job.ID, func(ctx context.Context) (*models.DiagnosisResult, error) {
			return nil, errors.New("サイトのクロールに失敗しました")
		})

		got := waitForStatus(t, jm, job.ID, JobStatusFailed)
		assert.Equal(t, "サイトのクロールに失敗しました", got.ErrorMessage)
	})

	t.Run("concurrency is bounded", func(t *testing.T) {
		jm := NewJobManager(2)
		release := make(chan struct{})
		var active, peak atomic.Int32

		ids := make([]string, 0, 5)
		for _, site := range []string{"a.example", "b.example", "c.example", "d.example", "e.example"} {
			job := createTestJob(t, jm, site)
			ids = append(ids, job.ID)
			jm.Start(job.ID, func(ctx context.Context) (*models.DiagnosisResult, error) {
				n := active.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				<-release
				active.Add(-1)
				return &models.DiagnosisResult{ID: "r-" + site}, nil
			})
		}

		require.Eventually(t, func() bool { return active.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
		close(release)
		for _, id := range ids {
			waitForStatus(t, jm, id, JobStatusCompleted)
		}
		assert.Equal(t, int32(2), peak.Load())
	})

	t.Run("cancel while waiting for a slot", func(t *testing.T) {
		jm := NewJobManager(1)
		block := make(chan struct{})
		defer close(block)

		first := createTestJob(t, jm, "a.example")
		jm.Start(first.ID, func(ctx context.Context) (*models.DiagnosisResult, error) {
			<-block
			return nil, nil
		})
		waitForStatus(t, jm, first.ID, JobStatusRunning)

		var ran atomic.Bool
		second := createTestJob(t, jm, "b.example")
		jm.Start(second.ID, func(ctx context.Context) (*models.DiagnosisResult, error) {
			ran.Store(true)
			return nil, nil
		})

		assert.True(t, jm.CancelJob(second.ID))
		time.Sleep(20 * time.Millisecond)
		assert.Equal(t, JobStatusCancelled, mustGetJob(t, jm, second.ID).Status)
		assert.False(t, ran.Load())
	})

	t.Run("cancel while running", func(t *testing.T) {
		jm := NewJobManager(1)
		job := createTestJob(t, jm, "example.com")
		started := make(chan struct{})

		jm.Start(job.ID, func(ctx context.Context) (*models.DiagnosisResult, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		})

		<-started
		assert.True(t, jm.CancelJob(job.ID))
		got := waitForStatus(t, jm, job.ID, JobStatusCancelled)
		assert.Empty(t, got.ErrorMessage)
	})
}

func TestCancelJob(t *testing.T) {
	t.Run("running job cancelled", func(t *testing.T) {
		jm := NewJobManager(1)
		job := createTestJob(t, jm, "example.com")
		jm.UpdateStatus(job.ID, JobStatusRunning, "")

		assert.True(t, jm.CancelJob(job.ID))

		got := mustGetJob(t, jm, job.ID)
		assert.Equal(t, JobStatusCancelled, got.Status)
		assert.False(t, got.CompletedAt.IsZero())
		assert.Error(t, jm.GetContext(job.ID).Err())
	})

	t.Run("completed job not cancellable", func(t *testing.T) {
		jm := NewJobManager(1)
		job := createTestJob(t, jm, "example.com")
		jm.UpdateStatus(job.ID, JobStatusCompleted, "")
		assert.False(t, jm.CancelJob(job.ID))
	})

	t.Run("nonexistent returns false", func(t *testing.T) {
		jm := NewJobManager(1)
		assert.False(t, jm.CancelJob("nope"))
	})
}

func TestCancelAll(t *testing.T) {
	jm := NewJobManager(1)
	job1 := createTestJob(t, jm, "a.example")
	job2 := createTestJob(t, jm, "b.example")
	job3 := createTestJob(t, jm, "c.example")
	jm.UpdateStatus(job3.ID, JobStatusCompleted, "")

	jm.CancelAll()

	assert.Equal(t, JobStatusCancelled, mustGetJob(t, jm, job1.ID).Status)
	assert.Equal(t, JobStatusCancelled, mustGetJob(t, jm, job2.ID).Status)
	assert.Equal(t, JobStatusCompleted, mustGetJob(t, jm, job3.ID).Status)

	newJob, created := jm.CreateJob(testRequest("a.example"))
	assert.True(t, created)
	assert.NotEqual(t, job1.ID, newJob.ID)
}

func TestListJobs(t *testing.T) {
	jm := NewJobManager(1)
	job1 := createTestJob(t, jm, "a.example")
	job2 := createTestJob(t, jm, "b.example")

	jobs := jm.ListJobs()
	assert.Len(t, jobs, 2)

	ids := make(map[string]bool)
	for _, j := range jobs {
		ids[j.ID] = true
	}
	assert.True(t, ids[job1.ID])
	assert.True(t, ids[job2.ID])
}

func TestGetContext(t *testing.T) {
	t.Run("valid job returns non-cancelled context", func(t *testing.T) {
		jm := NewJobManager(1)
		job := createTestJob(t, jm, "example.com")
		assert.NoError(t, jm.GetContext(job.ID).Err())
	})

	t.Run("nonexistent returns background context", func(t *testing.T) {
		jm := NewJobManager(1)
		assert.Equal(t, context.Background(), jm.GetContext("nope"))
	})
}
