package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	worker "github.com/okian/lapprice/internal/adapters/mq/worker"
	model "github.com/okian/lapprice/internal/domain/model"
	logging "github.com/okian/lapprice/pkg/logger"
	"github.com/smartystreets/goconvey/convey"
)

type mockQueue struct {
	jobs chan worker.Job
}

func newMockQueue() *mockQueue {
	return &mockQueue{jobs: make(chan worker.Job, 10)}
}

func (mq *mockQueue) Dequeue(ctx context.Context) <-chan worker.Job {
	return mq.jobs
}

type mockRunner struct {
	mu     sync.Mutex
	ran    []string
	errs   map[string]error
	panics map[string]bool
	active int
	peak   int
	delay  time.Duration

	// gate, when set, holds every job until closed; entered gets each job id.
	gate    chan struct{}
	entered chan string
}

func newMockRunner() *mockRunner {
	return &mockRunner{errs: map[string]error{}, panics: map[string]bool{}}
}

func (m *mockRunner) RunJob(ctx context.Context, j worker.Job) error {
	m.mu.Lock()
	m.active++
	m.peak = max(m.peak, m.active)
	m.mu.Unlock()

	time.Sleep(m.delay)
	if m.gate != nil {
		m.entered <- j.ID
		<-m.gate
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.active--
	m.ran = append(m.ran, j.ID)
	if m.panics[j.ID] {
		panic("boom")
	}
	return m.errs[j.ID]
}

func (m *mockRunner) snapshot() ([]string, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ran...), m.peak
}

func TestInMemoryWorker(t *testing.T) {
	convey.Convey("Given a training worker", t, func() {
		_ = logging.Init()

		q := newMockQueue()
		r := newMockRunner()
		r.errs["bad"] = errors.New("train failed")
		r.panics["worse"] = true
		r.delay = 2 * time.Millisecond
		w := worker.NewInMemoryWorker(q, r, worker.WithName("test-trainer"))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go w.Run(ctx)

		convey.Convey("When jobs are queued", func() {
			for _, id := range []string{"a", "b", "c"} {
				q.jobs <- model.TrainingJob{ID: id}
			}
			time.Sleep(100 * time.Millisecond)

			convey.Convey("Then they run in order, one at a time", func() {
				ran, peak := r.snapshot()
				convey.So(ran, convey.ShouldResemble, []string{"a", "b", "c"})
				convey.So(peak, convey.ShouldEqual, 1)
			})
		})

		convey.Convey("When a job fails or panics", func() {
			q.jobs <- model.TrainingJob{ID: "bad"}
			q.jobs <- model.TrainingJob{ID: "worse"}
			q.jobs <- model.TrainingJob{ID: "good"}
			time.Sleep(50 * time.Millisecond)

			convey.Convey("Then the worker keeps going", func() {
				ran, _ := r.snapshot()
				convey.So(ran, convey.ShouldResemble, []string{"bad", "worse", "good"})
			})
		})

		convey.Convey("When shutting down", func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer shutdownCancel()

			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
			convey.So(w.Shutdown(shutdownCtx), convey.ShouldBeNil)
		})
	})

	convey.Convey("Given a worker whose queue closes", t, func() {
		_ = logging.Init()
		q := newMockQueue()
		w := worker.NewInMemoryWorker(q, newMockRunner())
		go w.Run(context.Background())
		close(q.jobs)

		convey.Convey("Then Run returns", func() {
			select {
			case <-w.Done():
				convey.So(true, convey.ShouldBeTrue)
			case <-time.After(time.Second):
				convey.So("worker did not stop", convey.ShouldBeEmpty)
			}
		})
	})
}

func TestInMemoryWorker_ShutdownSkipsQueuedJobs(t *testing.T) {
	convey.Convey("Given a worker busy with a job and another one queued", t, func() {
		_ = logging.Init()
		q := newMockQueue()
		r := newMockRunner()
		r.gate, r.entered = make(chan struct{}), make(chan string, 2)
		w := worker.NewInMemoryWorker(q, r)
		go w.Run(context.Background())

		q.jobs <- model.TrainingJob{ID: "first"}
		q.jobs <- model.TrainingJob{ID: "second"}
		convey.So(<-r.entered, convey.ShouldEqual, "first")

		convey.Convey("When shutdown is requested before the job finishes", func() {
			expired, cancel := context.WithCancel(context.Background())
			cancel()
			convey.So(w.Shutdown(expired), convey.ShouldNotBeNil)
			close(r.gate)

			convey.Convey("Then the worker stops without taking the queued job", func() {
				select {
				case <-w.Done():
				case <-time.After(time.Second):
					convey.So("worker did not stop", convey.ShouldBeEmpty)
				}
				ran, _ := r.snapshot()
				convey.So(ran, convey.ShouldResemble, []string{"first"})
				convey.So(q.jobs, convey.ShouldHaveLength, 1)
			})
		})
	})
}
