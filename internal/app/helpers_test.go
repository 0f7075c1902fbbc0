package service_test

import (
	"context"
	"io"
	"math"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/okian/lapprice/internal/adapters/artifact"
	"github.com/okian/lapprice/internal/adapters/repository"
	service "github.com/okian/lapprice/internal/app"
	"github.com/okian/lapprice/internal/domain/model"
	"github.com/okian/lapprice/internal/schema"
	"github.com/okian/lapprice/pkg/logger"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

var rawColumns = []string{
	"Company", "TypeName", "Inches", "ScreenResolution", "Cpu", "Ram",
	"Memory", "Gpu", "OpSys", "Weight", "Price",
}

// laptops builds n listings whose log price is linear in RAM, SSD size and
// an Nvidia GPU. Every 20th row has an unsupported GPU.
func laptops(n int) *model.RawTable {
	companies := []string{"Dell", "HP", "Lenovo", "Asus"}
	rams := []int{4, 8, 12, 16}
	ssds := []int{128, 256, 512}
	gpus := []string{"Intel HD Graphics 620", "Nvidia GeForce GTX 1050", "AMD Radeon 530"}

	t := &model.RawTable{Columns: rawColumns}
	for i := range n {
		ram, ssd, gpu := rams[(i/4)%4], ssds[(i/2)%3], gpus[i%3]
		if i%20 == 19 {
			gpu = "ARM Mali T860"
		}
		nvidia := 0.0
		if i%3 == 1 {
			nvidia = 1
		}
		price := math.Exp(10 + 0.03*float64(ram) + 0.0008*float64(ssd) + 0.2*nvidia)
		t.Rows = append(t.Rows, map[string]string{
			"Company":          companies[i%4],
			"TypeName":         "Notebook",
			"Inches":           "15.6",
			"ScreenResolution": "IPS Panel Full HD 1920x1080",
			"Cpu":              "Intel Core i5 8250U 1.6GHz",
			"Ram":              strconv.Itoa(ram) + "GB",
			"Memory":           strconv.Itoa(ssd) + "GB SSD",
			"Gpu":              gpu,
			"OpSys":            "Windows 10",
			"Weight":           "2.2kg",
			"Price":            strconv.FormatFloat(price, 'f', 4, 64),
		})
	}
	return t
}

func linearModel() schema.ModelParams {
	return schema.ModelParams{Name: "LinearRegression", Params: map[string]any{"fit_intercept": true}}
}

func settings(t *testing.T) service.Settings {
	s := service.DefaultSettings()
	s.WorkDir = t.TempDir()
	s.Retry = service.RetryPolicy{Attempts: 2, Backoff: time.Millisecond}
	return s
}

// flakySource fails a fixed number of times before serving its table.
type flakySource struct {
	mu    sync.Mutex
	table *model.RawTable
	fails int
	calls int
}

func (f *flakySource) Name() string { return "flaky" }

func (f *flakySource) Fetch(ctx context.Context) (*model.RawTable, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls <= f.fails {
		return nil, repository.ErrStoreUnavailable
	}
	return repository.StaticSource{Table: f.table}.Fetch(ctx)
}

func (f *flakySource) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// gatedSource blocks every Fetch until release is closed.
type gatedSource struct {
	table   *model.RawTable
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGatedSource(t *model.RawTable) *gatedSource {
	return &gatedSource{table: t, entered: make(chan struct{}), release: make(chan struct{})}
}

func (g *gatedSource) Name() string { return "gated" }

func (g *gatedSource) Fetch(ctx context.Context) (*model.RawTable, error) {
	g.once.Do(func() { close(g.entered) })
	select {
	case <-g.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return repository.StaticSource{Table: g.table}.Fetch(ctx)
}

// gatedStore is a MemoryStore whose next Get, once armed, reads the
// current object and then blocks until release is closed.
type gatedStore struct {
	*artifact.MemoryStore
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		MemoryStore: artifact.NewMemoryStore(),
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (g *gatedStore) Get(ctx context.Context) (io.ReadCloser, error) {
	rc, err := g.MemoryStore.Get(ctx)
	if g.armed.CompareAndSwap(true, false) {
		close(g.entered)
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return rc, err
}
