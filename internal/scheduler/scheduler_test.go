package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/navid-fn/nerkh/internal/models"
	"github.com/navid-fn/nerkh/internal/rates"
)

type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(event string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recorder) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeService struct {
	name string
	err  error
	rec  *recorder
}

func (f *fakeService) Name() string { return f.name }

func (f *fakeService) Refresh(ctx context.Context) (*models.PriceTable, error) {
	f.rec.add("refresh:" + f.name)
	if f.err != nil {
		return nil, f.err
	}
	table := models.NewPriceTable(f.name, time.Now())
	table.Set(models.PriceQuote{Symbol: "X", Value: 1})
	return table, nil
}

type fakeBuilder struct {
	rec *recorder
	err error
}

func (f *fakeBuilder) BuildReport(ctx context.Context, symbols []string, lang string, useCache bool) (string, error) {
	f.rec.add("report:" + lang)
	if f.err != nil {
		return "", f.err
	}
	return "the report", nil
}

type fakeNotifier struct{ rec *recorder }

func (f *fakeNotifier) Post(ctx context.Context, text string) error {
	f.rec.add("post:" + text)
	return nil
}

type fakePublisher struct{ rec *recorder }

func (f *fakePublisher) Publish(ctx context.Context, s models.Snapshot) error {
	f.rec.add("publish:" + s.Source)
	return errors.New("broker down")
}

func (f *fakePublisher) Close() {}

type fakeHistory struct {
	rec *recorder
	usd float64
}

func (f *fakeHistory) SaveSnapshot(ctx context.Context, s models.Snapshot) error {
	f.rec.add("store:" + s.Source)
	f.usd = s.USDToLocal
	return nil
}

func (f *fakeHistory) Close() error { return nil }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestRunOnceOrder(t *testing.T) {
	rec := &recorder{}
	history := &fakeHistory{rec: rec}
	s := New(Config{
		Services: []Refresher{
			&fakeService{name: "currency", rec: rec},
			&fakeService{name: "crypto", rec: rec, err: errors.New("timeout")},
		},
		Builder:   &fakeBuilder{rec: rec},
		Baseline:  rates.NewBaseline(102000, 101000),
		Notifier:  &fakeNotifier{rec: rec},
		Publisher: &fakePublisher{rec: rec},
		History:   history,
		Language:  "fa",
	}, quietLogger())

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, []string{
		"refresh:currency",
		"refresh:crypto",
		"report:fa",
		"post:the report",
		"publish:currency",
		"store:currency",
	}, rec.list())
	assert.Equal(t, 102000.0, history.usd)
}

func TestRunOnceWithoutOptionalSinks(t *testing.T) {
	rec := &recorder{}
	s := New(Config{
		Services: []Refresher{&fakeService{name: "currency", rec: rec}},
		Builder:  &fakeBuilder{rec: rec},
		Baseline: rates.NewBaseline(1, 1),
	}, quietLogger())

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, []string{"refresh:currency", "report:"}, rec.list())
}

func TestRunOnceReportFailure(t *testing.T) {
	rec := &recorder{}
	s := New(Config{
		Builder:  &fakeBuilder{rec: rec, err: models.ErrNoData},
		Baseline: rates.NewBaseline(1, 1),
		Notifier: &fakeNotifier{rec: rec},
	}, quietLogger())

	err := s.RunOnce(context.Background())
	assert.ErrorIs(t, err, models.ErrNoData)
	assert.Equal(t, []string{"report:"}, rec.list())
}

func TestRunStopsOnCancel(t *testing.T) {
	rec := &recorder{}
	s := New(Config{
		Services: []Refresher{&fakeService{name: "currency", rec: rec}},
		Builder:  &fakeBuilder{rec: rec},
		Baseline: rates.NewBaseline(1, 1),
		Interval: time.Hour,
	}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	require.Eventually(t, func() bool { return len(rec.list()) >= 2 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
	assert.Equal(t, []string{"refresh:currency", "report:"}, rec.list())
}

func TestDefaultInterval(t *testing.T) {
	s := New(Config{}, quietLogger())
	assert.Equal(t, DefaultInterval, s.cfg.Interval)
	assert.Equal(t, "scheduler", s.Name())
}
