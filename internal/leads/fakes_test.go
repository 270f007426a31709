package leads

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

type fakeAdapter struct {
	name   string
	result ProviderResult
	delay  time.Duration
	panics bool
	calls  atomic.Int32
}

func (f *fakeAdapter) Name() string { return f.name }

func (f *fakeAdapter) Send(ctx context.Context, lead LeadRecord) ProviderResult {
	f.calls.Add(1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.panics {
		panic("adapter exploded")
	}
	return f.result
}

func okAdapter(name string) *fakeAdapter {
	return &fakeAdapter{name: name, result: Succeeded(name)}
}

func failingAdapter(name string) *fakeAdapter {
	return &fakeAdapter{name: name, result: Failed(name, errors.New("status 500"))}
}

func conflictAdapter(name string) *fakeAdapter {
	return &fakeAdapter{name: name, result: Conflict(name, FieldPhone, PhoneConflictMessage)}
}

// syncRunner records tasks and runs them on Drain.
type syncRunner struct {
	mu    sync.Mutex
	names []string
	fns   []func(ctx context.Context) error
}

func (r *syncRunner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.names = append(r.names, name)
	r.fns = append(r.fns, fn)
}

func (r *syncRunner) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.names...)
}

func (r *syncRunner) Drain() []error {
	r.mu.Lock()
	fns := r.fns
	r.fns = nil
	r.mu.Unlock()
	var errs []error
	for _, fn := range fns {
		errs = append(errs, fn(context.Background()))
	}
	return errs
}

type fakeConfirmation struct {
	err   error
	calls atomic.Int32
}

func (f *fakeConfirmation) Confirm(ctx context.Context, lead LeadRecord) error {
	f.calls.Add(1)
	return f.err
}

type fakeStatusUpdater struct {
	err    error
	panics bool
	email  string
	status BookingStatus
}

func (f *fakeStatusUpdater) Name() string { return "fake" }

func (f *fakeStatusUpdater) UpdateStatus(ctx context.Context, email string, status BookingStatus) error {
	if f.panics {
		panic("nil map")
	}
	f.email = email
	f.status = status
	return f.err
}

func janeRuiz() LeadRecord {
	return LeadRecord{
		FullName:          "Jane Ruiz",
		Email:             "jane@acme.com",
		Phone:             "9171234567",
		Company:           "Acme Co",
		InterestedService: "Business Automation",
		BookingStatus:     StatusPending,
	}
}
