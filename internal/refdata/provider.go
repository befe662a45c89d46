package refdata

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/bluedeem/clinic-ai-platform/pkg/logging"
)

// ErrNotLoaded indicates no snapshot has been loaded yet.
var ErrNotLoaded = errors.New("refdata: no snapshot loaded")

// Provider owns the current reference snapshot and refreshes it on a cadence.
// Readers get a consistent snapshot pointer; refreshes swap atomically and
// never mutate a published snapshot.
type Provider struct {
	source  Source
	logger  *logging.Logger
	current atomic.Pointer[Snapshot]
}

// NewProvider creates a provider over source. Call Refresh (or Run) before
// serving traffic; Current returns nil until the first successful load.
func NewProvider(source Source, logger *logging.Logger) *Provider {
	if source == nil {
		panic("refdata: source cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Provider{source: source, logger: logger}
}

// Current returns the latest snapshot, or nil before the first load.
func (p *Provider) Current() *Snapshot {
	return p.current.Load()
}

// Refresh loads all sheets and swaps in a new snapshot. A failed load leaves
// the previous snapshot in place.
func (p *Provider) Refresh(ctx context.Context) error {
	snap, err := p.load(ctx)
	if err != nil {
		return err
	}
	p.current.Store(snap)
	p.logger.Info("refdata: snapshot refreshed",
		"doctors", len(snap.Doctors()),
		"branches", len(snap.Branches()),
		"services", len(snap.Services()),
	)
	return nil
}

// Run refreshes on the given interval until ctx is cancelled. Refresh errors
// are logged and the stale snapshot stays live.
func (p *Provider) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.Refresh(ctx); err != nil {
				p.logger.Error("refdata: refresh failed, keeping stale snapshot", "error", err)
			}
		}
	}
}

func (p *Provider) load(ctx context.Context) (*Snapshot, error) {
	doctorRows, err := p.source.Doctors(ctx)
	if err != nil {
		return nil, fmt.Errorf("refdata: load doctors: %w", err)
	}
	branchRows, err := p.source.Branches(ctx)
	if err != nil {
		return nil, fmt.Errorf("refdata: load branches: %w", err)
	}
	serviceRows, err := p.source.Services(ctx)
	if err != nil {
		return nil, fmt.Errorf("refdata: load services: %w", err)
	}
	availabilityRows, err := p.source.Availability(ctx)
	if err != nil {
		return nil, fmt.Errorf("refdata: load availability: %w", err)
	}

	doctors, err := buildDoctors(doctorRows)
	if err != nil {
		return nil, err
	}
	branches, err := buildBranches(branchRows)
	if err != nil {
		return nil, err
	}
	services, err := buildServices(serviceRows)
	if err != nil {
		return nil, err
	}
	availability, err := buildAvailability(availabilityRows)
	if err != nil {
		return nil, err
	}

	return NewSnapshot(doctors, branches, services, availability), nil
}
