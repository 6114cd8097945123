package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"ride-realtime/internal/domain/geo"
	"ride-realtime/internal/general/contracts"
	"ride-realtime/internal/general/logger"
)

var (
	ErrTrackingActive   = errors.New("tracker: tracking already active")
	ErrNoProvider       = errors.New("tracker: no positioning capability available")
	ErrPermissionDenied = errors.New("tracker: location permission denied")
)

// Position is one raw device sample.
type Position struct {
	Latitude  float64
	Longitude float64
	AccuracyM float64
	At        time.Time
}

// PositionProvider abstracts the device positioning capability. Watch starts
// a continuous subscription; errors arrive on the second channel and may be
// transient (signal loss) or terminal (ErrPermissionDenied). Current is a
// one-shot fetch independent of any subscription.
type PositionProvider interface {
	Watch(ctx context.Context) (<-chan Position, <-chan error, error)
	Current(ctx context.Context) (Position, error)
}

// Emitter is where admitted samples go; satisfied by the transport client.
type Emitter interface {
	UpdateLocation(contracts.LocationUpdate) error
}

// Options tunes one tracking session. Zero values take the defaults.
type Options struct {
	RideID       string
	DailyRouteID string
	Interval     time.Duration // backup re-emit period (default 5s)
	MinDistanceM float64       // admission gate (default 10m)
	RetryAfter   time.Duration // backoff before restarting after a transient error (default 5s)
}

func (o *Options) applyDefaults() {
	if o.Interval <= 0 {
		o.Interval = 5 * time.Second
	}
	if o.MinDistanceM <= 0 {
		o.MinDistanceM = 10
	}
	if o.RetryAfter <= 0 {
		o.RetryAfter = 5 * time.Second
	}
}

// Tracker turns the raw sample stream into a filtered, rate-controlled
// stream of outbound location updates. Samples are admitted only when they
// moved more than MinDistanceM from the last forwarded one; independently,
// the last forwarded sample is re-emitted every Interval so consumers do not
// go silent when the vehicle stops.
type Tracker struct {
	provider PositionProvider
	emitter  Emitter
	logger   *logger.Logger

	mu           sync.Mutex
	active       bool
	cancel       context.CancelFunc
	driverID     string
	rideID       string
	dailyRouteID string
	opts         Options
	last         *Position // last forwarded sample
}

// New creates a tracker over the given provider and emitter.
func New(provider PositionProvider, emitter Emitter, log *logger.Logger) *Tracker {
	return &Tracker{provider: provider, emitter: emitter, logger: log}
}

// StartTracking begins a tracking session for a driver. It fails fast when a
// session is already active or no positioning capability exists.
func (t *Tracker) StartTracking(driverID string, opts Options) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active {
		return ErrTrackingActive
	}
	if t.provider == nil {
		return ErrNoProvider
	}

	opts.applyDefaults()

	ctx, cancel := context.WithCancel(context.Background())
	posCh, errCh, err := t.provider.Watch(ctx)
	if err != nil {
		cancel()
		return fmt.Errorf("tracker: start watch: %w", err)
	}

	t.active = true
	t.cancel = cancel
	t.driverID = driverID
	t.rideID = opts.RideID
	t.dailyRouteID = opts.DailyRouteID
	t.opts = opts
	t.last = nil

	go t.run(ctx, posCh, errCh)

	t.logger.Info(ctx, "tracking_started", "Location tracking started",
		map[string]any{"driver_id": driverID, "interval": opts.Interval.String(), "min_distance_m": opts.MinDistanceM})
	return nil
}

// StopTracking cancels the subscription and the backup timer and clears
// last-known state. Idempotent.
func (t *Tracker) StopTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.cancel != nil {
		t.cancel()
		t.cancel = nil
	}
	t.active = false
	t.last = nil
}

// Active reports whether a tracking session is running.
func (t *Tracker) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// GetCurrentLocation is a one-shot position fetch, independent of the
// continuous subscription.
func (t *Tracker) GetCurrentLocation(ctx context.Context) (Position, error) {
	if t.provider == nil {
		return Position{}, ErrNoProvider
	}
	pos, err := t.provider.Current(ctx)
	if err != nil {
		if errors.Is(err, ErrPermissionDenied) {
			return Position{}, fmt.Errorf("location permission was denied; enable location access and retry: %w", err)
		}
		return Position{}, fmt.Errorf("unable to determine current position: %w", err)
	}
	return pos, nil
}

// UpdateRideContext changes which ride/route subsequent samples are tagged
// with, without restarting the subscription.
func (t *Tracker) UpdateRideContext(rideID, dailyRouteID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.rideID = rideID
	t.dailyRouteID = dailyRouteID
}

// run consumes the subscription until the session is stopped. Transient
// positioning errors restart the watch after a fixed backoff, without bound:
// GPS errors are frequently momentary. Permission denial ends the session
// since only user action can fix it.
func (t *Tracker) run(ctx context.Context, posCh <-chan Position, errCh <-chan error) {
	ticker := time.NewTicker(t.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case pos, ok := <-posCh:
			if !ok {
				posCh = nil
				continue
			}
			t.maybeForward(ctx, pos)

		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if errors.Is(err, ErrPermissionDenied) {
				t.logger.Error(ctx, "tracking_permission_denied", "Positioning permission denied, tracking stopped", err, nil)
				t.StopTracking()
				return
			}

			t.logger.Error(ctx, "tracking_position_error", "Positioning error, restarting watch",
				err, map[string]any{"retry_after": t.opts.RetryAfter.String()})

			select {
			case <-ctx.Done():
				return
			case <-time.After(t.opts.RetryAfter):
			}

			newPos, newErr, werr := t.provider.Watch(ctx)
			if werr != nil {
				t.logger.Error(ctx, "tracking_restart_failed", "Watch restart failed, will retry on next error", werr, nil)
				continue
			}
			posCh, errCh = newPos, newErr

		case <-ticker.C:
			t.reemitLast(ctx)
		}
	}
}

// maybeForward applies the distance gate: the first sample always goes out;
// later samples only when they moved more than MinDistanceM from the last
// forwarded one.
func (t *Tracker) maybeForward(ctx context.Context, pos Position) {
	t.mu.Lock()
	if t.last != nil {
		moved := geo.DistanceMeters(t.last.Latitude, t.last.Longitude, pos.Latitude, pos.Longitude)
		if moved <= t.opts.MinDistanceM {
			t.mu.Unlock()
			return
		}
	}
	t.last = &pos
	update := t.updateLocked(pos)
	t.mu.Unlock()

	t.forward(ctx, update)
}

// reemitLast re-sends the last forwarded sample as a backup heartbeat.
func (t *Tracker) reemitLast(ctx context.Context) {
	t.mu.Lock()
	if t.last == nil {
		t.mu.Unlock()
		return
	}
	update := t.updateLocked(*t.last)
	t.mu.Unlock()

	t.forward(ctx, update)
}

// updateLocked builds the outbound payload with the current ride tags.
// Caller holds mu.
func (t *Tracker) updateLocked(pos Position) contracts.LocationUpdate {
	return contracts.LocationUpdate{
		DriverID:     t.driverID,
		Latitude:     pos.Latitude,
		Longitude:    pos.Longitude,
		RideID:       t.rideID,
		DailyRouteID: t.dailyRouteID,
	}
}

func (t *Tracker) forward(ctx context.Context, update contracts.LocationUpdate) {
	if err := t.emitter.UpdateLocation(update); err != nil {
		// Fire-and-forget: the next admitted sample or backup tick resends.
		t.logger.Debug(ctx, "location_emit_failed", "Location update not dispatched",
			map[string]any{"driver_id": update.DriverID, "error": err.Error()})
	}
}
