// Package timerclient implements the polling side of the measurement-timer
// contract: it caches server-computed countdown state for a set of patients,
// ticks it down locally for visual smoothness, and periodically reconciles
// against the server, which stays the single source of truth.
package timerclient

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// TimerState is the wire form of one patient's countdown state.
type TimerState struct {
	PatientID           string     `json:"patient_id"`
	Status              string     `json:"status"`
	StatusColor         string     `json:"status_color"`
	Period              int        `json:"period"`
	IntervalMinutes     int        `json:"interval_minutes"`
	RemainingSeconds    int64      `json:"remaining_seconds"`
	LastMeasurementTime *time.Time `json:"last_measurement_time,omitempty"`
	NextMeasurementTime *time.Time `json:"next_measurement_time,omitempty"`
}

const statusInProgress = "in_progress"

type timersPage struct {
	Data []TimerState `json:"data"`
}

// Options configures a Client.
type Options struct {
	// BaseURL is the API root, e.g. "http://ward-server:8080/api/v1".
	BaseURL string
	// AuthToken, when set, is sent as a Bearer token on every poll.
	AuthToken string

	// PatientID, when set, switches the client to single-patient mode:
	// it polls the per-patient timer endpoint instead of the bulk one.
	PatientID string

	// ForegroundPollInterval is the reconciliation cadence while the view
	// is visible. Defaults to 10s.
	ForegroundPollInterval time.Duration
	// BackgroundPollInterval is the cadence while hidden. Defaults to 60s.
	BackgroundPollInterval time.Duration
	// TickInterval is the local countdown cadence. Defaults to 1s.
	TickInterval time.Duration

	// OnChange is invoked after a reconciliation in which a patient's
	// status or period differs from the cached value, so dependent UI can
	// re-render beyond the numeric countdown.
	OnChange func(prev, curr TimerState)

	// Logger receives poll-failure warnings. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Client keeps a local mirror of server timer state for one view.
// It is safe for concurrent use.
type Client struct {
	http     *resty.Client
	log      zerolog.Logger
	onChange func(prev, curr TimerState)

	patientID    string
	fgInterval   time.Duration
	bgInterval   time.Duration
	tickInterval time.Duration

	mu      sync.Mutex
	states  map[string]TimerState
	visible bool

	wake   chan struct{}
	cancel context.CancelFunc
	done   chan struct{}
}

func New(opts Options) *Client {
	if opts.ForegroundPollInterval <= 0 {
		opts.ForegroundPollInterval = 10 * time.Second
	}
	if opts.BackgroundPollInterval <= 0 {
		opts.BackgroundPollInterval = 60 * time.Second
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = time.Second
	}

	httpc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(5 * time.Second)
	if opts.AuthToken != "" {
		httpc.SetAuthToken(opts.AuthToken)
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = *opts.Logger
	}

	return &Client{
		http:         httpc,
		log:          log,
		onChange:     opts.OnChange,
		patientID:    opts.PatientID,
		fgInterval:   opts.ForegroundPollInterval,
		bgInterval:   opts.BackgroundPollInterval,
		tickInterval: opts.TickInterval,
		states:       make(map[string]TimerState),
		visible:      true,
		wake:         make(chan struct{}, 1),
	}
}

// Start launches the tick and poll loops. The first reconciliation happens
// immediately. Call Stop to tear the loops down when the view goes away.
func (c *Client) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.done = make(chan struct{})
	go c.run(ctx)
}

// Stop cancels the loops and waits for them to exit.
func (c *Client) Stop() {
	if c.cancel == nil {
		return
	}
	c.cancel()
	<-c.done
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)

	tick := time.NewTicker(c.tickInterval)
	defer tick.Stop()

	poll := time.NewTimer(0)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-tick.C:
			c.tick()
		case <-poll.C:
			c.reconcile(ctx)
			poll.Reset(c.pollInterval())
		case <-c.wake:
			if !poll.Stop() {
				select {
				case <-poll.C:
				default:
				}
			}
			c.reconcile(ctx)
			poll.Reset(c.pollInterval())
		}
	}
}

// SetVisible tracks view visibility. Hiding suspends the local countdown
// (a resumed tick must not fast-forward); showing forces an immediate
// reconciliation and returns to the foreground poll cadence.
func (c *Client) SetVisible(visible bool) {
	c.mu.Lock()
	was := c.visible
	c.visible = visible
	c.mu.Unlock()

	if visible && !was {
		select {
		case c.wake <- struct{}{}:
		default:
		}
	}
}

// State returns the cached timer state for one patient.
func (c *Client) State(patientID string) (TimerState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[patientID]
	return st, ok
}

// States returns a copy of all cached timer states.
func (c *Client) States() []TimerState {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]TimerState, 0, len(c.states))
	for _, st := range c.states {
		out = append(out, st)
	}
	return out
}

// tick decrements every in-labor countdown by one second, floored at zero.
// The local tick is cosmetic only; reconciliation overwrites it.
func (c *Client) tick() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.visible {
		return
	}
	for id, st := range c.states {
		if st.Status != statusInProgress || st.RemainingSeconds == 0 {
			continue
		}
		st.RemainingSeconds--
		c.states[id] = st
	}
}

func (c *Client) pollInterval() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.visible {
		return c.fgInterval
	}
	return c.bgInterval
}

// reconcile overwrites the cache with fresh server state. A failed poll
// leaves the previous cache in place; stale-but-reasonable beats blank.
func (c *Client) reconcile(ctx context.Context) {
	fresh, err := c.fetch(ctx)
	if err != nil {
		c.log.Warn().Err(err).Msg("timer poll failed, keeping cached state")
		return
	}

	c.mu.Lock()
	var changed []struct{ prev, curr TimerState }
	next := make(map[string]TimerState, len(fresh))
	for _, st := range fresh {
		if prev, ok := c.states[st.PatientID]; ok &&
			(prev.Status != st.Status || prev.Period != st.Period) {
			changed = append(changed, struct{ prev, curr TimerState }{prev, st})
		}
		next[st.PatientID] = st
	}
	c.states = next
	c.mu.Unlock()

	if c.onChange != nil {
		for _, ch := range changed {
			c.onChange(ch.prev, ch.curr)
		}
	}
}

func (c *Client) fetch(ctx context.Context) ([]TimerState, error) {
	if c.patientID != "" {
		var st TimerState
		resp, err := c.http.R().
			SetContext(ctx).
			SetResult(&st).
			Get("/patients/" + c.patientID + "/timer")
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return nil, fmt.Errorf("timer poll: %s", resp.Status())
		}
		return []TimerState{st}, nil
	}

	var page timersPage
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&page).
		Get("/timers")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("timer poll: %s", resp.Status())
	}
	return page.Data, nil
}
