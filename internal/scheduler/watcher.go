// Package scheduler arms per-item deadline timers and turns their firings into
// reminder submissions.
package scheduler

import (
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/deadline-reminders/internal/cancellation"
	"github.com/notifyhub/deadline-reminders/internal/clock"
	"github.com/notifyhub/deadline-reminders/internal/domain"
)

// Submitter routes a phase payload into the dispatch queue under the watch's token.
type Submitter interface {
	Dispatch(p domain.Payload, tok *cancellation.Token) <-chan domain.SendResult
}

// Unbounded disables the catch-up window for overdue phases.
const Unbounded time.Duration = -1

// Watcher owns every registered watch and its armed timers.
type Watcher struct {
	mu       sync.Mutex
	clock    clock.Clock
	registry *cancellation.Registry
	submit   Submitter
	phases   []domain.Phase
	catchUp  time.Duration
	logger   *zap.Logger
	hooks    Hooks
	watches  map[string]*watch
	stopped  bool
}

// Hooks are optional observation callbacks.
type Hooks struct {
	OnFire    func(phase string)
	OnWatches func(active int)
}

type watch struct {
	cfg   domain.WatchConfig
	token *cancellation.Token
	gen   uint64
	armed map[string]clock.Timer
	fired map[string]struct{}
}

type firing struct {
	key   string
	item  domain.WatchItem
	phase domain.Phase
}

func NewWatcher(
	clk clock.Clock,
	registry *cancellation.Registry,
	submit Submitter,
	phases []domain.Phase,
	catchUp time.Duration,
	logger *zap.Logger,
	hooks Hooks,
) *Watcher {
	if len(phases) == 0 {
		phases = domain.DefaultPhases
	}
	if hooks.OnFire == nil {
		hooks.OnFire = func(string) {}
	}
	if hooks.OnWatches == nil {
		hooks.OnWatches = func(int) {}
	}
	return &Watcher{
		clock:    clk,
		registry: registry,
		submit:   submit,
		phases:   phases,
		catchUp:  catchUp,
		logger:   logger,
		hooks:    hooks,
		watches:  make(map[string]*watch),
	}
}

// Watch registers cfg, replacing any timers previously armed for the same id.
// Overdue phases that passed less than the catch-up window ago fire at once;
// older ones are left to Recheck. The returned func cancels the watch.
func (w *Watcher) Watch(cfg domain.WatchConfig) (func(), error) {
	if err := cfg.Validate(); err != nil {
		return func() {}, err
	}
	next := cfg.Clone()
	if _, err := w.arm(cfg.WatchID, &next, w.catchUp); err != nil {
		return func() {}, err
	}
	id := cfg.WatchID
	return func() { w.Cancel(id) }, nil
}

// Recheck re-arms every registered watch relative to the current time with an
// unbounded catch-up window, so an overdue phase missed while the host was
// suspended fires exactly once. Each watch is re-armed from the config stored
// at that moment, so a Watch racing with the pass is never rolled back.
// Returns the number of watches re-armed.
func (w *Watcher) Recheck() int {
	n := 0
	for _, id := range w.ids() {
		ok, err := w.arm(id, nil, Unbounded)
		if err != nil {
			w.logger.Warn("recheck failed", zap.String("watch_id", id), zap.Error(err))
			continue
		}
		if ok {
			n++
		}
	}
	return n
}

func (w *Watcher) ids() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.watches))
	for id := range w.watches {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Cancel stops every timer armed under id, cancels its token so queued jobs
// drain without sending, and forgets the stored config. Unknown ids still
// leave a cancellation tombstone. Reports whether the id was registered.
func (w *Watcher) Cancel(id string) bool {
	w.mu.Lock()
	entry, ok := w.watches[id]
	if ok {
		entry.stopTimers()
	}
	w.registry.Cancel(id, w.clock.Now())
	delete(w.watches, id)
	active := len(w.watches)
	w.mu.Unlock()

	w.hooks.OnWatches(active)
	if ok {
		w.logger.Info("watch cancelled", zap.String("watch_id", id))
	}
	return ok
}

// Pending returns how many timers are armed for id.
func (w *Watcher) Pending(id string) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	if entry, ok := w.watches[id]; ok {
		return len(entry.armed)
	}
	return 0
}

// Watches returns copies of every registered config, ordered by id.
func (w *Watcher) Watches() []domain.WatchConfig {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]domain.WatchConfig, 0, len(w.watches))
	for _, entry := range w.watches {
		out = append(out, entry.cfg.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WatchID < out[j].WatchID })
	return out
}

// Stop disarms every timer. Registered configs are kept but nothing fires
// and later Watch calls fail with domain.ErrServiceStopped.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
	for _, entry := range w.watches {
		entry.stopTimers()
		entry.gen++
	}
}

// arm (re)schedules the watch under id. A non-nil next replaces the stored
// config; a nil next re-arms whatever is stored and skips ids that are no
// longer registered. Reports whether anything was armed.
func (w *Watcher) arm(id string, next *domain.WatchConfig, window time.Duration) (bool, error) {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return false, domain.ErrServiceStopped
	}

	entry, ok := w.watches[id]
	if !ok && next == nil {
		w.mu.Unlock()
		return false, nil
	}
	if !ok {
		entry = &watch{fired: make(map[string]struct{})}
		w.watches[id] = entry
	}
	entry.stopTimers()
	entry.gen++
	if next != nil {
		entry.cfg = *next
	}
	cfg := entry.cfg
	entry.token = w.registry.Acquire(id)
	gen := entry.gen

	now := w.clock.Now()
	live := make(map[string]struct{})
	var due []firing

	for _, item := range cfg.Items {
		if item.Completed || item.Deadline.IsZero() {
			continue
		}
		for _, ph := range w.phases {
			f := firing{key: firingKey(item, ph), item: item, phase: ph}
			live[f.key] = struct{}{}
			if _, done := entry.fired[f.key]; done {
				continue
			}

			fireIn := item.Deadline.Sub(now) - ph.Offset
			if fireIn > 0 {
				entry.armed[f.key] = w.clock.AfterFunc(fireIn, func() { w.fire(id, gen, f) })
				continue
			}
			// Past pre-deadline phases are skipped; only the overdue phase catches up.
			if !ph.IsOverdue() {
				continue
			}
			if window >= 0 && -fireIn >= window {
				continue
			}
			due = append(due, f)
		}
	}

	// Items removed or rescheduled no longer need their fired markers.
	for key := range entry.fired {
		if _, ok := live[key]; !ok {
			delete(entry.fired, key)
		}
	}

	armed := len(entry.armed)
	active := len(w.watches)
	w.mu.Unlock()

	w.hooks.OnWatches(active)
	w.logger.Debug("watch armed",
		zap.String("watch_id", id),
		zap.Int("timers", armed),
		zap.Int("immediate", len(due)),
	)

	for _, f := range due {
		w.fire(id, gen, f)
	}
	return true, nil
}

func (w *Watcher) fire(id string, gen uint64, f firing) {
	w.mu.Lock()
	entry, ok := w.watches[id]
	if !ok || entry.gen != gen || entry.token.Cancelled() {
		w.mu.Unlock()
		return
	}
	delete(entry.armed, f.key)
	if _, done := entry.fired[f.key]; done {
		w.mu.Unlock()
		return
	}
	entry.fired[f.key] = struct{}{}
	cfg, tok := entry.cfg, entry.token
	w.mu.Unlock()

	w.hooks.OnFire(f.phase.Label)
	result := w.submit.Dispatch(phasePayload(cfg, f.item, f.phase), tok)
	go w.observe(cfg, f, result)
}

func (w *Watcher) observe(cfg domain.WatchConfig, f firing, result <-chan domain.SendResult) {
	res, ok := <-result
	if !ok {
		return
	}
	log := w.logger.With(
		zap.String("watch_id", cfg.WatchID),
		zap.String("item_id", f.item.ItemID),
		zap.String("phase", f.phase.Label),
	)
	switch {
	case res.Deduplicated, res.Cancelled:
		log.Debug("deadline reminder suppressed",
			zap.Bool("deduplicated", res.Deduplicated),
			zap.Bool("cancelled", res.Cancelled),
		)
	case res.Success:
		if cfg.ShowToast {
			log.Info("deadline reminder sent", zap.String("message_id", res.MessageID))
		} else {
			log.Debug("deadline reminder sent", zap.String("message_id", res.MessageID))
		}
	default:
		log.Warn("deadline reminder failed", zap.String("error", res.Error))
	}
}

func (e *watch) stopTimers() {
	for key, t := range e.armed {
		t.Stop()
		delete(e.armed, key)
	}
	if e.armed == nil {
		e.armed = make(map[string]clock.Timer)
	}
}

func firingKey(item domain.WatchItem, ph domain.Phase) string {
	return item.ItemID + "|" + ph.Label + "|" + strconv.FormatInt(item.Deadline.UnixNano(), 10)
}

func phasePayload(cfg domain.WatchConfig, item domain.WatchItem, ph domain.Phase) domain.Payload {
	deadline := item.Deadline
	msg := fmt.Sprintf("%q is due in %s", item.Text, ph.Label)
	if ph.IsOverdue() {
		msg = fmt.Sprintf("%q is overdue", item.Text)
	}
	return domain.Payload{
		Source:        cfg.Source,
		Title:         cfg.Title,
		Items:         []domain.EmailItem{{Text: item.Text, Deadline: &deadline}},
		Recipient:     cfg.Recipient,
		Message:       msg,
		TimeRemaining: ph.Label,
		WatchID:       cfg.WatchID,
	}
}
