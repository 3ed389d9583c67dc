package workers

import (
	"context"
	"echoes/domain"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Precision int

const (
	// Coarse shows whole hours left and refreshes every minute.
	Coarse Precision = iota
	// Precise shows HHh MMm SSs and refreshes every second.
	Precise
)

func (p Precision) Interval() time.Duration {
	if p == Precise {
		return time.Second
	}
	return time.Minute
}

type Countdown struct {
	EchoID    uuid.UUID
	Remaining time.Duration
	Label     string
}

// Countdowns derives the labels from creation times; nothing is cached between ticks.
func Countdowns(echoes []domain.Echo, now time.Time, precision Precision) []Countdown {
	return lo.Map(echoes, func(e domain.Echo, _ int) Countdown {
		remaining := domain.Remaining(e.CreatedAt, now)
		label := domain.FormatHoursLeft(e.CreatedAt, now)
		if precision == Precise {
			label = domain.FormatPrecise(remaining)
		}
		return Countdown{EchoID: e.ID, Remaining: remaining, Label: label}
	})
}

// CountdownTicker re-renders the countdowns of the echoes returned by visible.
// It must run under the context of the view showing them.
type CountdownTicker struct {
	log       *slog.Logger
	clock     domain.Clock
	visible   func() []domain.Echo
	precision Precision
	render    func([]Countdown)
	interval  time.Duration
}

func NewCountdownTicker(log *slog.Logger, clock domain.Clock, precision Precision, visible func() []domain.Echo, render func([]Countdown)) *CountdownTicker {
	return &CountdownTicker{
		log:       log,
		clock:     clock,
		visible:   visible,
		precision: precision,
		render:    render,
		interval:  precision.Interval(),
	}
}

func (w *CountdownTicker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.tick()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			w.tick()
		}
	}
}

func (w *CountdownTicker) tick() {
	w.render(Countdowns(w.visible(), w.clock.Now(), w.precision))
}
