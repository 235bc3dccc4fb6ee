package game

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"time"
)

// maxLineSize bounds a single recorded tick.
const maxLineSize = 1 << 20

// Sink receives observed monsters. push.Service implements it.
type Sink interface {
	PushMonster(m *Monster, index int)
}

// LoadTicks reads a JSON-lines recording from path. Blank lines are skipped.
func LoadTicks(path string) ([]Tick, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("game: open recording: %w", err)
	}
	defer f.Close()

	var ticks []Tick
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	line := 0
	for sc.Scan() {
		line++
		b := bytes.TrimSpace(sc.Bytes())
		if len(b) == 0 {
			continue
		}
		var t Tick
		if err := json.Unmarshal(b, &t); err != nil {
			return nil, fmt.Errorf("game: %s line %d: %w", path, line, err)
		}
		ticks = append(ticks, t)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("game: read recording: %w", err)
	}
	return ticks, nil
}

// Replay plays recorded ticks into a Sink at a fixed interval.
type Replay struct {
	ticks    []Tick
	interval time.Duration
	loop     bool
	sink     Sink
}

// NewReplay creates a Replay. When loop is true the recording restarts from
// the first tick after the last one.
func NewReplay(ticks []Tick, interval time.Duration, loop bool, sink Sink) *Replay {
	return &Replay{ticks: ticks, interval: interval, loop: loop, sink: sink}
}

// Run plays the recording. It returns when the recording ends (loop disabled)
// or ctx is cancelled.
func (r *Replay) Run(ctx context.Context) {
	if len(r.ticks) == 0 {
		slog.Warn("replay: recording is empty")
		return
	}

	t := time.NewTicker(r.interval)
	defer t.Stop()

	next := 0
	for {
		r.play(r.ticks[next])
		next++
		if next == len(r.ticks) {
			if !r.loop {
				slog.Info("replay: recording finished", "ticks", len(r.ticks))
				return
			}
			next = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

func (r *Replay) play(t Tick) {
	for i, m := range t.Slots {
		if m == nil {
			continue
		}
		r.sink.PushMonster(m, i)
	}
}
