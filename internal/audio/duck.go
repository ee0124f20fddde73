// Package audio lowers other pulseaudio playback streams while the
// assistant is listening or speaking, and restores them afterwards.
package audio

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"sync"
)

var percentRe = regexp.MustCompile(`(\d+)\s*%`)

type streamInfo struct {
	ID      int
	Volume  int
	AppName string
}

// Ducker scales down every sink-input that does not belong to selfNames,
// remembering the original volumes for Restore. Duck/Restore pairs do not
// nest; a second Duck while active is a no-op.
type Ducker struct {
	mu        sync.Mutex
	active    bool
	selfNames []string
	factor    float64
	minVolume int
	original  map[int]int
}

func NewDucker(selfNames []string, factor float64, minVolume int) *Ducker {
	if factor <= 0 || factor >= 1 {
		factor = 0.3
	}
	if minVolume < 0 {
		minVolume = 0
	}
	return &Ducker{
		selfNames: append([]string(nil), selfNames...),
		factor:    factor,
		minVolume: minVolume,
		original:  map[int]int{},
	}
}

// Duck lowers all foreign streams to volume*factor, floored at minVolume.
func (d *Ducker) Duck(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.active {
		return nil
	}

	streams, err := listStreams(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	d.original = map[int]int{}
	for _, s := range streams {
		if d.isSelf(s) {
			continue
		}
		target := int(math.Round(float64(s.Volume) * d.factor))
		if target < d.minVolume {
			target = d.minVolume
		}
		if err := setStreamVolume(ctx, s.ID, target); err != nil {
			return fmt.Errorf("duck stream %d: %w", s.ID, err)
		}
		d.original[s.ID] = s.Volume
	}

	d.active = true
	return nil
}

// Restore puts every stream ducked earlier back to its original volume.
// Streams that appeared after Duck are left alone.
func (d *Ducker) Restore(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return nil
	}

	streams, err := listStreams(ctx)
	if err != nil {
		return fmt.Errorf("list streams: %w", err)
	}

	for _, s := range streams {
		orig, ok := d.original[s.ID]
		if !ok {
			continue
		}
		if err := setStreamVolume(ctx, s.ID, orig); err != nil {
			return fmt.Errorf("restore stream %d: %w", s.ID, err)
		}
	}

	d.original = map[int]int{}
	d.active = false
	return nil
}

func (d *Ducker) isSelf(s streamInfo) bool {
	for _, name := range d.selfNames {
		if s.AppName == name {
			return true
		}
	}
	return false
}

func listStreams(ctx context.Context) ([]streamInfo, error) {
	out, err := exec.CommandContext(ctx, "pactl", "list", "sink-inputs").Output()
	if err != nil {
		return nil, fmt.Errorf("pactl list sink-inputs: %w", err)
	}

	blocks := strings.Split(string(out), "Sink Input #")
	if len(blocks) <= 1 {
		return nil, nil
	}

	var res []streamInfo

	for _, block := range blocks[1:] {
		nl := strings.IndexByte(block, '\n')
		if nl <= 0 {
			continue
		}
		id, err := strconv.Atoi(strings.TrimSpace(block[:nl]))
		if err != nil {
			continue
		}

		s := streamInfo{ID: id}
		for _, line := range strings.Split(block[nl+1:], "\n") {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "Volume:") && s.Volume == 0 {
				if m := percentRe.FindStringSubmatch(line); len(m) >= 2 {
					s.Volume, _ = strconv.Atoi(m[1])
				}
			}
			if strings.HasPrefix(line, "application.name =") && s.AppName == "" {
				if _, rest, ok := strings.Cut(line, `"`); ok {
					s.AppName, _, _ = strings.Cut(rest, `"`)
				}
			}
		}

		if s.Volume == 0 && s.AppName == "" {
			continue
		}
		res = append(res, s)
	}

	return res, nil
}

func setStreamVolume(ctx context.Context, id, percent int) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 150 {
		percent = 150
	}
	return exec.CommandContext(ctx, "pactl",
		"set-sink-input-volume", strconv.Itoa(id), fmt.Sprintf("%d%%", percent)).Run()
}
