// Package reaper sweeps the room registry for huddles that went quiet
// and transitions them to ended. The sweep is deliberately coarse: a
// room can stay technically active for up to threshold + interval after
// its true last activity, and clients rely on that bound.
package reaper

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/founderhq/huddle_backend/database"
	"github.com/founderhq/huddle_backend/models"
)

const (
	// DefaultInterval is how often the sweep runs.
	DefaultInterval = 10 * time.Minute

	// DefaultThreshold is how long a room may sit without activity
	// before a sweep ends it.
	DefaultThreshold = 30 * time.Minute
)

// Reaper periodically ends inactive rooms.
type Reaper struct {
	interval  time.Duration
	threshold time.Duration
	done      chan struct{}
}

// New builds a reaper with the given sweep interval and inactivity
// threshold.
func New(interval, threshold time.Duration) *Reaper {
	return &Reaper{
		interval:  interval,
		threshold: threshold,
		done:      make(chan struct{}),
	}
}

// NewFromEnv reads REAPER_INTERVAL_MINUTES / REAPER_THRESHOLD_MINUTES,
// falling back to the defaults.
func NewFromEnv() *Reaper {
	return New(
		minutesEnv("REAPER_INTERVAL_MINUTES", DefaultInterval),
		minutesEnv("REAPER_THRESHOLD_MINUTES", DefaultThreshold),
	)
}

func minutesEnv(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if minutes, err := strconv.Atoi(v); err == nil && minutes > 0 {
			return time.Duration(minutes) * time.Minute
		}
		log.Printf("ignoring invalid %s=%q", key, v)
	}
	return fallback
}

// Start runs the sweep loop in a goroutine until Stop is called. Sweep
// failures are logged; the loop never halts on them.
func (r *Reaper) Start() {
	go func() {
		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if err := r.Sweep(); err != nil {
					log.Printf("room sweep failed: %v", err)
				}
			case <-r.done:
				return
			}
		}
	}()
	log.Printf("room reaper started (interval %s, threshold %s)", r.interval, r.threshold)
}

// Stop terminates the sweep loop.
func (r *Reaper) Stop() {
	close(r.done)
}

// Sweep ends every active room whose last activity predates the
// threshold and writes a system end entry for each. One pass.
func (r *Reaper) Sweep() error {
	cutoff := time.Now().Add(-r.threshold)

	var stale []models.Room
	if err := database.DB.
		Where("status = ? AND last_activity_at < ?", models.RoomStatusActive, cutoff).
		Find(&stale).Error; err != nil {
		return err
	}

	for _, room := range stale {
		// CAS per room: a creator ending the room mid-sweep wins, and
		// the audit entry is only written for a real transition.
		res := database.DB.Model(&models.Room{}).
			Where("id = ? AND status = ?", room.ID, models.RoomStatusActive).
			Update("status", models.RoomStatusEnded)
		if res.Error != nil {
			log.Printf("error ending inactive room %s: %v", room.RoomCode, res.Error)
			continue
		}
		if res.RowsAffected == 0 {
			continue
		}

		// System-initiated: no user ID on the audit entry
		entry := models.ActivityLog{
			RoomCode: room.RoomCode,
			Action:   models.ActionEnd,
		}
		if err := database.DB.Create(&entry).Error; err != nil {
			log.Printf("error logging end of room %s: %v", room.RoomCode, err)
		}

		log.Printf("auto-ended inactive room: %s", room.RoomCode)
	}

	return nil
}
