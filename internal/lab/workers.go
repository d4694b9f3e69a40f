package lab

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// StartRunner advances every playing lab once per interval until ctx is done.
func StartRunner(ctx context.Context, m *LabManager, interval time.Duration) {
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}

	log.Printf("[RUNNER] Lab runner started (interval=%s)", interval)
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		last := time.Now()
		for {
			select {
			case <-ctx.Done():
				log.Println("[RUNNER] Lab runner stopping")
				return
			case now := <-ticker.C:
				m.AdvanceAll(now.Sub(last).Seconds())
				last = now
			}
		}
	}()
}

// AdvanceAll steps every playing lab by wallDt seconds of wall-clock time and
// returns how many labs moved.
func (m *LabManager) AdvanceAll(wallDt float64) int {
	// Large gaps (a stalled process, a debugger) are capped to one long frame.
	if wallDt > maxFrameSeconds {
		wallDt = maxFrameSeconds
	}
	advanced := 0
	for _, l := range m.Labs() {
		if l.Advance(wallDt) {
			advanced++
		}
	}
	return advanced
}

const maxFrameSeconds = 0.25

// StartIdleWorker closes labs nobody has touched for LabIdleSeconds. With
// Redis it polls the lab_idle sorted set, otherwise it checks each lab's last
// activity in memory.
func StartIdleWorker(ctx context.Context, m *LabManager) {
	cfg := m.config
	if cfg.LabIdleSeconds <= 0 {
		log.Println("[IDLE] LAB_IDLE_SECONDS not set; idle worker not started")
		return
	}
	poll := time.Duration(cfg.IdleWorkerPollInterval) * time.Second
	if poll <= 0 {
		poll = 30 * time.Second
	}

	log.Println("[IDLE] Idle worker started")
	go func() {
		ticker := time.NewTicker(poll)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				log.Println("[IDLE] Idle worker stopping")
				return
			case now := <-ticker.C:
				var closed int
				if m.rdb != nil {
					closed = m.expireIdleFromRedis(ctx, now)
				} else {
					closed = m.ExpireIdle(now)
				}
				if closed > 0 {
					log.Printf("[IDLE] Closed %d idle labs", closed)
				}
			}
		}
	}()
}

// ExpireIdle closes every lab whose last activity is older than the idle
// timeout at now, and returns how many were closed.
func (m *LabManager) ExpireIdle(now time.Time) int {
	timeout := time.Duration(m.config.LabIdleSeconds) * time.Second
	closed := 0
	for _, l := range m.Labs() {
		if now.Sub(l.LastActive()) < timeout {
			continue
		}
		if err := m.RemoveLab(l.Token, "closed after inactivity"); err == nil {
			closed++
		}
	}
	return closed
}

func (m *LabManager) expireIdleFromRedis(ctx context.Context, now time.Time) int {
	members, err := m.rdb.ZRangeByScore(ctx, IdleSetKey, &redis.ZRangeBy{Min: "-inf", Max: fmt.Sprintf("%d", now.Unix())}).Result()
	if err != nil {
		log.Printf("[IDLE] Failed to fetch idle labs: %v", err)
		return 0
	}

	closed := 0
	for _, token := range members {
		// Attempt to remove (race-safe with other instances)
		removed, err := m.rdb.ZRem(ctx, IdleSetKey, token).Result()
		if err != nil || removed == 0 {
			continue
		}
		l, err := m.GetLab(token)
		if err != nil {
			continue
		}
		// Activity that never reached Redis still counts.
		if now.Sub(l.LastActive()) < time.Duration(m.config.LabIdleSeconds)*time.Second {
			m.Touch(token)
			continue
		}
		if err := m.RemoveLab(token, "closed after inactivity"); err == nil {
			closed++
		}
	}
	return closed
}
