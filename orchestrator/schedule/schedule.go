// Package schedule maintains cron-scheduled command definitions,
// durably stored in a redis hash and replayed into a robfig/cron
// scheduler on startup and after every add/remove. Grounded verbatim on
// the teacher's schedule.go (Scheduler/SchedulerJob/HSET
// controller.schedule/HSCAN), retargeted from an ad-hoc
// map[string]interface{} command payload onto a typed
// planner.CommandRequest.
package schedule

import (
	"encoding/json"
	"log"

	"github.com/garyburd/redigo/redis"
	"github.com/pborman/uuid"
	"github.com/robfig/cron"

	"github.com/Vasanthadithya-mundrathi/NACC/orchestrator/planner"
)

const hashScheduleKey = "nacc.schedule"

// Job is one scheduled command: a cron expression paired with the
// command request to submit each time it fires.
type Job struct {
	ID      string                  `json:"id"`
	Cron    string                  `json:"cron"`
	Command planner.CommandRequest `json:"command"`
}

// Dispatcher submits a scheduled job's command for planning/execution.
// Implemented by the orchestrator's API layer so the schedule package
// stays free of a direct dependency on the dispatch/planner wiring.
type Dispatcher interface {
	Dispatch(job Job)
}

// Run implements cron.Job; it's what robfig/cron actually invokes when
// a job's expression fires.
type runnableJob struct {
	job        Job
	dispatcher Dispatcher
}

func (r runnableJob) Run() {
	r.dispatcher.Dispatch(r.job)
}

// Scheduler owns the cron runtime and its redis-backed durable store.
type Scheduler struct {
	cron       *cron.Cron
	pool       *redis.Pool
	dispatcher Dispatcher
}

// NewScheduler builds a Scheduler against pool, replaying every
// persisted job from redis and starting the cron runtime.
func NewScheduler(pool *redis.Pool, dispatcher Dispatcher) *Scheduler {
	s := &Scheduler{cron: cron.New(), pool: pool, dispatcher: dispatcher}
	s.reload()
	return s
}

// Add persists a new scheduled job (or replaces one with the same ID)
// and restarts the cron runtime so the change takes effect immediately.
func (s *Scheduler) Add(job Job) (string, error) {
	if _, err := cron.Parse(job.Cron); err != nil {
		return "", err
	}
	if job.ID == "" {
		job.ID = uuid.New()
	}

	dump, err := json.Marshal(job)
	if err != nil {
		return "", err
	}

	db := s.pool.Get()
	defer db.Close()
	if _, err := db.Do("HSET", hashScheduleKey, job.ID, string(dump)); err != nil {
		return "", err
	}

	s.reload()
	return job.ID, nil
}

// List returns every persisted job.
func (s *Scheduler) List() ([]Job, error) {
	db := s.pool.Get()
	defer db.Close()

	raw, err := redis.StringMap(db.Do("HGETALL", hashScheduleKey))
	if err != nil {
		return nil, err
	}

	jobs := make([]Job, 0, len(raw))
	for id, dump := range raw {
		var job Job
		if err := json.Unmarshal([]byte(dump), &job); err != nil {
			log.Println("schedule: dropping unreadable job", id, err)
			continue
		}
		job.ID = id
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// Remove deletes a persisted job by ID and restarts the cron runtime if
// anything was actually deleted.
func (s *Scheduler) Remove(id string) (bool, error) {
	db := s.pool.Get()
	defer db.Close()

	deleted, err := redis.Int(db.Do("HDEL", hashScheduleKey, id))
	if err != nil {
		return false, err
	}
	if deleted > 0 {
		s.reload()
	}
	return deleted > 0, nil
}

// reload stops the current cron runtime, rebuilds it from scratch, and
// replays every persisted job into it — the same pattern as the
// teacher's Scheduler.restart, since robfig/cron has no remove-single-
// job API and the job set is small enough that a full rebuild is cheap.
func (s *Scheduler) reload() {
	s.cron.Stop()
	s.cron = cron.New()

	jobs, err := s.List()
	if err != nil {
		log.Println("schedule: failed to reload jobs from redis", err)
		return
	}
	for _, job := range jobs {
		if err := s.cron.AddJob(job.Cron, runnableJob{job: job, dispatcher: s.dispatcher}); err != nil {
			log.Println("schedule: dropping job with unparseable cron expression", job.ID, err)
		}
	}
	s.cron.Start()
}

// Stop halts the cron runtime without touching persisted state.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
