// Package tasks exécute les effets de bord (emails, push, événements) hors du chemin de la requête.
package tasks

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
)

type Options struct {
	Workers        int
	Buffer         int
	MaxAttempts    int
	AttemptTimeout time.Duration
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

func (o *Options) defaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.Buffer <= 0 {
		o.Buffer = 256
	}
	if o.MaxAttempts <= 0 {
		o.MaxAttempts = 3
	}
	if o.AttemptTimeout <= 0 {
		o.AttemptTimeout = 15 * time.Second
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 10 * time.Second
	}
}

type job struct {
	name string
	run  func(ctx context.Context) error
}

type Queue struct {
	opts Options
	jobs chan job

	mu     sync.RWMutex
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewQueue(opts Options) *Queue {
	opts.defaults()
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue{
		opts:   opts,
		jobs:   make(chan job, opts.Buffer),
		ctx:    ctx,
		cancel: cancel,
	}
}

func (q *Queue) Start() {
	for i := 0; i < q.opts.Workers; i++ {
		q.wg.Add(1)
		go q.worker()
	}
	log.Printf("✅ File de tâches démarrée (%d workers)", q.opts.Workers)
}

// Enqueue n'attend jamais: si la file est pleine ou fermée, la tâche est refusée
func (q *Queue) Enqueue(name string, fn func(ctx context.Context) error) bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return false
	}
	select {
	case q.jobs <- job{name: name, run: fn}:
		return true
	default:
		return false
	}
}

func (q *Queue) worker() {
	defer q.wg.Done()
	for j := range q.jobs {
		q.execute(j)
	}
}

func (q *Queue) execute(j job) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("❌ Tâche %s en panique: %v", j.name, r)
		}
	}()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = q.opts.InitialBackoff
	b.MaxInterval = q.opts.MaxBackoff
	b.MaxElapsedTime = 0

	attempt := 0
	err := backoff.Retry(func() error {
		attempt++
		ctx, cancel := context.WithTimeout(q.ctx, q.opts.AttemptTimeout)
		defer cancel()
		return j.run(ctx)
	}, backoff.WithContext(backoff.WithMaxRetries(b, uint64(q.opts.MaxAttempts-1)), q.ctx))

	if err != nil {
		var perm *backoff.PermanentError
		if errors.As(err, &perm) {
			err = perm.Err
		}
		log.Printf("❌ Tâche %s abandonnée après %d tentative(s): %v", j.name, attempt, err)
	}
}

// Shutdown ferme la file et attend la fin des tâches en cours, au plus jusqu'à ctx
func (q *Queue) Shutdown(ctx context.Context) error {
	q.mu.Lock()
	if !q.closed {
		q.closed = true
		close(q.jobs)
	}
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		q.cancel()
		return nil
	case <-ctx.Done():
		q.cancel()
		return ctx.Err()
	}
}

// Permanent marque une erreur qui ne doit pas être retentée
func Permanent(err error) error {
	return backoff.Permanent(err)
}
