// Package memory is a process-local Repository used for single-node deployments
// and tests. Transactions run against a copy of the data set and are swapped in
// on success; a single lock serializes them.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/SAP-F-2025/quiz-attempt-service/internal/models"
	"github.com/SAP-F-2025/quiz-attempt-service/internal/repositories"
)

type dataset struct {
	seq map[string]uint

	subjects    map[uint]models.Subject
	enrollments map[uint]models.Enrollment
	quizzes     map[uint]models.Quiz
	questions   map[uint]models.Question
	attempts    map[uint]models.Attempt
	answers     map[uint]models.Answer
}

func newDataset() *dataset {
	return &dataset{
		seq:         map[string]uint{},
		subjects:    map[uint]models.Subject{},
		enrollments: map[uint]models.Enrollment{},
		quizzes:     map[uint]models.Quiz{},
		questions:   map[uint]models.Question{},
		attempts:    map[uint]models.Attempt{},
		answers:     map[uint]models.Answer{},
	}
}

func (d *dataset) nextID(table string) uint {
	d.seq[table]++
	return d.seq[table]
}

// clone copies the maps; stored values are never mutated in place so the
// values themselves can be shared.
func (d *dataset) clone() *dataset {
	c := &dataset{
		seq:         make(map[string]uint, len(d.seq)),
		subjects:    make(map[uint]models.Subject, len(d.subjects)),
		enrollments: make(map[uint]models.Enrollment, len(d.enrollments)),
		quizzes:     make(map[uint]models.Quiz, len(d.quizzes)),
		questions:   make(map[uint]models.Question, len(d.questions)),
		attempts:    make(map[uint]models.Attempt, len(d.attempts)),
		answers:     make(map[uint]models.Answer, len(d.answers)),
	}
	for k, v := range d.seq {
		c.seq[k] = v
	}
	for k, v := range d.subjects {
		c.subjects[k] = v
	}
	for k, v := range d.enrollments {
		c.enrollments[k] = v
	}
	for k, v := range d.quizzes {
		c.quizzes[k] = v
	}
	for k, v := range d.questions {
		c.questions[k] = v
	}
	for k, v := range d.attempts {
		c.attempts[k] = v
	}
	for k, v := range d.answers {
		c.answers[k] = v
	}
	return c
}

// Repository implements repositories.Repository in memory
type Repository struct {
	mu    *sync.Mutex
	data  **dataset
	inTx  bool
	users repositories.UserRepository
	now   func() time.Time
}

// New creates an empty store. users resolves principals; nil means an empty
// UserDirectory.
func New(users repositories.UserRepository) *Repository {
	if users == nil {
		users = NewUserDirectory()
	}
	data := newDataset()
	return &Repository{
		mu:    &sync.Mutex{},
		data:  &data,
		users: users,
		now:   time.Now,
	}
}

// run executes fn against the live data set, locking unless already inside a transaction
func (r *Repository) run(fn func(d *dataset) error) error {
	if r.inTx {
		return fn(*r.data)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return fn(*r.data)
}

func (r *Repository) Subject() repositories.SubjectRepository       { return subjectStore{r} }
func (r *Repository) Enrollment() repositories.EnrollmentRepository { return enrollmentStore{r} }
func (r *Repository) Quiz() repositories.QuizRepository             { return quizStore{r} }
func (r *Repository) Question() repositories.QuestionRepository     { return questionStore{r} }
func (r *Repository) Attempt() repositories.AttemptRepository       { return attemptStore{r} }
func (r *Repository) Answer() repositories.AnswerRepository         { return answerStore{r} }
func (r *Repository) User() repositories.UserRepository             { return r.users }

// WithTransaction runs fn on a private copy and publishes it only when fn succeeds.
// Nested calls join the enclosing transaction.
func (r *Repository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	if r.inTx {
		return fn(r)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	working := (*r.data).clone()
	txRepo := &Repository{
		mu:    r.mu,
		data:  &working,
		inTx:  true,
		users: r.users,
		now:   r.now,
	}

	if err := fn(txRepo); err != nil {
		return err
	}

	*r.data = working
	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (r *Repository) Close() error {
	return nil
}

// Manager adapts the in-memory store to repositories.RepositoryManager
type Manager struct {
	users repositories.UserRepository
	repo  *Repository
}

func NewManager(users repositories.UserRepository) repositories.RepositoryManager {
	return &Manager{users: users}
}

func (m *Manager) Initialize() error {
	m.repo = New(m.users)
	return nil
}

func (m *Manager) GetRepository() repositories.Repository {
	return m.repo
}

func (m *Manager) HealthCheck(ctx context.Context) error {
	if m.repo == nil {
		return fmt.Errorf("repository not initialized")
	}
	return m.repo.Ping(ctx)
}

func (m *Manager) Shutdown(ctx context.Context) error {
	return nil
}
