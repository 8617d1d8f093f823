package memstore

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/coincraft/coincraft/internal/goals"
	"github.com/coincraft/coincraft/internal/requests"
	"github.com/coincraft/coincraft/internal/shared"
	"github.com/coincraft/coincraft/internal/tasks"
)

// InsertGoal implements goals.RepositoryPort.
func (s *Store) InsertGoal(_ context.Context, g goals.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.goals[g.ID] = g
	return nil
}

// GetGoal implements goals.RepositoryPort.
func (s *Store) GetGoal(_ context.Context, id uuid.UUID) (goals.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.data.goals[id]
	if !ok {
		return goals.Goal{}, fmt.Errorf("goal: %w", shared.ErrNotFound)
	}
	return g, nil
}

// LockGoal implements goals.RepositoryPort.
func (s *Store) LockGoal(ctx context.Context, id uuid.UUID) (goals.Goal, error) {
	return s.GetGoal(ctx, id)
}

// UpdateGoal implements goals.RepositoryPort.
func (s *Store) UpdateGoal(_ context.Context, g goals.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.goals[g.ID]; !ok {
		return fmt.Errorf("goal: %w", shared.ErrNotFound)
	}
	s.data.goals[g.ID] = g
	return nil
}

// DeleteGoal implements goals.RepositoryPort.
func (s *Store) DeleteGoal(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.goals[id]; !ok {
		return fmt.Errorf("goal: %w", shared.ErrNotFound)
	}
	delete(s.data.goals, id)
	return nil
}

// ListGoals implements goals.RepositoryPort.
func (s *Store) ListGoals(_ context.Context, ownerID uuid.UUID) ([]goals.Goal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []goals.Goal
	for _, g := range s.data.goals {
		if g.OwnerID == ownerID {
			out = append(out, g)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CountGoals implements goals.RepositoryPort.
func (s *Store) CountGoals(_ context.Context, ownerID uuid.UUID) (goals.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var c goals.Counts
	for _, g := range s.data.goals {
		if g.OwnerID != ownerID {
			continue
		}
		if g.IsCompleted {
			c.Completed++
		} else {
			c.Active++
		}
	}
	return c, nil
}

// InsertTask implements tasks.RepositoryPort.
func (s *Store) InsertTask(_ context.Context, t tasks.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.tasks[t.ID] = t
	return nil
}

// GetTask implements tasks.RepositoryPort.
func (s *Store) GetTask(_ context.Context, id uuid.UUID) (tasks.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.data.tasks[id]
	if !ok {
		return tasks.Task{}, fmt.Errorf("task: %w", shared.ErrNotFound)
	}
	return t, nil
}

// LockTask implements tasks.RepositoryPort.
func (s *Store) LockTask(ctx context.Context, id uuid.UUID) (tasks.Task, error) {
	return s.GetTask(ctx, id)
}

// UpdateTask implements tasks.RepositoryPort.
func (s *Store) UpdateTask(_ context.Context, t tasks.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.tasks[t.ID]; !ok {
		return fmt.Errorf("task: %w", shared.ErrNotFound)
	}
	s.data.tasks[t.ID] = t
	return nil
}

// DeleteTask implements tasks.RepositoryPort.
func (s *Store) DeleteTask(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.tasks[id]; !ok {
		return fmt.Errorf("task: %w", shared.ErrNotFound)
	}
	delete(s.data.tasks, id)
	return nil
}

// ListTasks implements tasks.RepositoryPort.
func (s *Store) ListTasks(_ context.Context, f tasks.Filter) ([]tasks.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []tasks.Task
	for _, t := range s.data.tasks {
		if f.Matches(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// CountTasks implements tasks.RepositoryPort.
func (s *Store) CountTasks(ctx context.Context, f tasks.Filter) (int, error) {
	list, err := s.ListTasks(ctx, f)
	return len(list), err
}

// InsertRequest implements requests.RepositoryPort.
func (s *Store) InsertRequest(_ context.Context, req requests.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.requests[req.ID] = req
	return nil
}

// GetRequest implements requests.RepositoryPort.
func (s *Store) GetRequest(_ context.Context, id uuid.UUID) (requests.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.data.requests[id]
	if !ok {
		return requests.Request{}, fmt.Errorf("request: %w", shared.ErrNotFound)
	}
	return req, nil
}

// LockRequest implements requests.RepositoryPort.
func (s *Store) LockRequest(ctx context.Context, id uuid.UUID) (requests.Request, error) {
	return s.GetRequest(ctx, id)
}

// UpdateRequest implements requests.RepositoryPort.
func (s *Store) UpdateRequest(_ context.Context, req requests.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.requests[req.ID]; !ok {
		return fmt.Errorf("request: %w", shared.ErrNotFound)
	}
	s.data.requests[req.ID] = req
	return nil
}

// ListRequests implements requests.RepositoryPort.
func (s *Store) ListRequests(_ context.Context, f requests.Filter) ([]requests.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []requests.Request
	for _, req := range s.data.requests {
		if f.Matches(req) {
			out = append(out, req)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// CountRequests implements requests.RepositoryPort.
func (s *Store) CountRequests(ctx context.Context, f requests.Filter) (int, error) {
	f.Limit = 0
	list, err := s.ListRequests(ctx, f)
	return len(list), err
}
