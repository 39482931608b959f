package main

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/pthm/hxhal/example/todos"
)

// record is a stored todo.
type record struct {
	ID string
	todos.TodoState
}

// Store is an in-memory todo store.
type Store struct {
	mu     sync.RWMutex
	todos  map[string]*record
	nextID int
}

// NewStore creates a new store with sample data.
func NewStore() *Store {
	s := &Store{
		todos:  make(map[string]*record),
		nextID: 1,
	}

	s.Add("Buy groceries", "Milk, eggs, bread", []todos.Tag{todos.TagPersonal})
	s.Add("Review PR #123", "Check the authentication changes", []todos.Tag{todos.TagWork, todos.TagUrgent})
	s.Add("Write documentation", "Update API docs for v2", []todos.Tag{todos.TagWork})
	s.Add("Call dentist", "Schedule annual checkup", []todos.Tag{todos.TagPersonal, todos.TagLater})
	s.Add("Fix login bug", "Users can't reset passwords", []todos.Tag{todos.TagWork, todos.TagUrgent})

	return s
}

// Add creates a new todo and returns its ID.
func (s *Store) Add(title, description string, tags []todos.Tag) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("todo-%d", s.nextID)
	s.nextID++

	now := time.Now()
	s.todos[id] = &record{
		ID: id,
		TodoState: todos.TodoState{
			Title:       title,
			Description: description,
			Status:      todos.StatusPending,
			Tags:        tags,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
	}

	return id
}

// Get returns a copy of a todo by ID.
func (s *Store) Get(id string) (record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.todos[id]
	if !ok {
		return record{}, false
	}
	return *r, true
}

// Toggle toggles the completed status of a todo.
func (s *Store) Toggle(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	todo, ok := s.todos[id]
	if !ok {
		return false
	}

	if todo.Status == todos.StatusCompleted {
		todo.Status = todos.StatusPending
	} else {
		todo.Status = todos.StatusCompleted
	}
	todo.UpdatedAt = time.Now()
	return true
}

// List returns copies of all todos, optionally filtered by status, oldest
// first.
func (s *Store) List(status *todos.Status) []record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []record
	for _, todo := range s.todos {
		if status != nil && todo.Status != *status {
			continue
		}
		result = append(result, *todo)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})

	return result
}

// Stats returns the total and pending counts.
func (s *Store) Stats() (total, pending int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, todo := range s.todos {
		total++
		if todo.Status == todos.StatusPending {
			pending++
		}
	}
	return total, pending
}
