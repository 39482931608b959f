// Package todos declares the resource interfaces shared by the example
// server and client.
package todos

import (
	"time"

	"github.com/pthm/hxhal"
	"github.com/pthm/hxhal/lib/hal"
)

//go:generate go run github.com/pthm/hxhal/cmd/hxhal generate .

// Status represents the completion status of a todo.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
)

// Tag represents a category tag for todos.
type Tag string

const (
	TagWork     Tag = "work"
	TagPersonal Tag = "personal"
	TagUrgent   Tag = "urgent"
	TagLater    Tag = "later"
)

// TodoState is the state of a todo document.
type TodoState struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Status      Status    `json:"status"`
	Tags        []Tag     `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Todo is a single task.
//
//hxhal:resource
type Todo interface {
	//hxhal:state
	State() *hxhal.Single[TodoState]
	//hxhal:property done
	IsDone() *hxhal.Single[bool]
	//hxhal:related collection
	List() *hxhal.Optional[TodoList]
	//hxhal:link
	Self() hal.Link
	String() string
}

// TodoList is the collection of todos, optionally filtered by status.
//
//hxhal:resource
type TodoList interface {
	//hxhal:property
	Total() *hxhal.Single[int]
	//hxhal:property
	Pending() *hxhal.Single[int]
	//hxhal:related item
	Items() *hxhal.Many[Todo]
	//hxhal:related search
	Search(status *Status) *hxhal.Optional[TodoList]
	//hxhal:link
	Self() hal.Link
	String() string
}

// Register registers every resource interface of the package.
func Register(reg *hxhal.Registry) error {
	if err := RegisterTodo(reg); err != nil {
		return err
	}
	return RegisterTodoList(reg)
}
