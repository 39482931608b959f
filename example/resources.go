package main

import (
	"context"
	"net/url"

	"github.com/pthm/hxhal"
	"github.com/pthm/hxhal/example/todos"
	"github.com/pthm/hxhal/lib/hal"
)

// todoResource renders one stored todo. Link methods are only used by
// clients.
type todoResource struct {
	store *Store
	rec   record
}

var _ todos.Todo = (*todoResource)(nil)

func (t *todoResource) State() *hxhal.Single[todos.TodoState] {
	return hxhal.Just(t.rec.TodoState)
}

func (t *todoResource) IsDone() *hxhal.Single[bool] {
	return hxhal.Just(t.rec.Status == todos.StatusCompleted)
}

func (t *todoResource) List() *hxhal.Optional[todos.TodoList] {
	return hxhal.Some[todos.TodoList](&listResource{store: t.store})
}

func (t *todoResource) Self() hal.Link { return *t.CreateLink() }

func (t *todoResource) String() string { return "todo " + t.rec.ID }

func (t *todoResource) CreateLink() *hal.Link {
	return &hal.Link{Href: "/todos/" + t.rec.ID, Title: t.rec.Title}
}

func (t *todoResource) IsEmbedded() bool { return true }

// listResource renders the todo collection, filtered when status is set.
type listResource struct {
	store  *Store
	status *todos.Status
}

var _ todos.TodoList = (*listResource)(nil)

func (l *listResource) Total() *hxhal.Single[int] {
	return hxhal.Just(len(l.store.List(l.status)))
}

func (l *listResource) Pending() *hxhal.Single[int] {
	pending := todos.StatusPending
	if l.status != nil && *l.status != pending {
		return hxhal.Just(0)
	}
	return hxhal.Just(len(l.store.List(&pending)))
}

func (l *listResource) Items() *hxhal.Many[todos.Todo] {
	return hxhal.ManyOf(func(context.Context) ([]todos.Todo, error) {
		recs := l.store.List(l.status)
		items := make([]todos.Todo, len(recs))
		for i, rec := range recs {
			items[i] = &todoResource{store: l.store, rec: rec}
		}
		return items, nil
	})
}

func (l *listResource) Search(*todos.Status) *hxhal.Optional[todos.TodoList] {
	return hxhal.Some[todos.TodoList](searchLink{})
}

func (l *listResource) Self() hal.Link { return *l.CreateLink() }

func (l *listResource) String() string { return "todo list" }

func (l *listResource) CreateLink() *hal.Link {
	if l.status == nil {
		return &hal.Link{Href: "/todos"}
	}
	return &hal.Link{Href: "/todos?" + url.Values{"status": {string(*l.status)}}.Encode()}
}

// searchLink stands for the filtered lists behind the search template.
// Only its link is ever rendered.
type searchLink struct {
	todos.TodoList
}

func (searchLink) CreateLink() *hal.Link {
	return &hal.Link{Href: "/todos{?status}", Templated: true}
}
