package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/pthm/hxhal"
	"github.com/pthm/hxhal/example/todos"
)

var errNotFound = errors.New("todo not found")

func main() {
	addr := flag.String("addr", "127.0.0.1:8080", "listen address")
	once := flag.Bool("once", false, "exit after the client walk")
	flag.Parse()

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *addr, *once, log); err != nil {
		log.Fatal("example failed", zap.Error(err))
	}
}

func run(ctx context.Context, addr string, once bool, log *zap.Logger) error {
	reg := hxhal.NewRegistry()
	if err := todos.Register(reg); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: newMux(reg, NewStore(), log)}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("serve", zap.Error(err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx) //nolint:errcheck
	}()

	base := "http://" + ln.Addr().String()
	if err := walk(ctx, reg, base, log); err != nil {
		return err
	}
	if once {
		return nil
	}

	log.Info("serving, open in a browser to explore", zap.String("url", base+"/todos"))
	<-ctx.Done()
	return nil
}

// newMux serves the todo API. Browsers get the HTML view of each document.
func newMux(reg *hxhal.Registry, store *Store, log *zap.Logger) *http.ServeMux {
	renderer := hxhal.NewRenderer(reg, hxhal.WithLogger(log))
	mux := http.NewServeMux()

	mux.Handle("GET /todos", hxhal.Handler(renderer, func(r *http.Request) (any, error) {
		list := &listResource{store: store}
		if s := r.URL.Query().Get("status"); s != "" {
			status := todos.Status(s)
			list.status = &status
		}
		return list, nil
	}, hxhal.WithLogger(log)))

	mux.Handle("GET /todos/{id}", hxhal.Handler(renderer, func(r *http.Request) (any, error) {
		rec, ok := store.Get(r.PathValue("id"))
		if !ok {
			return nil, &hxhal.FetchError{StatusCode: http.StatusNotFound, URI: r.URL.Path, Err: errNotFound}
		}
		return &todoResource{store: store, rec: rec}, nil
	}, hxhal.WithLogger(log)))

	mux.HandleFunc("POST /todos/{id}/toggle", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		if !store.Toggle(id) {
			http.NotFound(w, r)
			return
		}
		http.Redirect(w, r, "/todos/"+id, http.StatusSeeOther)
	})

	return mux
}

// walk navigates the API from its entry point the way a client application
// would.
func walk(ctx context.Context, reg *hxhal.Registry, base string, log *zap.Logger) error {
	client := hxhal.NewClient(reg, hxhal.NewHTTPLoader(http.DefaultClient, nil),
		hxhal.WithLogger(log),
		hxhal.WithContext(ctx),
	)

	list, err := hxhal.Get[todos.TodoList](client, base+"/todos")
	if err != nil {
		return err
	}
	total, err := list.Total().Await(ctx)
	if err != nil {
		return err
	}
	log.Info("todo list", zap.Stringer("list", list), zap.Int("total", total))

	items, err := list.Items().Await(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		state, err := item.State().Await(ctx)
		if err != nil {
			return err
		}
		done, err := item.IsDone().Await(ctx)
		if err != nil {
			return err
		}
		log.Info("todo",
			zap.String("href", item.Self().Href),
			zap.String("title", state.Title),
			zap.Bool("done", done),
		)
	}

	pending := todos.StatusPending
	filtered, ok, err := list.Search(&pending).Await(ctx)
	if err != nil {
		return err
	}
	if !ok {
		return errors.New("the todo list has no search link")
	}
	count, err := filtered.Total().Await(ctx)
	if err != nil {
		return err
	}
	log.Info("pending todos", zap.String("href", filtered.Self().Href), zap.Int("count", count))
	return nil
}
