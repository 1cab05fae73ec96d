// Package controller wires the resource-list synchronizers into pages.
// Each page is registered under a route, declares the kinds it manages,
// and shares one Transport with every other page of the same surface.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	apperrors "github.com/pratik-mahalle/pullrunner/internal/pkg/errors"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/logger"
	"github.com/pratik-mahalle/pullrunner/internal/pkg/validator"
	"github.com/pratik-mahalle/pullrunner/internal/resourcelist"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// Page routes
const (
	RouteRepos    = "/repos/view"
	RouteServers  = "/servers/view"
	RouteCommands = "/commands/view"
	RouteLogs     = "/logs/view"
	RouteSettings = "/settings/view"
)

// ErrUnknownRoute is returned when no page is registered for a route
var ErrUnknownRoute = errors.New("unknown route")

// Surface is where pages draw: the resource tables, the blocking
// notifications, and the page-specific panels.
type Surface interface {
	resourcelist.View
	resourcelist.Notifier
	ShowSchedule(schedule client.Schedule)
	ShowOptions(field string, values []string)
	ShowLog(name, text string)
	ShowSettings(settings client.Settings)
}

// Env is shared by every page opened on one surface
type Env struct {
	Client    *client.Client
	Surface   Surface
	Validator *validator.Validator
	Logger    *logger.Logger
}

func (e Env) withDefaults() Env {
	if e.Validator == nil {
		e.Validator = validator.New()
	}
	if e.Logger == nil {
		e.Logger = logger.Nop()
	}
	return e
}

// synchronizer builds a synchronizer for kind drawing on the env's surface
func (e Env) synchronizer(kind resourcelist.Kind) *resourcelist.Synchronizer {
	return resourcelist.New(resourcelist.Config{
		Kind:      kind,
		Transport: e.Client,
		View:      e.Surface,
		Notifier:  e.Surface,
		Validator: e.Validator,
		Logger:    e.Logger,
	})
}

// notify surfaces err and returns it
func (e Env) notify(err error) error {
	e.Surface.Notify(apperrors.Message(err))
	return err
}

// Page is a controller registered under a route
type Page interface {
	Route() string
	Kinds() []resourcelist.Kind
	Load(ctx context.Context) error
}

// Factory creates a page for an env
type Factory func(env Env) Page

// Registry maps routes to page factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with every dashboard page
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(RouteRepos, func(env Env) Page { return NewReposPage(env) })
	r.Register(RouteServers, func(env Env) Page { return NewServersPage(env) })
	r.Register(RouteCommands, func(env Env) Page { return NewCommandsPage(env) })
	r.Register(RouteLogs, func(env Env) Page { return NewLogsPage(env) })
	r.Register(RouteSettings, func(env Env) Page { return NewSettingsPage(env) })
	return r
}

// Register adds or replaces the factory of a route
func (r *Registry) Register(route string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[route] = factory
}

// Open creates the page registered under route
func (r *Registry) Open(route string, env Env) (Page, error) {
	r.mu.RLock()
	factory, ok := r.factories[route]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoute, route)
	}
	return factory(env.withDefaults()), nil
}

// Routes returns the registered routes in sorted order
func (r *Registry) Routes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	routes := make([]string, 0, len(r.factories))
	for route := range r.factories {
		routes = append(routes, route)
	}
	sort.Strings(routes)
	return routes
}
