package controller

import (
	"context"
	"errors"

	"github.com/pratik-mahalle/pullrunner/internal/resourcelist"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// CheckLabel is the idle label of the check controls
const CheckLabel = "Check Now"

// listPage is the part shared by the repository and server pages
type listPage struct {
	env      Env
	route    string
	sync     *resourcelist.Synchronizer
	check    *resourcelist.ActionControl
	schedule *ScheduleLoader
}

func newListPage(env Env, route string, kind resourcelist.Kind, ui resourcelist.Control) listPage {
	env = env.withDefaults()
	return listPage{
		env:      env,
		route:    route,
		sync:     env.synchronizer(kind),
		check:    resourcelist.NewActionControl(CheckLabel, ui),
		schedule: NewScheduleLoader(env),
	}
}

// Route implements Page
func (p *listPage) Route() string { return p.route }

// Kinds implements Page
func (p *listPage) Kinds() []resourcelist.Kind {
	return []resourcelist.Kind{p.sync.Kind()}
}

// Load fetches the list and refreshes the schedule panel. A schedule
// failure does not fail the load.
func (p *listPage) Load(ctx context.Context) error {
	err := p.sync.Load(ctx)
	p.schedule.Refresh(ctx)
	return err
}

// Synchronizer returns the page's synchronizer
func (p *listPage) Synchronizer() *resourcelist.Synchronizer { return p.sync }

// CheckControl returns the check sweep control
func (p *listPage) CheckControl() *resourcelist.ActionControl { return p.check }

// Delete removes a record by identity
func (p *listPage) Delete(ctx context.Context, id string) error {
	return p.sync.Delete(ctx, id)
}

// Check triggers the check sweep. The control stays disabled until the
// sweep request and the following reload resolve.
func (p *listPage) Check(ctx context.Context) error {
	err := p.sync.Trigger(ctx, p.check)
	if err == nil {
		p.schedule.Refresh(ctx)
	}
	return err
}

// Sweep runs the check sweep without taking the check control. The caller
// has already claimed it.
func (p *listPage) Sweep(ctx context.Context) error {
	err := p.sync.Sweep(ctx)
	if err == nil {
		p.schedule.Refresh(ctx)
	}
	return err
}

// ReposPage manages repositories
type ReposPage struct {
	listPage
}

// NewReposPage creates the repository page. ui, when given, is the
// displayed check button.
func NewReposPage(env Env, ui ...resourcelist.Control) *ReposPage {
	return &ReposPage{listPage: newListPage(env, RouteRepos, resourcelist.Repos, firstControl(ui))}
}

// Add enrolls a repository. GitHub URLs are reduced to owner/repo.
func (p *ReposPage) Add(ctx context.Context, req client.CreateRepoRequest, form resourcelist.Form) error {
	req.Name = client.NormalizeRepoName(req.Name)
	if req.Branch == "" {
		req.Branch = "main"
	}
	return p.sync.Create(ctx, req, form)
}

// ServersPage manages servers
type ServersPage struct {
	listPage
}

// NewServersPage creates the server page
func NewServersPage(env Env, ui ...resourcelist.Control) *ServersPage {
	return &ServersPage{listPage: newListPage(env, RouteServers, resourcelist.Servers, firstControl(ui))}
}

// Add enrolls a server
func (p *ServersPage) Add(ctx context.Context, req client.CreateServerRequest, form resourcelist.Form) error {
	return p.sync.Create(ctx, req, form)
}

// Options are the choices offered by the command form
type Options struct {
	Repos   []string `json:"repos" yaml:"repos"`
	Servers []string `json:"servers" yaml:"servers"`
}

// CommandsPage manages scheduled commands
type CommandsPage struct {
	env      Env
	sync     *resourcelist.Synchronizer
	schedule *ScheduleLoader
}

// NewCommandsPage creates the command page
func NewCommandsPage(env Env) *CommandsPage {
	env = env.withDefaults()
	return &CommandsPage{
		env:      env,
		sync:     env.synchronizer(resourcelist.Commands),
		schedule: NewScheduleLoader(env),
	}
}

// Route implements Page
func (p *CommandsPage) Route() string { return RouteCommands }

// Kinds implements Page
func (p *CommandsPage) Kinds() []resourcelist.Kind {
	return []resourcelist.Kind{resourcelist.Commands}
}

// Load fetches the command list and the form options
func (p *CommandsPage) Load(ctx context.Context) error {
	listErr := p.sync.Load(ctx)
	_, optErr := p.Options(ctx)
	p.schedule.Refresh(ctx)
	return errors.Join(listErr, optErr)
}

// Synchronizer returns the page's synchronizer
func (p *CommandsPage) Synchronizer() *resourcelist.Synchronizer { return p.sync }

// Options fetches the repositories and servers a command can target. Only
// records whose status is exactly true are offered.
func (p *CommandsPage) Options(ctx context.Context) (Options, error) {
	repos, err := p.env.Client.Repos().List(ctx)
	if err != nil {
		return Options{}, p.env.notify(err)
	}
	servers, err := p.env.Client.Servers().List(ctx)
	if err != nil {
		return Options{}, p.env.notify(err)
	}

	opts := Options{Repos: []string{}, Servers: []string{}}
	for _, r := range repos {
		if r.Active.IsActive() {
			opts.Repos = append(opts.Repos, r.Name)
		}
	}
	for _, s := range servers {
		if s.Active.IsActive() {
			opts.Servers = append(opts.Servers, s.Host)
		}
	}

	p.env.Surface.ShowOptions("repo", opts.Repos)
	p.env.Surface.ShowOptions("server", opts.Servers)
	return opts, nil
}

// Add enrolls a command
func (p *CommandsPage) Add(ctx context.Context, req client.CreateCommandRequest, form resourcelist.Form) error {
	return p.sync.Create(ctx, req, form)
}

// Delete removes a command by id
func (p *CommandsPage) Delete(ctx context.Context, id string) error {
	return p.sync.Delete(ctx, id)
}

// Run executes a command and returns its result. The raw payload is
// surfaced as a notification.
func (p *CommandsPage) Run(ctx context.Context, id string) (*client.RunResult, error) {
	body, err := p.sync.Run(ctx, id)
	if err != nil {
		return nil, err
	}
	var result client.RunResult
	if err := body.Decode(&result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Secrets opens the secrets dialog of one command
func (p *CommandsPage) Secrets(commandID string, prompter Prompter) *SecretsDialog {
	return NewSecretsDialog(p.env, commandID, prompter)
}

func firstControl(ui []resourcelist.Control) resourcelist.Control {
	if len(ui) == 0 {
		return nil
	}
	return ui[0]
}
