package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pratik-mahalle/pullrunner/internal/resourcelist"
	"github.com/pratik-mahalle/pullrunner/pkg/client"
)

// Prompter asks the user for one value at a time
type Prompter interface {
	Prompt(label string) (string, error)
	PromptSecret(label string) (string, error)
}

// SecretsDialog manages the secrets of one command through sequential
// prompts. Values are masked by the backend when listed.
type SecretsDialog struct {
	env       Env
	commandID string
	sync      *resourcelist.Synchronizer
	prompter  Prompter
}

// NewSecretsDialog creates the dialog of a command. prompter may be nil
// when the dialog is driven through Add and Delete directly.
func NewSecretsDialog(env Env, commandID string, prompter Prompter) *SecretsDialog {
	env = env.withDefaults()
	return &SecretsDialog{
		env:       env,
		commandID: commandID,
		sync:      env.synchronizer(resourcelist.Secrets(commandID)),
		prompter:  prompter,
	}
}

// CommandID returns the command the dialog is scoped to
func (d *SecretsDialog) CommandID() string { return d.commandID }

// Synchronizer returns the dialog's synchronizer
func (d *SecretsDialog) Synchronizer() *resourcelist.Synchronizer { return d.sync }

// Load lists the command's secrets
func (d *SecretsDialog) Load(ctx context.Context) error {
	return d.sync.Load(ctx)
}

// Add stores a secret and re-lists on success
func (d *SecretsDialog) Add(ctx context.Context, name, value string) error {
	return d.sync.Create(ctx, client.CreateSecretRequest{Name: strings.TrimSpace(name), Value: value}, nil)
}

// Delete removes a secret by id and re-lists on success
func (d *SecretsDialog) Delete(ctx context.Context, secretID string) error {
	return d.sync.Delete(ctx, secretID)
}

// Run shows the secrets, then loops on add, delete and done until the user
// is done or the input ends. Failed steps are surfaced and the loop goes on.
func (d *SecretsDialog) Run(ctx context.Context) error {
	if d.prompter == nil {
		return errors.New("secrets dialog has no prompter")
	}
	if err := d.Load(ctx); err != nil {
		return err
	}

	for {
		choice, err := d.prompter.Prompt("Action [add/delete/done]")
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}

		switch strings.ToLower(strings.TrimSpace(choice)) {
		case "add", "a":
			name, err := d.prompter.Prompt("Secret name")
			if err != nil {
				return err
			}
			value, err := d.prompter.PromptSecret("Secret value")
			if err != nil {
				return err
			}
			_ = d.Add(ctx, name, value)
		case "delete", "d":
			id, err := d.prompter.Prompt("Secret id")
			if err != nil {
				return err
			}
			_ = d.Delete(ctx, strings.TrimSpace(id))
		case "done", "q", "":
			return nil
		default:
			d.env.Surface.Notify(fmt.Sprintf("unknown action %q", choice))
		}
	}
}
