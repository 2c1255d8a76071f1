package panel

import (
	"context"
	"errors"
	"fmt"

	"github.com/crossborderlabs/kolgraph/pkg/llm"
	"github.com/crossborderlabs/kolgraph/pkg/llm/outparse"
)

var personaKeys = []string{"name", "description", "nature", "experience"}

// DescribePersonas expands bare guest names into full personas, one completion
// per name. Failures are isolated per name: every persona that could be built
// is returned, alongside the joined errors for those that could not.
func DescribePersonas(ctx context.Context, client llm.Client, model string, names []string) ([]Persona, error) {
	personas := make([]Persona, 0, len(names))
	var errs []error
	for _, name := range names {
		p, err := describeOne(ctx, client, model, name)
		if err != nil {
			errs = append(errs, fmt.Errorf("describe persona %s: %w", name, err))
			continue
		}
		personas = append(personas, p)
	}
	return personas, errors.Join(errs...)
}

func describeOne(ctx context.Context, client llm.Client, model, name string) (Persona, error) {
	prompt, err := render(personaTmpl, struct{ Name string }{name})
	if err != nil {
		return Persona{}, err
	}
	resp, err := client.Complete(ctx, llm.CompletionRequest{Model: model, Prompt: prompt})
	if err != nil {
		return Persona{}, err
	}
	p, err := outparse.Decode[Persona](resp.Text, personaKeys...)
	if err != nil {
		return Persona{}, err
	}
	if p.Name == "" {
		p.Name = name
	}
	return p, nil
}
