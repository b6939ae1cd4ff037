package bootstrap

import "context"

// Seeder fills initial data once the infrastructure is up.
type Seeder interface {
	Seed(ctx context.Context, res *Result) error
}

// SeederFunc lets a plain function act as a Seeder.
type SeederFunc func(ctx context.Context, res *Result) error

// Seed calls f.
func (f SeederFunc) Seed(ctx context.Context, res *Result) error { return f(ctx, res) }

// Modules are the optional hooks run after the infrastructure is up.
type Modules struct {
	// Seeders run in order; a nil entry is skipped.
	Seeders []Seeder
}
