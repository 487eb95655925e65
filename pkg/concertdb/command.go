package concertdb

// Command is a parsed subcommand.
type Command interface {
	Name() string
}

// RunCommand starts the HTTP server.
type RunCommand struct{}

func (c *RunCommand) Name() string {
	return "run"
}

// MigrateCommand copies the relational data into the document store once
// and exits.
type MigrateCommand struct{}

func (c *MigrateCommand) Name() string {
	return "migrate"
}

// StatusCommand prints the migration status as JSON.
type StatusCommand struct{}

func (c *StatusCommand) Name() string {
	return "status"
}

// ResetCommand marks the migration as not done, switching reads and writes
// back to the relational store.
type ResetCommand struct{}

func (c *ResetCommand) Name() string {
	return "reset"
}
