package ansible

import (
	"context"

	"go.uber.org/zap"

	"provizor/internal/runner"
)

// Player runs ansible-playbook against a rendered inventory.
type Player struct {
	run   runner.Runner
	log   *zap.Logger
	Debug bool
}

// NewPlayer builds a Player on the given command runner.
func NewPlayer(run runner.Runner, log *zap.Logger) *Player {
	return &Player{run: run, log: log.Named("ansible")}
}

// Play executes a playbook with the rendered inventory and host vars.
func (p *Player) Play(ctx context.Context, playbook string, inv Rendered) error {
	args := []string{"-i", inv.InventoryPath}
	if p.Debug {
		args = append(args, "-vvv")
	}
	args = append(args, playbook, "--extra-vars", "@"+inv.VarsPath)

	p.log.Info("running playbook",
		zap.String("playbook", playbook),
		zap.String("inventory", inv.InventoryPath))
	return p.run.Run(ctx, runner.Spec{
		Name: "ansible-playbook",
		Args: args,
		Env:  map[string]string{"ANSIBLE_HOST_KEY_CHECKING": "False"},
	})
}
