package bot

// ExplorationPolicy walks one direction, jumps over obstacles and turns
// around when stuck or facing a drop. Stateless beyond the turn counter.
type ExplorationPolicy struct {
	stuck int
}

// NewExplorationPolicy builds the default built-in policy.
func NewExplorationPolicy() *ExplorationPolicy {
	return &ExplorationPolicy{}
}

// maxStuckTicks is how many consecutive blocked ticks before turning around:
// a one-tile obstacle clears in one jump, anything taller is a wall.
const maxStuckTicks = 5

func (p *ExplorationPolicy) Decide(o Observation) Action {
	dir := o.Direction

	if o.BlockedAhead {
		p.stuck++
		if p.stuck > maxStuckTicks {
			p.stuck = 0
			dir = -dir
		}
	} else {
		p.stuck = 0
	}
	if o.HoleAhead && o.OnGround {
		// Do not walk off cliffs; probe the other way.
		dir = -dir
		p.stuck = 0
	}

	return Action{
		MoveLeft:  dir < 0,
		MoveRight: dir > 0,
		Jump:      o.BlockedAhead && o.OnGround,
	}
}
