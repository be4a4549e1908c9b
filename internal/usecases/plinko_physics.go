package usecases

import (
	"context"
	"math"
	"time"

	"winmore.backend/internal/domain/entities"
	domainerrors "winmore.backend/internal/domain/errors"
)

// Board geometry lives in a normalized [0,1]×[0,1] space; the client scales
// it to pixels. Row r of the triangular peg grid has r+firstRowPegsCount
// pegs, and the buckets sit between the pegs of the widest (bottom) row,
// so a board with R peg rows has R+firstRowPegsCount-2 buckets.
const (
	firstRowPegsCount = 3

	plinkoTick     = 1.0 / 60
	plinkoMaxTicks = 20000

	pegRadius       = 0.012
	plinkoBallRadius = 0.015

	boardTopY    = 0.08
	bucketLineY  = 0.92
	bucketMargin = 0.02 // tolerance for near-miss landings outside all buckets

	// Rapid repeated hits on the same peg progressively kill the vertical
	// bounce, modeling energy loss; the window is in ticks.
	rapidImpactWindow  = 6
	rapidImpactDamping = 0.55

	searchStepX  = 0.004
	searchDriftN = 5 // per-sweep horizontal drift perturbations
)

// PlinkoPeg is one peg's center.
type PlinkoPeg struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// PlinkoBucket is one bucket's horizontal span at the bucket line.
type PlinkoBucket struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// PlinkoBoard is the static geometry for a row count, shared between the
// server simulation and the client renderer.
type PlinkoBoard struct {
	Rows    int            `json:"rows"`
	Pegs    []PlinkoPeg    `json:"pegs"`
	Buckets []PlinkoBucket `json:"buckets"`
}

// BuildPlinkoBoard lays out the peg grid and buckets for a row count
func BuildPlinkoBoard(rows int) *PlinkoBoard {
	widest := rows + firstRowPegsCount - 1
	spacing := 1.0 / float64(widest+1)
	rowHeight := (bucketLineY - boardTopY) / float64(rows)

	board := &PlinkoBoard{Rows: rows}
	for r := 0; r < rows; r++ {
		count := r + firstRowPegsCount
		y := boardTopY + float64(r+1)*rowHeight
		for i := 0; i < count; i++ {
			x := 0.5 + (float64(i)-float64(count-1)/2)*spacing
			board.Pegs = append(board.Pegs, PlinkoPeg{X: x, Y: y})
		}
	}

	// Bucket walls align with the bottom peg row's funnel.
	bottomStart := len(board.Pegs) - widest
	for i := 0; i < widest-1; i++ {
		board.Buckets = append(board.Buckets, PlinkoBucket{
			Left:  board.Pegs[bottomStart+i].X,
			Right: board.Pegs[bottomStart+i+1].X,
		})
	}
	return board
}

// BucketCount returns the number of buckets for a row count
func BucketCount(rows int) int {
	return rows + firstRowPegsCount - 2
}

// plinkoPhysics carries the rule's tuning constants.
type plinkoPhysics struct {
	gravity  float64
	friction float64
	hFactor  float64
	vFactor  float64
}

func physicsFromRule(rule *entities.PlinkoRule) plinkoPhysics {
	return plinkoPhysics{
		gravity:  rule.Gravity,
		friction: rule.Friction,
		hFactor:  rule.HorizontalSpeedFactor,
		vFactor:  rule.VerticalSpeedFactor,
	}
}

// SimulateDropping runs the deterministic forward Euler simulation of one
// ball from the given initial state and returns the bucket index it lands
// in, or -1 when the ball ends outside every bucket (config mismatch). The
// per-tick collision response has no randomness: the same initial state
// always lands in the same bucket.
func SimulateDropping(board *PlinkoBoard, phys plinkoPhysics, specs entities.PlinkoDropSpecs) int {
	x, y := specs.X, specs.Y
	vx, vy := specs.VX, specs.VY
	radius := specs.Radius
	if radius <= 0 {
		radius = plinkoBallRadius
	}

	lastPeg := -1
	lastPegTick := -rapidImpactWindow
	rapidImpacts := 0

	for tick := 0; tick < plinkoMaxTicks; tick++ {
		vy += phys.gravity * plinkoTick * phys.vFactor
		vx *= phys.friction
		x += vx * plinkoTick * phys.hFactor
		y += vy * plinkoTick

		// walls
		if x < radius {
			x = radius
			vx = math.Abs(vx)
		} else if x > 1-radius {
			x = 1 - radius
			vx = -math.Abs(vx)
		}

		for i := range board.Pegs {
			peg := &board.Pegs[i]
			dx, dy := x-peg.X, y-peg.Y
			minDist := radius + pegRadius
			distSq := dx*dx + dy*dy
			if distSq >= minDist*minDist {
				continue
			}

			dist := math.Sqrt(distSq)
			if dist == 0 {
				// dead-center hit: push straight up
				dx, dy, dist = 0, -1, 1
			}
			nx, ny := dx/dist, dy/dist

			// move the ball to the contact surface
			x = peg.X + nx*minDist
			y = peg.Y + ny*minDist

			// elastic reflection off the peg normal
			dot := vx*nx + vy*ny
			vx -= 2 * dot * nx
			vy -= 2 * dot * ny

			if i == lastPeg && tick-lastPegTick <= rapidImpactWindow {
				rapidImpacts++
			} else {
				rapidImpacts = 0
			}
			lastPeg = i
			lastPegTick = tick

			// progressive vertical energy loss on rapid re-hits
			vy *= math.Pow(rapidImpactDamping, float64(rapidImpacts+1))
			vx *= rapidImpactDamping
		}

		if y >= bucketLineY {
			return resolveBucket(board, x)
		}
	}
	return -1
}

// resolveBucket maps a final x to a bucket by containment, falling back to
// the nearest edge bucket within the margin.
func resolveBucket(board *PlinkoBoard, x float64) int {
	for i := range board.Buckets {
		if x >= board.Buckets[i].Left && x <= board.Buckets[i].Right {
			return i
		}
	}
	if len(board.Buckets) == 0 {
		return -1
	}
	if x < board.Buckets[0].Left && board.Buckets[0].Left-x <= bucketMargin {
		return 0
	}
	last := len(board.Buckets) - 1
	if x > board.Buckets[last].Right && x-board.Buckets[last].Right <= bucketMargin {
		return last
	}
	return -1
}

// FindDroppingBall brute-force searches initial states whose deterministic
// simulation lands in the target bucket. Candidate starting x positions are
// swept in fixed steps above the peg field, each sweep with a different
// horizontal drift; when a sweep yields matches, one is returned at random.
// The search is bounded by the context deadline (or the fallback timeout)
// and surfaces a retryable error on exhaustion — the physics has no closed
// form inverse, so forward search is the only way to get a replayable
// trajectory.
func FindDroppingBall(ctx context.Context, board *PlinkoBoard, phys plinkoPhysics, targetBucket int, pick func(n int) int, timeout time.Duration) (entities.PlinkoDropSpecs, error) {
	if targetBucket < 0 || targetBucket >= len(board.Buckets) {
		return entities.PlinkoDropSpecs{}, domainerrors.ErrSimulationExhausted
	}

	deadline := time.Now().Add(timeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}

	for sweep := 0; sweep < searchDriftN; sweep++ {
		// drift alternates sign and grows per sweep: 0, +v, -v, +2v, -2v
		drift := float64((sweep+1)/2) * 0.015
		if sweep%2 == 0 {
			drift = -drift
		}

		var matches []entities.PlinkoDropSpecs
		for x := plinkoBallRadius; x <= 1-plinkoBallRadius; x += searchStepX {
			if time.Now().After(deadline) {
				return entities.PlinkoDropSpecs{}, domainerrors.ErrSimulationExhausted
			}
			specs := entities.PlinkoDropSpecs{
				X:      x,
				Y:      0,
				VX:     drift,
				VY:     0,
				Radius: plinkoBallRadius,
			}
			if SimulateDropping(board, phys, specs) == targetBucket {
				matches = append(matches, specs)
			}
		}
		if len(matches) > 0 {
			return matches[pick(len(matches))], nil
		}
	}
	return entities.PlinkoDropSpecs{}, domainerrors.ErrSimulationExhausted
}
