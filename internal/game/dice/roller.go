package dice

import (
	"fmt"

	"go.uber.org/zap"
)

// Roller rolls expressions against a Source and logs each roll at debug level.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller creates a Roller.
//
// Precondition: src and logger must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	return &Roller{src: src, logger: logger}
}

// Roll evaluates expr.
//
// Postcondition: len(result.Dice) == expr.Count and every die is in [1, Sides].
func (r *Roller) Roll(expr Expression) Result {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = r.src.Intn(expr.Sides) + 1
	}
	res := Result{Expression: expr.Raw, Dice: rolled, Modifier: expr.Modifier}
	r.logger.Debug("dice roll",
		zap.String("expression", res.Expression),
		zap.Ints("dice", res.Dice),
		zap.Int("total", res.Total()),
	)
	return res
}

// RollExpr parses expr and rolls it.
func (r *Roller) RollExpr(expr string) (Result, error) {
	e, err := Parse(expr)
	if err != nil {
		return Result{}, err
	}
	return r.Roll(e), nil
}

// Fraction returns a value in [0, 0.99] with two decimal places, the scale
// used for colour channels.
func (r *Roller) Fraction() float64 {
	return float64(r.src.Intn(100)) / 100
}

// Token returns a short random decimal suffix in [0, n) rendered as a string.
func (r *Roller) Token(n int) string {
	return fmt.Sprintf("%d", r.src.Intn(n))
}
