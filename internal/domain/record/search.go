package record

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"golang.org/x/text/unicode/norm"
)

// queryEnv is the variable set visible to Query.Where expressions.
type queryEnv struct {
	ID        string    `expr:"id"`
	Title     string    `expr:"title"`
	Body      string    `expr:"body"`
	CreatedAt time.Time `expr:"createdAt"`
	UpdatedAt time.Time `expr:"updatedAt"`
}

// Search returns the records matching q, in view order.
func (r *Repository) Search(q Query) ([]Record, error) {
	var program *vm.Program
	if strings.TrimSpace(q.Where) != "" {
		var err error
		program, err = expr.Compile(q.Where, expr.Env(queryEnv{}), expr.AsBool())
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
		}
	}
	needle := foldText(strings.TrimSpace(q.Text))

	matches := []Record{}
	for _, rec := range r.List() {
		if needle != "" && !strings.Contains(foldText(rec.Title), needle) && !strings.Contains(foldText(rec.Body), needle) {
			continue
		}
		if program != nil {
			ok, err := expr.Run(program, queryEnv{
				ID:        rec.ID,
				Title:     rec.Title,
				Body:      rec.Body,
				CreatedAt: rec.CreatedAt,
				UpdatedAt: rec.UpdatedAt,
			})
			if err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidQuery, err)
			}
			if matched, _ := ok.(bool); !matched {
				continue
			}
		}
		matches = append(matches, rec)
		if q.Limit > 0 && len(matches) == q.Limit {
			break
		}
	}
	return matches, nil
}

// foldText makes full-width and half-width forms compare equal, ignoring case.
func foldText(s string) string {
	return strings.ToLower(norm.NFKC.String(s))
}
