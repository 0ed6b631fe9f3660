package filter

import (
	"fmt"
	"strings"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/soup/shelfarr/qbit"
)

// Filter is a compiled torrent filter expression.
type Filter struct {
	program *vm.Program
	expr    string
}

// Compile compiles a filter expression. The expression is evaluated per
// torrent with the torrent's fields and the helper functions in scope.
func Compile(expression string) (*Filter, error) {
	if strings.TrimSpace(expression) == "" {
		return nil, fmt.Errorf("empty filter expression")
	}

	program, err := expr.Compile(expression,
		expr.Env(buildEnv(&qbit.TorrentInfo{})),
		expr.AsBool(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to compile filter expression: %w", err)
	}

	return &Filter{
		program: program,
		expr:    expression,
	}, nil
}

// Match evaluates the filter against a torrent. Runtime evaluation errors
// count as no match.
func (f *Filter) Match(torrent *qbit.TorrentInfo) bool {
	result, err := expr.Run(f.program, buildEnv(torrent))
	if err != nil {
		return false
	}

	match, ok := result.(bool)
	return ok && match
}

// Apply returns the torrents the filter matches, preserving order.
func (f *Filter) Apply(torrents []*qbit.TorrentInfo) []*qbit.TorrentInfo {
	var matched []*qbit.TorrentInfo
	for _, torrent := range torrents {
		if f.Match(torrent) {
			matched = append(matched, torrent)
		}
	}
	return matched
}

// String returns the original expression.
func (f *Filter) String() string {
	return f.expr
}

func buildEnv(torrent *qbit.TorrentInfo) map[string]interface{} {
	return map[string]interface{}{
		// Torrent fields
		"Hash":         torrent.Hash,
		"Name":         torrent.Name,
		"Category":     torrent.Category,
		"Tags":         torrent.Tags,
		"State":        torrent.State,
		"SavePath":     torrent.SavePath,
		"Size":         torrent.Size,
		"Progress":     torrent.Progress,
		"Ratio":        torrent.Ratio,
		"AddedOn":      torrent.AddedOn,
		"CompletionOn": torrent.CompletionOn,

		// Tag helpers
		"hasTag": func(tag string) bool {
			for _, t := range torrent.Tags {
				if strings.EqualFold(t, tag) {
					return true
				}
			}
			return false
		},

		// State helpers
		"isComplete": torrent.IsComplete,
		"isSeeding":  torrent.IsActivelySeeding,

		// Date helpers
		"daysSince": func(t time.Time) int {
			return int(time.Since(t).Hours() / 24)
		},
		"daysAgo": func(days int) time.Time {
			return time.Now().AddDate(0, 0, -days)
		},

		// String helpers
		"contains": func(str, substr string) bool {
			return strings.Contains(strings.ToLower(str), strings.ToLower(substr))
		},
		"startsWith": func(str, prefix string) bool {
			return strings.HasPrefix(strings.ToLower(str), strings.ToLower(prefix))
		},
		"lower": strings.ToLower,
		"upper": strings.ToUpper,

		"now": time.Now,
	}
}
