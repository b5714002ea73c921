package history

import (
	"fmt"
	"regexp"
	"strings"
)

// secretPatterns токены, которые не должны попадать в историю
var secretPatterns = []string{
	`AKIA[0-9A-Z]{16}`,
	`ghp_[a-zA-Z0-9]{36}`,
	`gho_[a-zA-Z0-9]{36}`,
	`ghu_[a-zA-Z0-9]{36}`,
	`ghs_[a-zA-Z0-9]{36}`,
	`github_pat_\w{22}_\w{59}`,
	`xox[baprs]-[0-9a-zA-Z-]{10,48}`,
	`sk_live_[0-9a-zA-Z]{24}`,
	`rk_live_[0-9a-zA-Z]{24}`,
	`https://hooks\.slack\.com/services/T[a-zA-Z0-9_]{8,10}/B[a-zA-Z0-9_]{8,12}/[a-zA-Z0-9_]{24}`,
	`npm_[a-zA-Z0-9]{36}`,
}

// Filter решает, сохранять ли команду
type Filter struct {
	history []*regexp.Regexp
	cwd     []*regexp.Regexp
	secrets []*regexp.Regexp
}

// NewFilter компилирует пользовательские фильтры команд и каталогов
func NewFilter(historyPatterns, cwdPatterns []string, secrets bool) (*Filter, error) {
	f := &Filter{}

	var err error
	if f.history, err = compile(historyPatterns); err != nil {
		return nil, fmt.Errorf("history_filter: %w", err)
	}
	if f.cwd, err = compile(cwdPatterns); err != nil {
		return nil, fmt.Errorf("cwd_filter: %w", err)
	}
	if secrets {
		f.secrets = compileMust(secretPatterns)
	}

	return f, nil
}

// ShouldSave false для пустых команд, команд с ведущим пробелом и совпавших с фильтрами
func (f *Filter) ShouldSave(h *History) bool {
	if strings.TrimSpace(h.Command) == "" || strings.HasPrefix(h.Command, " ") {
		return false
	}

	if matchAny(f.history, h.Command) || matchAny(f.cwd, h.Cwd) || matchAny(f.secrets, h.Command) {
		return false
	}

	return true
}

func compile(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("compile %q: %w", p, err)
		}
		res = append(res, re)
	}
	return res, nil
}

func compileMust(patterns []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		res = append(res, regexp.MustCompile(p))
	}
	return res
}

func matchAny(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}
