package merge

import (
	"bufio"
	"fmt"
	"strings"

	pg_query "github.com/pganalyze/pg_query_go/v6"
)

// SplitScript splits a rendered script into batches on BatchSeparator and
// each batch into statements.
func SplitScript(script string) ([][]string, error) {
	var batches [][]string
	var cur strings.Builder

	flush := func() error {
		text := strings.TrimSpace(cur.String())
		cur.Reset()
		if text == "" {
			return nil
		}
		stmts, err := splitStatements(text)
		if err != nil {
			return err
		}
		if len(stmts) > 0 {
			batches = append(batches, stmts)
		}
		return nil
	}

	scanner := bufio.NewScanner(strings.NewReader(script))
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == BatchSeparator {
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		}
		cur.WriteString(line)
		cur.WriteString("\n")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read script: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return batches, nil
}

func splitStatements(batch string) ([]string, error) {
	stmts, err := pg_query.SplitWithParser(batch, true)
	if err != nil {
		return nil, fmt.Errorf("failed to split SQL statements: %w", err)
	}

	var out []string
	for _, stmt := range stmts {
		if onlyComments(stmt) {
			continue
		}
		out = append(out, stmt)
	}
	return out, nil
}

func onlyComments(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}
