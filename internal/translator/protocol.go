package translator

import (
	"fmt"
	"strings"
)

// #region prompt

const instructions = `Answer the question by querying the SQLite database.
Reply with exactly one of:
SQL: <one read-only SELECT statement>
ANSWER: <final answer in one sentence, including the number>
After each SQL you will receive an OBSERVATION with the result.`

const formatReminder = "reply must start with SQL: or ANSWER:"

func buildPrompt(question, transcript string) string {
	var b strings.Builder
	b.WriteString(instructions)
	b.WriteString("\n\n")
	b.WriteString(question)
	if transcript != "" {
		b.WriteString("\n\n")
		b.WriteString(transcript)
	}
	b.WriteString("\n")
	return b.String()
}

// #endregion

// #region reply-parsing

type stepKind int

const (
	stepUnknown stepKind = iota
	stepSQL
	stepAnswer
)

type step struct {
	kind stepKind
	body string
}

// parseReply takes the first SQL: or ANSWER: line. An SQL body runs until
// the next ANSWER: line or the end of the reply; code fences are dropped.
func parseReply(reply string) step {
	lines := strings.Split(strings.ReplaceAll(reply, "\r\n", "\n"), "\n")
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		upper := strings.ToUpper(trimmed)
		switch {
		case strings.HasPrefix(upper, "ANSWER:"):
			body := strings.TrimSpace(trimmed[len("ANSWER:"):])
			if rest := strings.TrimSpace(strings.Join(lines[i+1:], "\n")); body == "" && rest != "" {
				body = rest
			}
			return step{kind: stepAnswer, body: body}
		case strings.HasPrefix(upper, "SQL:"):
			parts := []string{trimmed[len("SQL:"):]}
			for _, next := range lines[i+1:] {
				if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(next)), "ANSWER:") {
					break
				}
				parts = append(parts, next)
			}
			return step{kind: stepSQL, body: cleanSQL(strings.Join(parts, "\n"))}
		}
	}
	return step{kind: stepUnknown}
}

func cleanSQL(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```sql")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.Join(strings.Fields(s), " ")
}

// #endregion

// #region observations

func formatRows(rows [][]any, limit int) string {
	if len(rows) == 0 {
		return "no rows"
	}
	var b strings.Builder
	for i, r := range rows {
		if i == limit {
			fmt.Fprintf(&b, "... %d more rows\n", len(rows)-limit)
			break
		}
		cells := make([]string, len(r))
		for j, c := range r {
			if c == nil {
				cells[j] = "NULL"
				continue
			}
			cells[j] = fmt.Sprint(c)
		}
		b.WriteString("(" + strings.Join(cells, ", ") + ")\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func lintSuffix(notes []string) string {
	if len(notes) == 0 {
		return ""
	}
	return "\nwarnings: " + strings.Join(notes, "; ")
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

// #endregion
