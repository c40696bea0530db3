package output

import (
	"encoding/json"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/tidechat/tidechat-go/pkg/models"
)

// Table is tabular command output.
type Table struct {
	Headers []string
	Rows    [][]string
}

// AddRow appends a row.
func (t *Table) AddRow(cells ...string) {
	t.Rows = append(t.Rows, cells)
}

// Render writes the table with aligned columns.
func (t *Table) Render(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		if _, err := io.WriteString(tw, strings.Join(t.Headers, "\t")+"\n"); err != nil {
			return err
		}
	}
	for _, row := range t.Rows {
		if _, err := io.WriteString(tw, strings.Join(row, "\t")+"\n"); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// rowMaps converts the table to header-keyed maps for machine-readable
// formats.
func (t *Table) rowMaps() []map[string]string {
	out := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		m := make(map[string]string, len(t.Headers))
		for i, h := range t.Headers {
			if i < len(row) {
				m[strings.ToLower(h)] = row[i]
			}
		}
		out = append(out, m)
	}
	return out
}

// TableFormatter renders tables with aligned columns. Non-table data
// falls back to indented JSON.
type TableFormatter struct{}

// Format writes the data.
func (f *TableFormatter) Format(w io.Writer, data any) error {
	if t, ok := data.(*Table); ok {
		return t.Render(w)
	}
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

// UserTable renders users.
func UserTable(users ...*models.User) *Table {
	t := &Table{Headers: []string{"ID", "NAME", "ROLE", "ONLINE", "LAST_ACTIVE"}}
	for _, u := range users {
		if u == nil {
			continue
		}
		role := u.Role
		if u.Anonymous {
			role = "guest"
		}
		t.AddRow(u.ID, orDash(u.Name), orDash(role), strconv.FormatBool(u.Online), unixMilli(u.LastActive))
	}
	return t
}

// ChannelTable renders channels.
func ChannelTable(channels []*models.Channel) *Table {
	t := &Table{Headers: []string{"CID", "NAME", "MEMBERS", "LAST_MESSAGE", "FROZEN"}}
	for _, ch := range channels {
		if ch == nil {
			continue
		}
		t.AddRow(ch.CID, orDash(ch.Name), strconv.Itoa(ch.MemberCount), unixMilli(ch.LastMessageAt), strconv.FormatBool(ch.Frozen))
	}
	return t
}

// MessageTable renders messages.
func MessageTable(msgs ...*models.Message) *Table {
	t := &Table{Headers: []string{"ID", "CID", "USER", "TEXT", "CREATED"}}
	for _, m := range msgs {
		if m == nil {
			continue
		}
		text := m.Text
		if m.Deleted {
			text = "(deleted)"
		} else if len(text) > 60 {
			text = text[:57] + "..."
		}
		t.AddRow(m.ID, m.CID, m.UserID, text, unixMilli(m.CreatedAt))
	}
	return t
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func unixMilli(ms int64) string {
	if ms == 0 {
		return "-"
	}
	return time.UnixMilli(ms).Format("2006-01-02 15:04")
}
