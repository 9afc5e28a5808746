package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/felixgeelhaar/escrowly/internal/engine/types"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/application/queries"
	"github.com/felixgeelhaar/escrowly/internal/marketplace/domain"
)

// Palette for the urgency color tokens the priority engine emits.
var tokenColors = map[string]lipgloss.Color{
	"red":    lipgloss.Color("#e53935"),
	"orange": lipgloss.Color("#fb8c00"),
	"yellow": lipgloss.Color("#ffc107"),
	"gray":   lipgloss.Color("243"),
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("243"))
	scoreStyle  = lipgloss.NewStyle().Bold(true).Width(6).Align(lipgloss.Right)
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	cardStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// UrgencyStyle colors text by a color token. Unknown tokens render gray.
func UrgencyStyle(token string) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(tokenColor(token))
}

// WriteJSON prints v as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// RenderTopTask prints the top task card, or a note when nothing is pending.
func RenderTopTask(w io.Writer, res *queries.TopTaskResult) {
	if res == nil {
		fmt.Fprintln(w, mutedStyle.Render("Nothing needs your attention right now."))
		return
	}
	p := res.Priority
	badge := UrgencyStyle(p.Color).Bold(true).Render(fmt.Sprintf("%s %s", p.Emoji, strings.ToUpper(string(p.Urgency))))
	body := []string{
		badge + "  " + titleStyle.Render(res.Project.Title),
		fmt.Sprintf("score %d · %s · %s pts", p.Score, res.Project.Status, formatPoints(res.Project.Budget)),
	}
	if len(p.Reasons) > 0 {
		body = append(body, mutedStyle.Render(strings.Join(p.Reasons, ", ")))
	}
	body = append(body, mutedStyle.Render("id "+res.Project.ID.String()))
	fmt.Fprintln(w, cardStyle.BorderForeground(tokenColor(p.Color)).Render(strings.Join(body, "\n")))
}

// RenderRanked prints one line per ranked project.
func RenderRanked(w io.Writer, ranked []queries.RankedProjectDTO) {
	if len(ranked) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No projects to rank."))
		return
	}
	for i, r := range ranked {
		p := r.Priority
		line := fmt.Sprintf("%2d. %s %s  %s  %s",
			i+1,
			p.Emoji,
			UrgencyStyle(p.Color).Inherit(scoreStyle).Render(fmt.Sprint(p.Score)),
			titleStyle.Render(r.Project.Title),
			mutedStyle.Render("["+r.Project.Status+"]"),
		)
		fmt.Fprintln(w, line)
		if len(p.Reasons) > 0 {
			fmt.Fprintln(w, "           "+mutedStyle.Render(strings.Join(p.Reasons, ", ")))
		}
	}
}

// RenderExplanation prints the factor breakdown of one score.
func RenderExplanation(w io.Writer, ex *types.PriorityExplanation) {
	fmt.Fprintf(w, "%s %d (%s)\n", headerStyle.Render("Score"), ex.TotalScore, ex.Urgency)
	if len(ex.Factors) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No rules fired."))
	}
	for _, f := range ex.Factors {
		sign := "+"
		if f.Delta < 0 {
			sign = ""
		}
		fmt.Fprintf(w, "  %6s  %-16s %s\n", fmt.Sprintf("%s%d", sign, f.Delta), f.Name, mutedStyle.Render(f.Reason))
	}
	fmt.Fprintln(w, mutedStyle.Render(ex.Algorithm))
}

// RenderProjects prints a compact project list.
func RenderProjects(w io.Writer, projects []queries.ProjectDTO) {
	if len(projects) == 0 {
		fmt.Fprintln(w, "No projects found.")
		return
	}
	fmt.Fprintf(w, "Found %d project(s):\n\n", len(projects))
	for _, p := range projects {
		fmt.Fprintf(w, "%s [%s] %s pts\n", titleStyle.Render(p.Title), p.Status, formatPoints(p.Budget))
		fmt.Fprintf(w, "   ID: %s\n", p.ID.String()[:8])
		if p.DueDate != nil {
			fmt.Fprintf(w, "   Due: %s\n", p.DueDate.Format("2006-01-02"))
		}
	}
}

// RenderProject prints every field of one project.
func RenderProject(w io.Writer, p *queries.ProjectDTO) {
	fmt.Fprintln(w, titleStyle.Render(p.Title))
	row := func(k, v string) { fmt.Fprintf(w, "  %-12s %s\n", mutedStyle.Render(k), v) }
	row("id", p.ID.String())
	row("status", p.Status)
	row("budget", formatPoints(p.Budget)+" pts")
	row("client", p.ClientID.String())
	if p.ContractorID != nil {
		row("contractor", p.ContractorID.String())
	}
	if p.DueDate != nil {
		row("due", p.DueDate.Format("2006-01-02 15:04"))
	}
	if p.MScore != nil {
		row("m-score", fmt.Sprint(*p.MScore))
	}
	if p.SScore != nil {
		row("s-score", fmt.Sprint(*p.SScore))
	}
	row("proposals", fmt.Sprint(p.ProposalCount))
	row("unread", fmt.Sprint(p.UnreadMessages))
	if len(p.Tags) > 0 {
		row("tags", strings.Join(p.Tags, ", "))
	}
	if p.Description != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, p.Description)
	}
}

// RenderTransactions prints ledger entries with their signed effect.
func RenderTransactions(w io.Writer, txs []domain.Transaction) {
	if len(txs) == 0 {
		fmt.Fprintln(w, "No transactions yet.")
		return
	}
	for _, tx := range txs {
		fmt.Fprintf(w, "%s  %-12s %10s  %s\n",
			tx.CreatedAt.Local().Format("2006-01-02 15:04"),
			tx.Type,
			signedPoints(tx),
			mutedStyle.Render(tx.TxHash),
		)
	}
}

func signedPoints(tx domain.Transaction) string {
	if tx.Type.IsDebit() {
		return "-" + formatPoints(tx.Amount)
	}
	return "+" + formatPoints(tx.Amount)
}

func tokenColor(token string) lipgloss.Color {
	if c, ok := tokenColors[token]; ok {
		return c
	}
	return tokenColors["gray"]
}

// formatPoints groups thousands: 1234567 -> 1,234,567.
func formatPoints(n int64) string {
	neg := n < 0
	if neg {
		n = -n
	}
	s := fmt.Sprint(n)
	var b strings.Builder
	for i, r := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
