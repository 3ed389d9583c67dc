package main

import (
	"echoes/domain"
	"echoes/runtime/workers"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
	"github.com/samber/lo"
)

const previewLength = 60

// renderer writes every view to out; colours are optional so output stays readable when piped.
type renderer struct {
	mu      sync.Mutex
	out     io.Writer
	colours bool
}

func newRenderer(out io.Writer, colours bool) *renderer {
	return &renderer{out: out, colours: colours}
}

func (r *renderer) style(text string, styles ...color.Color) string {
	if !r.colours {
		return text
	}
	return color.New(styles...).Render(text)
}

func (r *renderer) newTable() *tablewriter.Table {
	table := tablewriter.NewWriter(r.out)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}

func (r *renderer) Feed(echoes []domain.Echo, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(echoes) == 0 {
		fmt.Fprintln(r.out, "The void is silent. No echoes in the last 48 hours.")
		return
	}
	table := r.newTable()
	table.SetHeader([]string{"Echo", "Content", "Replies", "Time left"})
	for _, echo := range echoes {
		table.Append([]string{
			echo.ID.String(),
			preview(echo.Content),
			fmt.Sprintf("%d", len(echo.Replies)),
			domain.FormatHoursLeft(echo.CreatedAt, now),
		})
	}
	table.Render()
}

// Board is the watch view: the feed with the labels of the last countdown tick.
func (r *renderer) Board(echoes []domain.Echo, countdowns []workers.Countdown) {
	labels := lo.SliceToMap(countdowns, func(c workers.Countdown) (uuid.UUID, string) { return c.EchoID, c.Label })
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.style(fmt.Sprintf("--- %d echoes in the void ---", len(echoes)), color.FgCyan))
	table := r.newTable()
	table.SetHeader([]string{"Echo", "Content", "Replies", "Time left"})
	for _, echo := range echoes {
		label, ok := labels[echo.ID]
		if !ok {
			continue
		}
		table.Append([]string{echo.ID.String(), preview(echo.Content), fmt.Sprintf("%d", len(echo.Replies)), label})
	}
	table.Render()
}

func (r *renderer) Thread(echo domain.Echo, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, r.style(domain.FormatPrecise(domain.Remaining(echo.CreatedAt, now)), color.FgYellow))
	fmt.Fprintln(r.out, echo.Content)
	fmt.Fprintln(r.out)
	if len(echo.Replies) == 0 {
		fmt.Fprintln(r.out, "No resonance yet.")
		return
	}
	for i, reply := range echo.Replies {
		fmt.Fprintf(r.out, "%s  %s\n", r.style(fmt.Sprintf("Resonance #%d", i+1), color.FgMagenta), reply.Content)
	}
}

func (r *renderer) Posted(echo domain.Echo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, "%s %s\n", r.style("Echo released into the void:", color.FgGreen), echo.ID)
}

// Notifications prints the panel; entries unread before it was opened are flagged NEW.
func (r *renderer) Notifications(notifications []domain.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(notifications) == 0 {
		fmt.Fprintln(r.out, "No one has answered your echoes yet.")
		return
	}
	table := r.newTable()
	table.SetHeader([]string{"", "Reply", "On your echo", "At"})
	for _, n := range notifications {
		flag := ""
		if !n.IsRead {
			flag = r.style("NEW", color.FgRed, color.OpBold)
		}
		table.Append([]string{flag, preview(n.Content), preview(n.EchoContent), n.CreatedAt.Local().Format(time.DateTime)})
	}
	table.Render()
}

func (r *renderer) Signature(sig domain.SignatureID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintln(r.out, sig)
}

// unreadIndicator prints the unread state only when it changes.
type unreadIndicator struct {
	mu    sync.Mutex
	r     *renderer
	shown *bool
}

func newUnreadIndicator(r *renderer) *unreadIndicator {
	return &unreadIndicator{r: r}
}

func (u *unreadIndicator) Update(hasUnread bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.shown != nil && *u.shown == hasUnread {
		return
	}
	u.shown = lo.ToPtr(hasUnread)

	u.r.mu.Lock()
	defer u.r.mu.Unlock()
	if hasUnread {
		fmt.Fprintln(u.r.out, u.r.style("* New resonance on your echoes", color.FgRed, color.OpBold))
		return
	}
	fmt.Fprintln(u.r.out, u.r.style("o No new resonance", color.FgGray))
}

func preview(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	if len([]rune(flat)) <= previewLength {
		return flat
	}
	return domain.Truncate(flat, previewLength-3) + "..."
}
