package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"localserve/client"
	"localserve/lifecycle"
	"localserve/models"

	"github.com/charmbracelet/lipgloss"
)

const columnWidthID = 38

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	idStyle     = lipgloss.NewStyle().Width(columnWidthID)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	actionStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
)

// statusColor picks the badge color for a booking status. Unknown statuses
// get a neutral badge.
func statusColor(status string) lipgloss.Color {
	switch status {
	case models.StatusBooked:
		return lipgloss.Color("4")
	case models.StatusAwaitingPayment:
		return lipgloss.Color("3")
	case models.StatusPaid, models.StatusInProgress:
		return lipgloss.Color("5")
	case models.StatusCompleted:
		return lipgloss.Color("2")
	case models.StatusRejected:
		return lipgloss.Color("1")
	default:
		return lipgloss.Color("7")
	}
}

func statusBadge(status string) string {
	return lipgloss.NewStyle().
		Foreground(lipgloss.Color("0")).
		Background(statusColor(status)).
		Padding(0, 1).
		Bold(true).
		Render(status)
}

func renderDashboard(w io.Writer, d *client.Dashboard) {
	bookings := d.Bookings()
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Bookings (%s)", d.Role())))
	if len(bookings) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("  no bookings"))
		return
	}
	for _, b := range bookings {
		renderBooking(w, b, d.Actions(b.ID))
	}
}

func renderBooking(w io.Writer, b models.Booking, actions []lifecycle.Action) {
	title := b.ServiceName
	if title == "" {
		title = b.ServiceID
	}
	fmt.Fprintf(w, "%s %s %s\n", idStyle.Render(b.ID), statusBadge(b.Status), title)

	var details []string
	if !b.Date.IsZero() {
		details = append(details, b.Date.Local().Format("Mon 2 Jan 15:04"))
	}
	if b.Address != "" {
		details = append(details, b.Address)
	}
	if b.ProviderAmount != nil {
		details = append(details, "amount "+strconv.FormatFloat(*b.ProviderAmount, 'f', 2, 64))
	}
	if len(details) > 0 {
		fmt.Fprintln(w, mutedStyle.Render("    "+strings.Join(details, " · ")))
	}
	if b.UserNote != nil {
		fmt.Fprintln(w, mutedStyle.Render("    user: "+*b.UserNote))
	}
	if b.ProviderNote != nil {
		fmt.Fprintln(w, mutedStyle.Render("    provider: "+*b.ProviderNote))
	}
	if len(actions) > 0 {
		names := make([]string, len(actions))
		for i, a := range actions {
			names[i] = string(a)
		}
		fmt.Fprintln(w, "    "+actionStyle.Render("→ "+strings.Join(names, ", ")))
	}
}
