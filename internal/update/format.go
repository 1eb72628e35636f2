package update

import (
	"fmt"
	"strings"
	"time"

	"github.com/sandeepkv93/schedd/internal/engine"
	"github.com/sandeepkv93/schedd/internal/model"
)

// FormatResult renders res as markdown. Sections appear only when the
// result carries them.
func FormatResult(res engine.Result, loc *time.Location) string {
	var b strings.Builder
	if e := res.Error; e != nil {
		fmt.Fprintf(&b, "**%s**: %s\n", e.Kind, escapeMarkdown(e.Message))
		if e.Hint != "" {
			fmt.Fprintf(&b, "\n_%s_\n", escapeMarkdown(e.Hint))
		}
		if len(e.Conflicts) > 0 {
			b.WriteString("\nclashes with:\n\n")
			for _, c := range e.Conflicts {
				fmt.Fprintf(&b, "- %s\n", appointmentLine(c.Existing))
			}
		}
		spans(&b, "try instead", e.Proposals)
		return strings.TrimSpace(b.String())
	}

	if res.Message != "" {
		b.WriteString(escapeMarkdown(res.Message) + "\n")
	}
	if res.Count != nil {
		fmt.Fprintf(&b, "\ncount: **%d**\n", *res.Count)
	}
	if res.Appointment != nil {
		fmt.Fprintf(&b, "\n- %s\n", appointmentLine(*res.Appointment))
	}
	appointments(&b, "appointments", res.Appointments)
	appointments(&b, "created", res.Created)
	appointments(&b, "updated", res.Updated)
	if len(res.Deleted) > 0 {
		fmt.Fprintf(&b, "\ndeleted %d appointment(s)\n", len(res.Deleted))
	}
	if len(res.FreeSlots) > 0 {
		b.WriteString("\nfree:\n\n")
		for _, s := range res.FreeSlots {
			fmt.Fprintf(&b, "- %s (%d min)\n", spanLine(s.Span), s.Duration())
		}
	}
	spans(&b, "proposals", res.Proposals)
	if len(res.Conflicts) > 0 {
		b.WriteString("\nconflicts:\n\n")
		for _, c := range res.Conflicts {
			fmt.Fprintf(&b, "- %s overlaps %s\n", appointmentLine(c.First), appointmentLine(c.Second))
		}
	}
	if len(res.Preview) > 0 {
		b.WriteString("\npreview:\n\n")
		for _, o := range res.Preview {
			fmt.Fprintf(&b, "- %s %s\n", spanLine(o.Span()), escapeMarkdown(o.Title))
		}
	}
	if len(res.Skipped) > 0 {
		b.WriteString("\nskipped:\n\n")
		for _, s := range res.Skipped {
			fmt.Fprintf(&b, "- %s %s (%d clash)\n", spanLine(s.Occurrence.Span()), escapeMarkdown(s.Occurrence.Title), len(s.Conflicts))
		}
	}
	if len(res.Unplaced) > 0 {
		b.WriteString("\nnot placed:\n\n")
		for _, s := range res.Unplaced {
			fmt.Fprintf(&b, "- %s\n", escapeMarkdown(s.Title))
		}
	}
	if r := res.Reminder; r != nil {
		fmt.Fprintf(&b, "\n- reminder %s via %s\n", escapeMarkdown(r.Title), r.Channel)
	}
	if len(res.Reminders) > 0 {
		b.WriteString("\nreminders:\n\n")
		for _, r := range res.Reminders {
			when := "no trigger"
			if r.FiresAt != nil {
				when = r.FiresAt.In(loc).Format("2006-01-02 15:04")
			}
			fmt.Fprintf(&b, "- [%s] %s at %s\n", r.State, escapeMarkdown(r.Title), when)
		}
	}
	if len(res.Templates) > 0 {
		b.WriteString("\ntemplates: " + escapeMarkdown(strings.Join(res.Templates, ", ")) + "\n")
	}
	if b.Len() == 0 {
		return "done"
	}
	return strings.TrimSpace(b.String())
}

func appointments(b *strings.Builder, heading string, appts []model.Appointment) {
	if len(appts) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n\n", heading)
	for _, a := range appts {
		fmt.Fprintf(b, "- %s\n", appointmentLine(a))
	}
}

func spans(b *strings.Builder, heading string, list []model.Span) {
	if len(list) == 0 {
		return
	}
	fmt.Fprintf(b, "\n%s:\n\n", heading)
	for _, s := range list {
		fmt.Fprintf(b, "- %s\n", spanLine(s))
	}
}

func appointmentLine(a model.Appointment) string {
	line := spanLine(a.Span()) + " " + escapeMarkdown(a.Title)
	if a.Label != "" {
		line += " #" + escapeMarkdown(a.Label)
	}
	if a.Location != "" {
		line += " @ " + escapeMarkdown(a.Location)
	}
	return line
}

func spanLine(s model.Span) string {
	return "`" + s.String() + "`"
}

// summary is the one-line status shown after a successful request.
func summary(res engine.Result) string {
	switch {
	case res.Message != "":
		return res.Message
	case res.Count != nil:
		return fmt.Sprintf("%d appointment(s)", *res.Count)
	case len(res.Created) > 0:
		return fmt.Sprintf("created %d appointment(s)", len(res.Created))
	case len(res.Deleted) > 0:
		return fmt.Sprintf("deleted %d appointment(s)", len(res.Deleted))
	case len(res.Updated) > 0:
		return fmt.Sprintf("updated %d appointment(s)", len(res.Updated))
	case len(res.FreeSlots) > 0:
		return fmt.Sprintf("%d free slot(s)", len(res.FreeSlots))
	case len(res.Preview) > 0:
		return fmt.Sprintf("%d occurrence(s) previewed", len(res.Preview))
	case len(res.Reminders) > 0:
		return fmt.Sprintf("%d reminder(s)", len(res.Reminders))
	}
	return "done"
}
