package watch

import (
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
	"github.com/timewinder-dev/watchpoint/interp"
)

// Printer is the default callback. It writes one block per change.
type Printer struct {
	Out io.Writer
}

func (p *Printer) Print(ev *Event) error {
	_, err := io.WriteString(p.Out, FormatEvent(ev))
	return err
}

// FormatEvent renders a change for the console.
func FormatEvent(ev *Event) string {
	var b strings.Builder
	b.WriteString(color.Gray.Sprint("====== Watch Triggered ======"))
	b.WriteString("\n")
	b.WriteString(color.Bold.Sprint(ev.Target.String()))
	fmt.Fprintf(&b, " %s ", color.Yellow.Sprint(ev.Kind))
	b.WriteString(color.Cyan.Sprintf("at %s", ev.Location))
	if ev.Location.Function != "" {
		fmt.Fprintf(&b, " in %s", ev.Location.Function)
	}
	b.WriteString("\n")
	b.WriteString(color.Bold.Sprint("  old: "))
	b.WriteString(interp.FormatValue(ev.Old))
	b.WriteString("\n")
	b.WriteString(color.Bold.Sprint("  new: "))
	b.WriteString(color.Green.Sprint(interp.FormatValue(ev.New)))
	b.WriteString("\n")
	return b.String()
}
