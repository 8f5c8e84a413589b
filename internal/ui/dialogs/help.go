package dialogs

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const helpText = `[yellow]Dashboard Keys[-]

  [green]Tab[-]      Next field in the form
  [green]Enter[-]    Open dropdown / press button
  [green]Space[-]    Toggle Publish
  [green]Ctrl+W[-]   Next pane (form, timeline, events)
  [green]↑↓[-]       Scroll timeline or events
  [green]Ctrl+R[-]   Refresh now
  [green]Ctrl+T[-]   Pause or resume auto-refresh
  [green]Ctrl+D[-]   Dismiss notifications
  [green]F1[-]       This help
  [green]Ctrl+C[-]   Quit

[yellow]Service[-]

  %s

Press [green]Escape[-] or [green]F1[-] to close.`

func HelpDialog(apiURL string, onClose func()) *tview.TextView {
	tv := tview.NewTextView()
	tv.SetBorder(true).SetTitle(" Help ").SetTitleAlign(tview.AlignLeft)
	tv.SetDynamicColors(true)
	tv.SetBackgroundColor(tcell.ColorDefault)
	tv.SetText(fmt.Sprintf(helpText, tview.Escape(apiURL)))
	tv.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			onClose()
			return nil
		}
		return event
	})
	return tv
}
