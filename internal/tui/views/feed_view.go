package views

import (
	"fmt"
	"time"

	"github.com/matheus3301/lcchat/internal/rpc"
	"github.com/matheus3301/lcchat/internal/tui/ui"
	"github.com/rivo/tview"
)

// FeedView lists the status posts visible to the signed-in user, grouped
// by author.
type FeedView struct {
	*tview.TextView
	theme *ui.Theme
	count int
}

// NewFeedView creates a new status feed view.
func NewFeedView(theme *ui.Theme) *FeedView {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	tv.SetBorder(true)
	tv.SetBorderColor(theme.BorderColor)
	tv.SetBackgroundColor(theme.BgColor)
	tv.SetTextColor(theme.FgColor)
	tv.SetTitle(" Status ")
	tv.SetTitleColor(theme.TitleColor)

	return &FeedView{
		TextView: tv,
		theme:    theme,
	}
}

// Name implements Component.
func (fv *FeedView) Name() string { return "Status" }

// Init implements Component.
func (fv *FeedView) Init() {}

// Start implements Component.
func (fv *FeedView) Start() {}

// Stop implements Component.
func (fv *FeedView) Stop() {}

// Hints implements Component.
func (fv *FeedView) Hints() []ui.MenuHint {
	return []ui.MenuHint{
		{Key: "p", Description: "Post"},
		{Key: "Esc", Description: "Back"},
		{Key: ":", Description: "Command"},
	}
}

// Count returns the number of posts in the last rendered feed.
func (fv *FeedView) Count() int {
	return fv.count
}

// Update renders the feed.
func (fv *FeedView) Update(feed *rpc.Feed) {
	fv.Clear()
	fv.count = 0
	if feed == nil {
		_, _ = fmt.Fprint(fv, "\n [::d]Loading...[-:-:-]")
		return
	}

	mine := colorName(fv.theme.MineColor)
	other := colorName(fv.theme.PartnerColor)

	_, _ = fmt.Fprintf(fv, "\n [%s::b]My status[-:-:-]\n", mine)
	if len(feed.Mine) == 0 {
		_, _ = fmt.Fprint(fv, "   [::d]No status yet. Press p to post one.[-:-:-]\n")
	}
	fv.writePosts(feed.Mine)

	for _, author := range feed.Others {
		name := author.Author.Name
		if name == "" {
			name = author.Author.Number
		}
		_, _ = fmt.Fprintf(fv, "\n [%s::b]%s[-:-:-]\n", other, tview.Escape(sanitizeForTerminal(name)))
		fv.writePosts(author.Posts)
	}
	if len(feed.Others) == 0 {
		_, _ = fmt.Fprint(fv, "\n [::d]No recent updates from your chats.[-:-:-]\n")
	}
	fv.SetTitle(fmt.Sprintf(" Status (%d) ", fv.count))
}

func (fv *FeedView) writePosts(posts []rpc.Status) {
	for _, p := range posts {
		fv.count++
		_, _ = fmt.Fprintf(fv, "   [::d]%s[-:-:-]  %s\n", postedAgo(p.PostedAt), tview.Escape(p.MediaURL))
	}
}

func postedAgo(ms int64) string {
	d := time.Since(time.UnixMilli(ms))
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
}
