// Package flags shows and hides page affordances from boolean
// configuration values.
package flags

import (
	"github.com/lockard-llc/lockard-site/model"
	"github.com/lockard-llc/lockard-site/page"
	"golang.org/x/net/html"
)

// Element ids of injected affordances.
const (
	ThemeToggleID      = "theme-toggle"
	MaintenanceID      = "maintenance-mode"
	BannerID           = "announcement-banner"
	BetaPanelID        = "beta-admin-panel"
	bannerMessageClass = "announcement-message"
)

// Body classes set by the gate.
const (
	NoAnimationsClass = "no-animations"
	DarkModeClass     = "dark-mode"
	MoodThemingClass  = "mood-theming"
	BetaClass         = "beta-features-enabled"
)

const (
	maintenanceStyle = "position: fixed; top: 0; left: 0; width: 100%; height: 100%; " +
		"background: rgba(0,0,0,0.9); color: white; display: flex; align-items: center; " +
		"justify-content: center; z-index: 2147483647; flex-direction: column; " +
		"text-align: center; padding: 2rem;"
	bannerStyle = "background: var(--primary); color: white; text-align: center; " +
		"padding: 1rem; position: fixed; top: 0; left: 0; right: 0; z-index: 1000;"
	bannerNavOffset = "60px"
)

type toggle struct {
	name  string
	apply func(*page.Document, model.Snapshot)
}

// toggles run in this order on every apply.
var toggles = []toggle{
	{"animations", applyAnimations},
	{"dark_mode", applyDarkMode},
	{"mood_theming", applyMoodTheming},
	{"maintenance", applyMaintenance},
	{"announcement", applyAnnouncement},
	{"beta", applyBeta},
}

// Gate applies feature flags to a document. Each toggle adds its
// affordance at most once and removes it when the flag is off.
type Gate struct{}

func (Gate) Apply(doc *page.Document, snap model.Snapshot) {
	for _, t := range toggles {
		t.apply(doc, snap)
	}
}

func applyAnimations(doc *page.Document, snap model.Snapshot) {
	if snap.Bool(model.EnableAnimations) {
		doc.RemoveBodyClass(NoAnimationsClass)
		return
	}
	doc.AddBodyClass(NoAnimationsClass)
}

func applyDarkMode(doc *page.Document, snap model.Snapshot) {
	if !snap.Bool(model.EnableDarkMode) {
		doc.RemoveByID(ThemeToggleID)
		doc.RemoveBodyClass(DarkModeClass)
		return
	}
	if doc.ElementByID(ThemeToggleID) != nil {
		return
	}
	button := page.Element("button", page.Attrs(
		"id", ThemeToggleID,
		"type", "button",
		"class", "theme-toggle",
		"aria-label", "Toggle dark mode",
		"onclick", "document.body.classList.toggle('"+DarkModeClass+"')",
	), page.Text("🌓"))
	if nav := firstClass(doc, "nav"); nav != nil {
		nav.AppendChild(button)
		return
	}
	doc.Prepend(button)
}

func applyMoodTheming(doc *page.Document, snap model.Snapshot) {
	if snap.Bool(model.EnableMoodTheming) {
		doc.AddBodyClass(MoodThemingClass)
		return
	}
	doc.RemoveBodyClass(MoodThemingClass)
}

// applyMaintenance blocks the whole viewport. The overlay has no dismiss
// control.
func applyMaintenance(doc *page.Document, snap model.Snapshot) {
	if !snap.Bool(model.MaintenanceMode) {
		doc.RemoveByID(MaintenanceID)
		return
	}
	if doc.ElementByID(MaintenanceID) != nil {
		return
	}
	doc.Append(page.Element("div", page.Attrs("id", MaintenanceID, "style", maintenanceStyle, "role", "alert"),
		page.Element("h1", nil, page.Text("🔧 Maintenance Mode")),
		page.Element("p", nil, page.Text("We're making some improvements. Check back soon!")),
	))
}

func applyAnnouncement(doc *page.Document, snap model.Snapshot) {
	message := snap.String(model.AnnouncementBanner)
	nav := firstClass(doc, "nav")
	if message == "" {
		doc.RemoveByID(BannerID)
		if nav != nil {
			page.RemoveStyleProp(nav, "top")
		}
		return
	}

	if banner := doc.ElementByID(BannerID); banner != nil {
		if msg := firstChildClass(banner, bannerMessageClass); msg != nil {
			page.SetChildren(msg, page.Fragment(message)...)
			return
		}
		doc.RemoveByID(BannerID)
	}
	doc.Prepend(page.Element("div", page.Attrs("id", BannerID, "style", bannerStyle, "role", "status"),
		page.Element("span", page.Attrs("class", bannerMessageClass), page.Fragment(message)...),
		page.Element("button", page.Attrs(
			"type", "button",
			"aria-label", "Dismiss announcement",
			"style", "background: none; border: none; color: white; float: right; cursor: pointer; font-size: 1.2rem; margin-left: 1rem;",
			"onclick", "this.parentElement.remove()",
		), page.Text("×")),
	))
	if nav != nil {
		page.SetStyleProp(nav, "top", bannerNavOffset)
	}
}

func applyBeta(doc *page.Document, snap model.Snapshot) {
	if !snap.Bool(model.ShowBetaFeatures) {
		doc.RemoveBodyClass(BetaClass)
		doc.RemoveByID(BetaPanelID)
		return
	}
	doc.AddBodyClass(BetaClass)

	version := "Version " + snap.String(model.AppVersion)
	if panel := doc.ElementByID(BetaPanelID); panel != nil {
		if v := firstChildClass(panel, "beta-version"); v != nil {
			page.SetText(v, version)
		}
		return
	}
	doc.Append(page.Element("aside", page.Attrs("id", BetaPanelID, "class", "admin-panel"),
		page.Element("h4", nil, page.Text("Beta features")),
		page.Element("p", page.Attrs("class", "beta-version"), page.Text(version)),
	))
}

func firstClass(doc *page.Document, class string) *html.Node {
	if nodes := doc.ByClass(class); len(nodes) > 0 {
		return nodes[0]
	}
	return nil
}

func firstChildClass(n *html.Node, class string) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && page.HasClass(c, class) {
			return c
		}
		if found := firstChildClass(c, class); found != nil {
			return found
		}
	}
	return nil
}
