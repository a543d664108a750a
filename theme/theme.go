// Package theme writes configuration values into the page's style
// variables and text content.
package theme

import (
	"github.com/lockard-llc/lockard-site/model"
	"github.com/lockard-llc/lockard-site/page"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html"
)

// StyleVars maps root custom properties to the keys that feed them, in the
// order they are written.
var StyleVars = []struct {
	Name string
	Key  model.Key
}{
	{"--primary", model.PrimaryColor},
	{"--secondary", model.SecondaryColor},
	{"--accent", model.AccentColor},
	{"--background", model.BackgroundColor},
	{"--text-color", model.TextColor},
	{"--font-sans", model.FontFamily},
	{"--heading-size", model.HeadingFontSize},
	{"--body-size", model.BodyFontSize},
	{"--container-max", model.ContainerMaxWidth},
	{"--section-padding", model.SectionPadding},
	{"--border-radius", model.BorderRadius},
}

const (
	urgentCTAText = "Start Now - Limited Beta"
	pulseClass    = "pulse"
)

// emotionalHeroTitle renders "Feel the Future of<br><span class="text-gradient">Coding</span>".
func emotionalHeroTitle() []*html.Node {
	return []*html.Node{
		page.Text("Feel the Future of"),
		page.Element("br", nil),
		page.Element("span", page.Attrs("class", "text-gradient"), page.Text("Coding")),
	}
}

// Applier applies a snapshot's theme to a document. Applying the same
// snapshot twice leaves the document unchanged after the second call.
type Applier struct{}

func (Applier) Apply(doc *page.Document, snap model.Snapshot) {
	for _, v := range StyleVars {
		value := snap.String(v.Key)
		if value == "" || doc.SetStyleVar(v.Name, value) {
			continue
		}
		logrus.WithFields(logrus.Fields{"key": v.Key, "value": value}).Warn("style value escapes its declaration, using default")
		if d, ok := model.Lookup(v.Key); ok {
			doc.SetStyleVar(v.Name, d.Default)
		}
	}
	applyContent(doc, snap)
	applyVariants(doc, snap)
}

func applyContent(doc *page.Document, snap model.Snapshot) {
	if title := snap.String(model.HeroTitle); title != "" {
		eachClass(doc, "hero-title", func(n *html.Node) { page.SetLines(n, title) })
	}
	if subtitle := snap.String(model.HeroSubtitle); subtitle != "" {
		eachClass(doc, "hero-description", func(n *html.Node) { page.SetText(n, subtitle) })
	}
	if cta := snap.String(model.CTAText); cta != "" {
		eachClass(doc, "cta-primary", func(n *html.Node) { page.SetText(n, cta) })
	}
	if logo := snap.String(model.LogoURL); logo != "" {
		eachClass(doc, "site-logo", func(n *html.Node) { page.SetAttr(n, "src", logo) })
	}
	if favicon := snap.String(model.FaviconURL); favicon != "" {
		eachClass(doc, "site-favicon", func(n *html.Node) { page.SetAttr(n, "href", favicon) })
	}
	if app := snap.String(model.AppURL); app != "" {
		eachClass(doc, "app-link", func(n *html.Node) { page.SetAttr(n, "href", app) })
	}
	if docs := snap.String(model.DocsURL); docs != "" {
		eachClass(doc, "docs-link", func(n *html.Node) { page.SetAttr(n, "href", docs) })
	}
}

// applyVariants runs after the content pass so a variant overrides the
// configured text.
func applyVariants(doc *page.Document, snap model.Snapshot) {
	if snap.String(model.HeroVariant) == "emotional" {
		eachClass(doc, "hero-title", func(n *html.Node) {
			page.SetChildren(n, emotionalHeroTitle()...)
		})
	}
	urgent := snap.String(model.CTAVariant) == "urgent"
	eachClass(doc, "cta-primary", func(n *html.Node) {
		if urgent {
			page.SetText(n, urgentCTAText)
			page.AddClass(n, pulseClass)
			return
		}
		page.RemoveClass(n, pulseClass)
	})
}

func eachClass(doc *page.Document, class string, fn func(*html.Node)) {
	for _, n := range doc.ByClass(class) {
		fn(n)
	}
}
