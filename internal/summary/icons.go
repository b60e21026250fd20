package summary

import (
	"encoding/base64"
	"html"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"newsbrief/internal/core"
)

// BriefingSectionIcons maps section keys to icon files under the icons
// directory. Unknown keys fall back to briefing.svg.
var BriefingSectionIcons = map[string]string{
	core.SectionTrendingUnread:  "indicator-unread-gray.svg",
	core.SectionLongRead:        "scroll.svg",
	core.SectionClassifierMatch: "train.svg",
	core.SectionFollowUp:        "boomerang.svg",
	core.SectionTrendingGlobal:  "discover.svg",
	core.SectionDuplicates:      "venn.svg",
	core.SectionQuickCatchup:    "pulse.svg",
	core.SectionEmergingTopics:  "growth-rocket-gray.svg",
	core.SectionContrarianViews: "stack.svg",
	"custom_1":                  "prompt.svg",
	"custom_2":                  "prompt.svg",
	"custom_3":                  "prompt.svg",
	"custom_4":                  "prompt.svg",
	"custom_5":                  "prompt.svg",
}

// Inline styles applied during icon embedding. Email clients strip
// class-based styles, so everything the briefing needs to render must ride
// inline on the tags themselves.
const (
	wrapperStyle = "font-family:'Helvetica Neue',Arial,sans-serif;font-size:18px;line-height:1.5;color:#333;"
	ulStyle      = "list-style:none;margin:0 0 16px 0;padding:0 0 0 22px;"
	liStyle      = "margin:0 0 12px 0;padding:0;line-height:1.5;"
	pStyle       = "margin:0 0 12px 0;padding:0 0 0 22px;line-height:1.5;"
	faviconStyle = "width:16px;height:16px;border-radius:2px;margin:0;vertical-align:top;"

	classifierPillStyle = "display:inline-block;background-color:#34912E;" +
		"border:1px solid #202020;border-radius:14px;" +
		"padding:1px 8px;font-size:11px;line-height:16px;" +
		"margin:0 4px 0 0;white-space:nowrap;vertical-align:text-bottom;" +
		"text-decoration:none;"
	classifierLabelStyle = "color:white;text-decoration:none;"
	classifierBStyle     = "color:rgba(255,255,255,0.7);font-weight:normal;text-decoration:none;"
	classifierValueStyle = "color:white;text-shadow:1px 1px 0 rgba(0,0,0,0.5);text-decoration:none;"
	autoLinkStyle        = "color:white;text-decoration:none;"

	thumbsUpStyle = "display:inline-block;width:12px;height:12px;vertical-align:middle;margin:0 3px 0 0;"

	h3Style = "font-size:16px;font-weight:bold;color:#2d5273;" +
		"margin:24px 0 10px 0;padding-bottom:6px;" +
		"border-bottom:2px solid #e8e8e8;"
	sectionIconStyle = "display:inline-block;width:1em;height:1em;vertical-align:-0.1em;margin:0 0.3em 0 0;"
)

var (
	wrapperDivPattern   = regexp.MustCompile(`(<div\s+class="NB-briefing-summary")([^>]*>)`)
	ulPattern           = regexp.MustCompile(`<ul([^>]*)>`)
	liPattern           = regexp.MustCompile(`<li([^>]*)>`)
	pPattern            = regexp.MustCompile(`<p([^>]*)>`)
	storyLinkPattern    = regexp.MustCompile(`<a\s[^>]*data-story-hash="([^"]+)"[^>]*>`)
	liBlockPattern      = regexp.MustCompile(`(?s)(<li[^>]*>)(.*?)</li>`)
	pBlockPattern       = regexp.MustCompile(`(?s)(<p[^>]*>)(.*?)</p>`)
	faviconLeadPattern  = regexp.MustCompile(`(?s)^(\s*<img[^>]*NB-briefing-inline-favicon[^>]*>)\s*(.*)$`)
	pillBlockPattern    = regexp.MustCompile(`(?s)<span\s+class="[^"]*NB-briefing-classifier[^"]*">.*?</label>\s*</span>`)
	pillLabelSpan       = regexp.MustCompile(`(?s)(<label[^>]*>.*?)<span>`)
	iconLikeDivPattern  = regexp.MustCompile(`<div\s+class="NB-classifier-icon-like"[^>]*>\s*</div>`)
	pillSpanPattern     = regexp.MustCompile(`(?s)<span\s[^>]*NB-briefing-classifier[^>]*>.*?</span>`)
	anchorTagPattern    = regexp.MustCompile(`<a\b([^>]*)>`)
	sectionHdrPattern   = regexp.MustCompile(`<h3\s[^>]*data-section="([^"]+)"[^>]*>`)
	openingPTagPattern  = regexp.MustCompile(`^<p\b`)
)

// Embedder post-processes briefing HTML for email-compatible rendering:
// inline styles, favicon bullets, classifier pill styling, and per-section
// icons embedded as data URIs so nothing requires a network request.
type Embedder struct {
	siteURL  string
	iconsDir string
}

// NewEmbedder creates an icon embedder. siteURL is the base URL briefing
// story links point at; iconsDir holds the section SVG icons.
func NewEmbedder(siteURL, iconsDir string) *Embedder {
	return &Embedder{siteURL: strings.TrimRight(siteURL, "/"), iconsDir: iconsDir}
}

// EmbedBriefingIcons runs the full embedding pass. favicons maps feed ids to
// PNG data URIs; feedTitles supplies the favicon tooltip text. Both may be
// sparse.
func (e *Embedder) EmbedBriefingIcons(summaryHTML string, stories map[string]core.Story, feedTitles map[int64]string, favicons map[int64]string) string {
	if summaryHTML == "" {
		return summaryHTML
	}

	iconCache := make(map[string]string)

	// Wrapper, list, and paragraph styling.
	summaryHTML = wrapperDivPattern.ReplaceAllStringFunc(summaryHTML, func(tag string) string {
		m := wrapperDivPattern.FindStringSubmatch(tag)
		attrs := strings.TrimSuffix(m[2], ">")
		return m[1] + attrs + ` style="` + wrapperStyle + `">`
	})
	summaryHTML = ulPattern.ReplaceAllString(summaryHTML, `<ul$1 style="`+ulStyle+`">`)
	summaryHTML = liPattern.ReplaceAllString(summaryHTML, `<li$1 style="`+liStyle+`">`)
	summaryHTML = pPattern.ReplaceAllString(summaryHTML, `<p$1 style="`+pStyle+`">`)

	// Favicons before story links as visual bullets, plus hrefs so the
	// links work in email.
	summaryHTML = storyLinkPattern.ReplaceAllStringFunc(summaryHTML, func(tag string) string {
		m := storyLinkPattern.FindStringSubmatch(tag)
		storyHash := m[1]

		href := e.siteURL + "/briefing?story=" + storyHash
		tag = strings.Replace(tag,
			`class="NB-briefing-story-link"`,
			`href="`+href+`" class="NB-briefing-story-link"`, 1)

		story, ok := stories[storyHash]
		if !ok {
			return tag
		}
		url := favicons[story.FeedID]
		if url == "" {
			return tag
		}
		titleAttr := ""
		if feedTitle := feedTitles[story.FeedID]; feedTitle != "" {
			titleAttr = ` title="` + html.EscapeString(feedTitle) + `"`
		}
		img := `<img src="` + url + `" class="NB-briefing-inline-favicon" style="` + faviconStyle + `"` + titleAttr + `>`
		return img + tag
	})

	// Table layout around favicon bullets so email clients align them.
	summaryHTML = liBlockPattern.ReplaceAllStringFunc(summaryHTML, func(block string) string {
		m := liBlockPattern.FindStringSubmatch(block)
		fav := faviconLeadPattern.FindStringSubmatch(m[2])
		if fav == nil {
			return block
		}
		return m[1] + tablify(fav[1], fav[2]) + `</li>`
	})
	summaryHTML = pBlockPattern.ReplaceAllStringFunc(summaryHTML, func(block string) string {
		m := pBlockPattern.FindStringSubmatch(block)
		fav := faviconLeadPattern.FindStringSubmatch(m[2])
		if fav == nil {
			return block
		}
		// Tables cannot nest inside <p>; browsers auto-close the <p>,
		// leaving a blank element that offsets the favicon.
		divTag := openingPTagPattern.ReplaceAllString(m[1], "<div")
		return divTag + tablify(fav[1], fav[2]) + `</div>`
	})

	// Classifier pill styling.
	summaryHTML = pillBlockPattern.ReplaceAllStringFunc(summaryHTML, func(block string) string {
		block = strings.Replace(block,
			`class="NB-classifier`,
			`style="`+classifierPillStyle+`" class="NB-classifier`, 1)
		block = strings.ReplaceAll(block, "<label>", `<label style="`+classifierLabelStyle+`">`)
		block = strings.ReplaceAll(block, "<b>", `<b style="`+classifierBStyle+`">`)
		block = pillLabelSpan.ReplaceAllString(block, `$1<span style="`+classifierValueStyle+`">`)
		return block
	})

	// Swap the pill's icon div for an inline thumbs-up image, recolored
	// white to sit on the green pill.
	if thumbsUp := e.thumbsUpDataURI(); thumbsUp != "" {
		img := `<img src="` + thumbsUp + `" class="NB-classifier-icon-like" style="` + thumbsUpStyle + `" alt="">`
		summaryHTML = iconLikeDivPattern.ReplaceAllString(summaryHTML, img)
	}

	// Mail.app auto-links domain names inside pills, turning them blue;
	// force white undecorated text on any anchor inside a pill.
	summaryHTML = pillSpanPattern.ReplaceAllStringFunc(summaryHTML, func(block string) string {
		return anchorTagPattern.ReplaceAllString(block, `<a$1 style="`+autoLinkStyle+`">`)
	})

	// Section header styling and icons.
	summaryHTML = sectionHdrPattern.ReplaceAllStringFunc(summaryHTML, func(tag string) string {
		m := sectionHdrPattern.FindStringSubmatch(tag)
		sectionKey := m[1]

		iconFile, ok := BriefingSectionIcons[sectionKey]
		if !ok {
			iconFile = "briefing.svg"
		}
		dataURI := e.iconDataURI(iconFile, iconCache)
		styledTag := strings.Replace(tag, ">", ` style="`+h3Style+`">`, 1)
		if dataURI == "" {
			return styledTag
		}
		return styledTag + `<img src="` + dataURI + `" class="NB-briefing-section-icon" style="` + sectionIconStyle + `">`
	})

	return summaryHTML
}

func tablify(faviconImg, rest string) string {
	return `<table cellpadding="0" cellspacing="0" border="0" style="width:100%;">` +
		`<tr>` +
		`<td style="width:22px;vertical-align:top;padding-top:0;">` + faviconImg + `</td>` +
		`<td style="vertical-align:top;">` + rest + `</td>` +
		`</tr></table>`
}

func (e *Embedder) iconDataURI(iconFile string, cache map[string]string) string {
	if uri, ok := cache[iconFile]; ok {
		return uri
	}
	data, err := os.ReadFile(filepath.Join(e.iconsDir, iconFile))
	uri := ""
	if err == nil {
		uri = "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(data)
	}
	cache[iconFile] = uri
	return uri
}

func (e *Embedder) thumbsUpDataURI() string {
	data, err := os.ReadFile(filepath.Join(e.iconsDir, "thumbs-up.svg"))
	if err != nil {
		return ""
	}
	data = []byte(strings.ReplaceAll(string(data), `fill="#FFC021"`, `fill="#FFFFFF"`))
	return "data:image/svg+xml;base64," + base64.StdEncoding.EncodeToString(data)
}
