package summary

import (
	"regexp"
	"sort"
	"strings"

	"newsbrief/internal/core"
	"newsbrief/internal/logger"
)

var (
	// sectionHeaderPattern tolerates extra attributes before data-section so
	// model output like <h3 class="x" data-section="k"> still splits.
	sectionHeaderPattern = regexp.MustCompile(`<h3\s[^>]*?data-section="([^"]+)"[^>]*>`)
	dataSectionAttr      = regexp.MustCompile(`data-section="[^"]+"`)
	trailingCloseDiv     = regexp.MustCompile(`\s*</div>\s*$`)
	storyHashAttr        = regexp.MustCompile(`data-story-hash="([^"]+)"`)
	leadingWrapperDiv    = regexp.MustCompile(`^<div class="NB-briefing-summary">`)
	trailingWrapperDiv   = regexp.MustCompile(`</div>$`)
)

// ExtractSectionSummaries parses briefing HTML into per-section blocks,
// split on <h3 data-section="KEY"> headers. Keys are normalized; headers
// whose key cannot be normalized are dropped along with their content. Each
// returned block is rewrapped in the standard summary div, so extraction is
// idempotent.
func ExtractSectionSummaries(summaryHTML string) map[string]string {
	sections := make(map[string]string)
	if summaryHTML == "" {
		return sections
	}

	matches := sectionHeaderPattern.FindAllStringSubmatchIndex(summaryHTML, -1)
	for i, m := range matches {
		h3Tag := summaryHTML[m[0]:m[1]]
		rawKey := summaryHTML[m[2]:m[3]]

		key := NormalizeSectionKey(rawKey)
		if key == "" {
			logger.Warn("briefing: rejecting invalid section key", "key", rawKey)
			continue
		}
		if key != rawKey {
			h3Tag = dataSectionAttr.ReplaceAllString(h3Tag, `data-section="`+key+`"`)
		}

		end := len(summaryHTML)
		if i+1 < len(matches) {
			end = matches[i+1][0]
		}
		content := summaryHTML[m[1]:end]
		content = trailingCloseDiv.ReplaceAllString(content, "")

		sections[key] = `<div class="NB-briefing-summary">` + h3Tag + content + `</div>`
	}
	return sections
}

// ExtractSectionStoryHashes maps each section key to the story hashes its
// HTML references. Sections with no story links are omitted.
func ExtractSectionStoryHashes(sectionSummaries map[string]string) map[string][]string {
	result := make(map[string][]string)
	for key, html := range sectionSummaries {
		var hashes []string
		for _, m := range storyHashAttr.FindAllStringSubmatch(html, -1) {
			hashes = append(hashes, m[1])
		}
		if len(hashes) > 0 {
			result[key] = hashes
		}
	}
	return result
}

// FilterDisabledSections rebuilds briefing HTML with only the enabled
// sections. trending_global always survives as the fallback section, and if
// filtering would leave nothing the original HTML is returned unchanged.
func FilterDisabledSections(summaryHTML string, activeSections map[string]bool) string {
	if summaryHTML == "" || len(activeSections) == 0 {
		return summaryHTML
	}

	sections := ExtractSectionSummaries(summaryHTML)
	if len(sections) == 0 {
		return summaryHTML
	}

	allowed := make(map[string]bool, len(activeSections)+1)
	for key, enabled := range activeSections {
		if enabled {
			allowed[key] = true
		}
	}
	allowed[core.SectionTrendingGlobal] = true

	keys := make([]string, 0, len(sections))
	for key := range sections {
		if allowed[key] {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return summaryHTML
	}

	// Preserve the sections' order of appearance in the source HTML.
	sort.Slice(keys, func(i, j int) bool {
		return sectionPosition(summaryHTML, keys[i]) < sectionPosition(summaryHTML, keys[j])
	})

	var b strings.Builder
	b.WriteString(`<div class="NB-briefing-summary">`)
	for _, key := range keys {
		inner := leadingWrapperDiv.ReplaceAllString(sections[key], "")
		inner = trailingWrapperDiv.ReplaceAllString(inner, "")
		b.WriteString(inner)
	}
	b.WriteString(`</div>`)
	return b.String()
}

func sectionPosition(html, key string) int {
	idx := strings.Index(html, `data-section="`+key+`"`)
	if idx < 0 {
		return len(html)
	}
	return idx
}
