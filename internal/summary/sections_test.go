package summary

import (
	"strings"
	"testing"
)

const sampleBriefing = `<div class="NB-briefing-summary">` +
	`<h3 data-section="quick_catchup">Quick catch-up</h3>` +
	`<p><a class="NB-briefing-story-link" data-story-hash="1:aaa">First</a></p>` +
	`<h3 data-section="trending_global">Trending</h3>` +
	`<p><a class="NB-briefing-story-link" data-story-hash="2:bbb">Second</a></p>` +
	`<h3 data-section="long_read">Long reads</h3>` +
	`<p><a class="NB-briefing-story-link" data-story-hash="3:ccc">Third</a></p>` +
	`</div>`

func TestExtractSectionSummaries(t *testing.T) {
	sections := ExtractSectionSummaries(sampleBriefing)
	if len(sections) != 3 {
		t.Fatalf("expected 3 sections, got %d: %v", len(sections), keysOf(sections))
	}
	for _, key := range []string{"quick_catchup", "trending_global", "long_read"} {
		block, ok := sections[key]
		if !ok {
			t.Errorf("missing section %q", key)
			continue
		}
		if !strings.HasPrefix(block, `<div class="NB-briefing-summary">`) {
			t.Errorf("section %q not rewrapped: %q", key, block)
		}
		if !strings.HasSuffix(block, `</div>`) {
			t.Errorf("section %q missing closing div: %q", key, block)
		}
	}
	// The last section must not swallow the outer wrapper's closing tag.
	if strings.Count(sections["long_read"], "</div>") != 1 {
		t.Errorf("trailing </div> not stripped from last section: %q", sections["long_read"])
	}
}

func TestExtractSectionSummaries_Idempotent(t *testing.T) {
	first := ExtractSectionSummaries(sampleBriefing)
	second := ExtractSectionSummaries(first["trending_global"])
	if second["trending_global"] != first["trending_global"] {
		t.Errorf("re-extraction changed the block:\n%q\n%q",
			first["trending_global"], second["trending_global"])
	}
}

func TestExtractSectionSummaries_NormalizesKeys(t *testing.T) {
	html := `<div class="NB-briefing-summary">` +
		`<h3 class="section" data-section="Trending-Global">Trending</h3><p>x</p>` +
		`<h3 data-section="not_a_real_section">Bogus</h3><p>y</p>` +
		`</div>`
	sections := ExtractSectionSummaries(html)
	if _, ok := sections["trending_global"]; !ok {
		t.Errorf("hyphenated key should normalize, got %v", keysOf(sections))
	}
	if !strings.Contains(sections["trending_global"], `data-section="trending_global"`) {
		t.Errorf("h3 attribute should be rewritten: %q", sections["trending_global"])
	}
	if len(sections) != 1 {
		t.Errorf("invalid key should drop its section, got %v", keysOf(sections))
	}
}

func TestExtractSectionStoryHashes(t *testing.T) {
	sections := ExtractSectionSummaries(sampleBriefing)
	hashes := ExtractSectionStoryHashes(sections)
	if got := hashes["quick_catchup"]; len(got) != 1 || got[0] != "1:aaa" {
		t.Errorf("quick_catchup hashes = %v, want [1:aaa]", got)
	}
	if got := hashes["long_read"]; len(got) != 1 || got[0] != "3:ccc" {
		t.Errorf("long_read hashes = %v, want [3:ccc]", got)
	}

	// Sections without links are omitted entirely.
	empty := ExtractSectionStoryHashes(map[string]string{"trending_global": "<p>no links</p>"})
	if len(empty) != 0 {
		t.Errorf("expected no entries for linkless sections, got %v", empty)
	}
}

func TestFilterDisabledSections(t *testing.T) {
	active := map[string]bool{
		"quick_catchup": true,
		"long_read":     false,
	}
	filtered := FilterDisabledSections(sampleBriefing, active)
	if strings.Contains(filtered, `data-section="long_read"`) {
		t.Error("disabled section survived filtering")
	}
	if !strings.Contains(filtered, `data-section="quick_catchup"`) {
		t.Error("enabled section was dropped")
	}
	// trending_global always survives as the fallback section.
	if !strings.Contains(filtered, `data-section="trending_global"`) {
		t.Error("trending_global should always survive")
	}
	if !strings.HasPrefix(filtered, `<div class="NB-briefing-summary">`) {
		t.Errorf("filtered output not wrapped: %q", filtered[:60])
	}
	// Document order preserved: quick_catchup before trending_global.
	if strings.Index(filtered, "quick_catchup") > strings.Index(filtered, "trending_global") {
		t.Error("section order not preserved")
	}
}

func TestFilterDisabledSections_AllDisabledReturnsOriginal(t *testing.T) {
	html := `<div class="NB-briefing-summary">` +
		`<h3 data-section="long_read">Long reads</h3><p>x</p></div>`
	active := map[string]bool{"long_read": false}
	if got := FilterDisabledSections(html, active); got != html {
		t.Errorf("filtering to nothing should return the original, got %q", got)
	}
}

func TestFilterDisabledSections_NoActiveMapReturnsOriginal(t *testing.T) {
	if got := FilterDisabledSections(sampleBriefing, nil); got != sampleBriefing {
		t.Error("nil active sections should leave HTML untouched")
	}
}

func TestNormalizeSectionKey(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"trending_global", "trending_global"},
		{"Trending-Global", "trending_global"},
		{"  quick_catchup ", "quick_catchup"},
		{"quick__catchup", "quick_catchup"},
		{"quickcatchup", "quick_catchup"},
		{"_long_read_", "long_read"},
		{"custom_2", "custom_2"},
		{"nonsense", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := NormalizeSectionKey(tt.in); got != tt.want {
			t.Errorf("NormalizeSectionKey(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func keysOf(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}
