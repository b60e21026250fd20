package core

import "strconv"

// Section keys for briefing summaries. The fixed keys correspond to scorer
// categories; custom_1..custom_5 are user-defined keyword sections.
const (
	SectionTrendingUnread  = "trending_unread"
	SectionLongRead        = "long_read"
	SectionClassifierMatch = "classifier_match"
	SectionFollowUp        = "follow_up"
	SectionTrendingGlobal  = "trending_global"
	SectionDuplicates      = "duplicates"
	SectionQuickCatchup    = "quick_catchup"
	SectionEmergingTopics  = "emerging_topics"
	SectionContrarianViews = "contrarian_views"
)

// MaxCustomSections caps the number of user keyword sections.
const MaxCustomSections = 5

// FixedSectionKeys lists the non-custom section keys in prompt order.
var FixedSectionKeys = []string{
	SectionTrendingUnread,
	SectionLongRead,
	SectionClassifierMatch,
	SectionFollowUp,
	SectionTrendingGlobal,
	SectionDuplicates,
	SectionQuickCatchup,
	SectionEmergingTopics,
	SectionContrarianViews,
}

// ValidSectionKeys is the complete set of acceptable section keys: the fixed
// keys plus custom_1..custom_5.
var ValidSectionKeys = func() map[string]bool {
	keys := make(map[string]bool, len(FixedSectionKeys)+MaxCustomSections)
	for _, k := range FixedSectionKeys {
		keys[k] = true
	}
	for _, k := range CustomSectionKeys() {
		keys[k] = true
	}
	return keys
}()

// CustomSectionKeys returns custom_1..custom_5 in order.
func CustomSectionKeys() []string {
	keys := make([]string, MaxCustomSections)
	for i := range keys {
		keys[i] = customSectionKey(i + 1)
	}
	return keys
}

func customSectionKey(n int) string {
	return "custom_" + strconv.Itoa(n)
}

// CustomSectionKey returns the key for the nth (1-based) custom section.
func CustomSectionKey(n int) string {
	return customSectionKey(n)
}

// DefaultSections enables every fixed section and no custom sections.
func DefaultSections() map[string]bool {
	sections := make(map[string]bool, len(FixedSectionKeys))
	for _, k := range FixedSectionKeys {
		sections[k] = true
	}
	return sections
}
