package summary

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"newsbrief/internal/core"
)

// LengthInstructions keys summary_length preference values to prompt text.
var LengthInstructions = map[string]string{
	"short": "Include ALL sections listed above that have relevant stories, but keep each story to a single " +
		"sentence or headline. Under 300 words total.",
	"medium": "Include ALL sections listed above that have relevant stories. " +
		"Keep each story to 1-2 sentences. Under 600 words total.",
	"detailed": "Include ALL sections listed above that have relevant stories. " +
		"Write 2-3 sentences of analysis per story. Explain connections between stories where relevant. " +
		"Up to 1000 words.",
}

// StyleInstructions keys summary_style preference values to prompt text.
var StyleInstructions = map[string]string{
	"editorial": "Write in a narrative editorial style with flowing prose that connects stories thematically. " +
		"Wrap each story paragraph in a <p> tag. Do NOT use <ul> or <li> tags.",
	"bullets": "Write each story as a concise one-sentence summary. Group by the section headers below. " +
		"Wrap each story in its own <p> tag. Do NOT use <ul> or <li> tags.",
	"headlines": "List each story as a headline with a single explanatory sentence beneath it. " +
		"Group by the section headers below. " +
		"Wrap each story in its own <p> tag. Do NOT use <ul> or <li> tags.",
}

// SectionPrompts describes each fixed section to the model. Order matters:
// the system prompt numbers sections in this order.
var SectionPrompts = []struct {
	Key    string
	Prompt string
}{
	{core.SectionTrendingUnread, `"Stories you missed" — CATEGORY: trending_unread. Popular stories the reader hasn't read yet.`},
	{core.SectionLongRead, `"Long reads for later" — CATEGORY: long_read. Longer articles worth setting time aside for. Use the WORD_COUNT field to judge which stories qualify as long reads relative to other stories.`},
	{core.SectionClassifierMatch, `"Based on your interests" — CATEGORY: classifier_match. ` +
		"Stories matching topics, authors, or feeds the reader has trained as interesting. " +
		"After each story link, include ALL matching classifiers from the MATCHES field as pills. " +
		"For each match in MATCHES, output this exact HTML: " +
		`<span class="NB-classifier NB-classifier-TYPE NB-classifier-like NB-briefing-classifier">` +
		`<div class="NB-classifier-icon-like"></div>` +
		"<label><b>TYPE_TITLE: </b><span>VALUE</span></label>" +
		"</span> " +
		"where TYPE is the prefix before the colon (feed, author, tag, or title), " +
		"TYPE_TITLE is the ALL CAPS version (SITE for feed, AUTHOR, TAG, or TITLE), " +
		"and VALUE is the text after the colon. Include all matches, not just the first one."},
	{core.SectionFollowUp, `"Follow-ups" — CATEGORY: follow_up. New posts from feeds where the reader recently read other stories.`},
	{core.SectionTrendingGlobal, `"Trending across Newsbrief" — CATEGORY: trending_global. Widely-read stories from across the platform.`},
	{core.SectionDuplicates, `"Common stories" — CATEGORY: duplicates. Stories covered by multiple feeds. For each story, show the shared headline then list each source's unique angle or perspective as sub-items.`},
	{core.SectionQuickCatchup, `"Quick catch-up" — KEY: quick_catchup. This is a special section. Select the 3-5 most important stories from the entire briefing and write a 1-2 sentence TL;DR for each. Link to each story using the anchor tag format specified below. This section should appear first.`},
	{core.SectionEmergingTopics, `"Emerging topics" — CATEGORY: emerging_topics. Look across all the stories for topics that appear multiple times or are getting increasing coverage. Group these stories under the topic and explain why it's trending.`},
	{core.SectionContrarianViews, `"Contrarian views" — CATEGORY: contrarian_views. Look for stories where different feeds have notably different perspectives on the same topic. Highlight the disagreement and present each side.`},
}

var multiUnderscore = regexp.MustCompile(`_+`)

// NormalizeSectionKey canonicalizes a model-emitted section key: lowercase,
// hyphens to underscores, collapsed underscores, then a separator-free fuzzy
// match against the valid keys. Returns "" when nothing matches.
func NormalizeSectionKey(key string) string {
	if key == "" {
		return ""
	}

	normalized := strings.ToLower(strings.TrimSpace(key))
	normalized = strings.ReplaceAll(normalized, "-", "_")
	normalized = multiUnderscore.ReplaceAllString(normalized, "_")
	normalized = strings.Trim(normalized, "_")

	if core.ValidSectionKeys[normalized] {
		return normalized
	}

	keyNoSep := strings.ReplaceAll(normalized, "_", "")
	for valid := range core.ValidSectionKeys {
		if strings.ReplaceAll(valid, "_", "") == keyNoSep {
			return valid
		}
	}
	return ""
}

// buildSystemPrompt assembles the system prompt from the user's length,
// style, and section preferences.
func buildSystemPrompt(summaryLength, summaryStyle string, sections map[string]bool, customSectionPrompts []string) string {
	lengthInstruction, ok := LengthInstructions[summaryLength]
	if !ok {
		lengthInstruction = LengthInstructions["medium"]
	}
	styleInstruction, ok := StyleInstructions[summaryStyle]
	if !ok {
		styleInstruction = StyleInstructions["bullets"]
	}

	active := sections
	if len(active) == 0 {
		active = core.DefaultSections()
	}

	var sectionLines []string
	num := 1
	for _, sp := range SectionPrompts {
		if active[sp.Key] {
			sectionLines = append(sectionLines, fmt.Sprintf("%d. %s", num, sp.Prompt))
			num++
		}
	}
	for i, prompt := range customSectionPrompts {
		if i >= core.MaxCustomSections {
			break
		}
		customKey := core.CustomSectionKey(i + 1)
		if active[customKey] && prompt != "" {
			sectionLines = append(sectionLines, fmt.Sprintf(
				"%d. Keyword section (KEY: %s) — The reader has a keyword section that matches stories "+
					"with these keywords: %q. Generate a section header based on the keywords. "+
					"ONLY include stories whose CATEGORY field is set to %s.",
				num, customKey, prompt, customKey))
			num++
		}
	}

	sectionsText := "Include all stories in a single section."
	if len(sectionLines) > 0 {
		sectionsText = strings.Join(sectionLines, "\n")
	}

	return fmt.Sprintf(`You are a personal news editor writing a daily briefing for a Newsbrief reader.
You are given stories from their RSS feeds, each annotated with a CATEGORY indicating why
it was selected for them.

Organize the briefing into sections based on these categories. Use ONLY these section headers
(as <h3 data-section="CATEGORY_KEY"> tags, where CATEGORY_KEY is the category value like
"trending_unread" or "classifier_match"). You MUST include every section listed below if there
are stories that match it. Do not omit sections to save space:

%s

Within each section, briefly explain WHY these stories matter to the reader — not just what
they are about. Focus on what makes each story worth reading.

%s

%s

Reference each story by wrapping its title in an anchor tag like:
<a class="NB-briefing-story-link" data-story-hash="HASH">Story Title</a>

Output valid HTML. Use <h3 data-section="CATEGORY_KEY"> for section headers.
Do not use markdown. Do not wrap in code fences. Do not add any preamble.
Your very first character must be "<". Start directly with <div class="NB-briefing-summary">.
Wrap everything in a <div class="NB-briefing-summary"> tag.`, sectionsText, lengthInstruction, styleInstruction)
}

// buildUserPrompt renders the ranked stories as annotated lines. Categories
// belonging to disabled sections are remapped to trending_global so the
// model never sees annotations for sections it must not create; custom and
// trending_global categories pass through untouched.
func buildUserPrompt(scored []core.ScoredStory, stories map[string]core.Story, feedTitles map[int64]string, sections map[string]bool, briefingDate time.Time) string {
	active := sections
	if len(active) == 0 {
		active = core.DefaultSections()
	}

	var lines []string
	for _, s := range scored {
		story, ok := stories[s.StoryHash]
		if !ok {
			continue
		}

		category := s.Category
		if category == "" {
			category = core.SectionTrendingGlobal
		}
		if !strings.HasPrefix(category, "custom_") && category != core.SectionTrendingGlobal && !active[category] {
			category = core.SectionTrendingGlobal
		}

		title := story.Title
		if title == "" {
			title = "Untitled"
		}
		author := story.Author
		if author == "" {
			author = "Unknown"
		}
		feedTitle := feedTitles[story.FeedID]
		if feedTitle == "" {
			feedTitle = "Unknown Feed"
		}
		date := "Unknown"
		if !story.Date.IsZero() {
			date = story.Date.Format("2006-01-02 15:04")
		}
		readStatus := "unread"
		if s.IsRead {
			readStatus = "read"
		}

		line := fmt.Sprintf(
			"- HASH: %s\n  TITLE: %s\n  FEED: %s\n  AUTHOR: %s\n  DATE: %s\n"+
				"  CATEGORY: %s\n  READ_STATUS: %s\n  WORD_COUNT: %d\n  EXCERPT: %s",
			s.StoryHash, title, feedTitle, author, date,
			category, readStatus, s.ContentWordCount, contentExcerpt(story.Content, 300))

		if len(s.ClassifierMatches) > 0 {
			line += "\n  MATCHES: " + strings.Join(s.ClassifierMatches, ", ")
		}
		lines = append(lines, line)
	}

	if len(lines) == 0 {
		return ""
	}
	return fmt.Sprintf("Today's date: %s\n\nStories ranked by importance:\n\n%s",
		briefingDate.Format("Monday, January 02, 2006"), strings.Join(lines, "\n\n"))
}
