package twee

import (
	"strings"
)

// Folder names used by default routing rules.
const (
	FolderStyleSheet      = "StyleSheet"
	FolderStoryScripts    = "StoryScripts"
	FolderWidgets         = "Widgets"
	FolderSpecialPassages = "SpecialPassages"
	FolderStoryData       = "StoryData"
)

// ExtractTag returns lowercased text between " [" and the following "]" of
// the passage title. Missing or unterminated brackets mean no tag.
func ExtractTag(title string) (string, bool) {
	start := strings.Index(title, " [")
	if start < 0 {
		return "", false
	}
	start += len(" [")
	end := strings.IndexByte(title[start:], ']')
	if end < 0 {
		return "", false
	}
	return strings.ToLower(title[start : start+end]), true
}

// Rule sends passage into Folder when Match reports true. Tag is only
// meaningful when tagged is true. Tagged rules are consulted for passages
// having a tag and only for them, the rest only for passages without one.
type Rule struct {
	Name   string
	Folder string
	Tagged bool
	Match  func(title, tag string, tagged bool) bool
}

// TagRule matches passages having tag which contains keyword.
func TagRule(keyword, folder string) Rule {
	return Rule{
		Name:   "tag:" + keyword,
		Folder: folder,
		Tagged: true,
		Match: func(_, tag string, tagged bool) bool {
			return tagged && strings.Contains(tag, keyword)
		},
	}
}

// TitleRule matches passages whose title contains any of titles.
func TitleRule(name, folder string, titles ...string) Rule {
	titles = append([]string(nil), titles...)
	return Rule{
		Name:   name,
		Folder: folder,
		Match: func(title, _ string, _ bool) bool {
			for _, t := range titles {
				if strings.Contains(title, t) {
					return true
				}
			}
			return false
		},
	}
}

// SpecialTitles are names of passages with special meaning to story formats.
var SpecialTitles = []string{
	"PassageDone", "PassageFooter", "PassageHeader", "PassageReady",
	"StoryBanner", "StoryCaption", "StoryDisplayTitle", "StoryInit",
	"StoryMenu",
}

// StoryDataTitles are names of passages keeping story metadata.
var StoryDataTitles = []string{"StoryData", "StoryTitle"}

// DefaultRules returns routing rules in priority order.
func DefaultRules() []Rule {
	return []Rule{
		TagRule("stylesheet", FolderStyleSheet),
		TagRule("script", FolderStoryScripts),
		TagRule("widget", FolderWidgets),
		TitleRule("special", FolderSpecialPassages, SpecialTitles...),
		TitleRule("story-data", FolderStoryData, StoryDataTitles...),
	}
}

// Router selects output folder for passages using ordered list of rules,
// first matching rule wins. Tagged passage not matched by any tagged rule
// goes to output root, title rules never see it. Router is immutable once
// created.
type Router struct {
	rules []Rule
}

func NewRouter(rules ...Rule) *Router {
	return &Router{rules: append([]Rule(nil), rules...)}
}

// Rules returns copy of router rules in evaluation order.
func (r *Router) Rules() []Rule {
	return append([]Rule(nil), r.rules...)
}

// Route returns folder for passage with given title, empty string means
// output root.
func (r *Router) Route(title string) string {
	folder, _ := r.route(title)
	return folder
}

func (r *Router) route(title string) (string, string) {
	tag, tagged := ExtractTag(title)
	for _, rule := range r.rules {
		if rule.Tagged != tagged {
			continue
		}
		if rule.Match(title, tag, tagged) {
			return rule.Folder, rule.Name
		}
	}
	return "", ""
}
