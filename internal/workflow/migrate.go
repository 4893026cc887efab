package workflow

import (
	"bytes"
	"encoding/json"
	"sort"
	"strings"
)

// Migrate converts possibly-legacy form values into the canonical shape.
// The input is never modified and applying Migrate twice equals applying it once.
func Migrate(raw Values) Values {
	out := raw.Clone()

	if !hasLinkURL(out.ExternalLinks) && hasYouTubeURL(out.YouTubeLinks) {
		derived := make([]ExternalLink, 0, len(out.YouTubeLinks))
		for _, link := range out.YouTubeLinks {
			derived = append(derived, ExternalLink{URL: link.URL, Title: link.Title, Type: LinkTypeYouTube})
		}
		out.ExternalLinks = derived
	}

	if out.ExternalLinks == nil {
		out.ExternalLinks = []ExternalLink{}
	}
	if out.YouTubeLinks == nil {
		out.YouTubeLinks = []YouTubeLink{}
	}
	if out.Files == nil {
		out.Files = []FileRef{}
	}
	if out.SelectedSkills == nil {
		out.SelectedSkills = []string{}
	}

	return out
}

func hasLinkURL(links []ExternalLink) bool {
	for _, link := range links {
		if strings.TrimSpace(link.URL) != "" {
			return true
		}
	}
	return false
}

func hasYouTubeURL(links []YouTubeLink) bool {
	for _, link := range links {
		if strings.TrimSpace(link.URL) != "" {
			return true
		}
	}
	return false
}

// NormalizeFeedback accepts the stored feedback column in any of its historical
// shapes and returns a sequence. A single object is wrapped; null, scalars and
// malformed payloads yield an empty sequence.
func NormalizeFeedback(raw json.RawMessage) []FeedbackItem {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return []FeedbackItem{}
	}

	var items []FeedbackItem
	switch trimmed[0] {
	case '[':
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return []FeedbackItem{}
		}
	case '{':
		var item FeedbackItem
		if err := json.Unmarshal(trimmed, &item); err != nil {
			return []FeedbackItem{}
		}
		items = []FeedbackItem{item}
	default:
		return []FeedbackItem{}
	}

	for i := range items {
		items[i] = normalizeFeedbackItem(items[i])
	}
	if items == nil {
		items = []FeedbackItem{}
	}
	return items
}

func normalizeFeedbackItem(item FeedbackItem) FeedbackItem {
	comments := make(map[string]QuestionComment, len(item.QuestionComments))
	for key, comment := range item.QuestionComments {
		if comment.QuestionID == "" {
			comment.QuestionID = key
		}
		if comment.ID == "" {
			comment.ID = key
		}
		comments[key] = comment
	}
	item.QuestionComments = comments
	if item.SelectedSkills == nil {
		item.SelectedSkills = []string{}
	}
	return item
}

// UnknownQuestionKeys lists question_comments keys that do not name a question.
func UnknownQuestionKeys(item FeedbackItem) []string {
	var unknown []string
	for key := range item.QuestionComments {
		if _, ok := LookupQuestion(key); !ok {
			unknown = append(unknown, key)
		}
	}
	sort.Strings(unknown)
	return unknown
}
