package services

import (
	"errors"
	"math"
	"strings"
)

var errProviderMissing = errors.New("ai provider not configured")

type keywordGroup struct {
	name     string
	keywords []string
}

var fallbackMoods = []keywordGroup{
	{"happy", []string{"happy", "joy", "glad", "excited"}},
	{"sad", []string{"sad", "down", "unhappy", "depressed"}},
	{"angry", []string{"angry", "mad", "furious"}},
	{"anxious", []string{"anxious", "nervous", "worried"}},
}

var fallbackTopics = []keywordGroup{
	{"work", []string{"work", "office", "project", "meeting"}},
	{"family", []string{"family", "mom", "dad", "sister", "brother", "kids"}},
	{"health", []string{"health", "exercise", "diet", "doctor"}},
}

// KeywordAnalysis scores each group by the share of its keywords found in text
func KeywordAnalysis(text string) ([]MoodScore, []TopicScore) {
	lower := strings.ToLower(text)

	moods := []MoodScore{}
	for _, group := range fallbackMoods {
		if score := group.score(lower); score > 0 {
			moods = append(moods, MoodScore{Name: group.name, Confidence: score})
		}
	}

	topics := []TopicScore{}
	for _, group := range fallbackTopics {
		if score := group.score(lower); score > 0 {
			topics = append(topics, TopicScore{Name: group.name, Relevance: score})
		}
	}

	return moods, topics
}

func (g keywordGroup) score(lower string) float64 {
	matched := 0
	for _, kw := range g.keywords {
		if strings.Contains(lower, kw) {
			matched++
		}
	}
	return math.Round(float64(matched)/float64(len(g.keywords))*100) / 100
}
