package scraper

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/pevans/listwatch/record"
)

// ParseDetail extracts the enrichment fields of a detail page. A page
// without a details section yields an empty Detail, not an error.
// Subsections that are absent leave the matching field nil.
func ParseDetail(body []byte, config DetailConfig) (record.Detail, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return record.Detail{}, &ParseError{Page: "detail", Err: err}
	}

	var detail record.Detail

	section := doc.Find(config.SectionSelector).First()
	if section.Length() == 0 {
		return detail, nil
	}

	section.Find(config.SubsectionSelector).Each(func(_ int, block *goquery.Selection) {
		heading := normalizeSpace(block.Find(config.HeadingSelector).First().Text())

		switch {
		case matchesHeading(heading, config.DataHeadings):
			if detail.Data == nil {
				detail.Data = make(map[string]string)
			}
			for key, value := range parseData(block) {
				detail.Data[key] = value
			}
		case matchesHeading(heading, config.GoalsHeadings):
			if detail.Goals == nil {
				detail.Goals = []string{}
			}
			detail.Goals = append(detail.Goals, parseGoals(block, config.HeadingSelector)...)
		case matchesHeading(heading, config.AboutHeadings):
			about := parseAbout(block, config)
			detail.About = &about
		}
	})

	return detail, nil
}

// matchesHeading reports whether heading starts with one of the aliases,
// ignoring case.
func matchesHeading(heading string, aliases []string) bool {
	if heading == "" {
		return false
	}
	lower := strings.ToLower(heading)
	for _, alias := range aliases {
		if alias != "" && strings.HasPrefix(lower, strings.ToLower(alias)) {
			return true
		}
	}
	return false
}

// parseData reads label/value pairs from dt/dd lists, .key/.value siblings
// or two-cell table rows.
func parseData(block *goquery.Selection) map[string]string {
	data := make(map[string]string)

	add := func(label, value string) {
		label = strings.TrimSuffix(normalizeSpace(label), ":")
		value = normalizeSpace(value)
		if label == "" || value == "" {
			return
		}
		data[TranslateKey(strings.TrimSpace(label))] = value
	}

	block.Find("dt").Each(func(_ int, dt *goquery.Selection) {
		add(dt.Text(), dt.NextFiltered("dd").Text())
	})

	block.Find(".key").Each(func(_ int, key *goquery.Selection) {
		add(key.Text(), key.NextFiltered(".value").Text())
	})

	block.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("th, td")
		if cells.Length() < 2 {
			return
		}
		add(cells.Eq(0).Text(), cells.Eq(1).Text())
	})

	return data
}

// parseGoals reads goal tags from list items, falling back to a comma
// separated text body.
func parseGoals(block *goquery.Selection, headingSelector string) []string {
	goals := []string{}

	items := block.Find("li")
	if items.Length() > 0 {
		items.Each(func(_ int, li *goquery.Selection) {
			if tag := normalizeSpace(li.Text()); tag != "" {
				goals = append(goals, NormalizeGoal(tag))
			}
		})
		return goals
	}

	body := block.Clone()
	body.Find(headingSelector).Remove()
	for part := range strings.SplitSeq(body.Text(), ",") {
		if tag := normalizeSpace(part); tag != "" {
			goals = append(goals, NormalizeGoal(tag))
		}
	}
	return goals
}

// parseAbout reads the free text of the About subsection and applies the
// absent and paywall substitutions.
func parseAbout(block *goquery.Selection, config DetailConfig) string {
	body := block.Clone()
	body.Find(config.HeadingSelector).Remove()
	text := normalizeSpace(body.Text())

	switch {
	case text == "" || text == config.AbsentLiteral:
		return NoDescription
	case config.PaywallPhrase != "" && strings.Contains(strings.ToLower(text), strings.ToLower(config.PaywallPhrase)):
		return SubscriptionRequired
	}
	return text
}
