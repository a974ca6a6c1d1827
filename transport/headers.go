package transport

import "math/rand/v2"

var acceptHeaders = []string{
	"text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8",
	"text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
	"text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,image/apng,*/*;q=0.8",
}

var languageHeaders = []string{
	"ru-RU,ru;q=0.9,en-US;q=0.8,en;q=0.7",
	"ru,en;q=0.9",
	"ru-RU,ru;q=0.8,en-US;q=0.5,en;q=0.3",
	"en-US,en;q=0.9,ru;q=0.8",
}

var referers = []string{
	"https://www.google.com/",
	"https://yandex.ru/",
	"https://www.bing.com/",
	"",
}

// randomHeaders returns a browser-like header set. The User-Agent is set
// separately by the collector extension.
func randomHeaders() map[string]string {
	headers := map[string]string{
		"Accept":                    pick(acceptHeaders),
		"Accept-Language":           pick(languageHeaders),
		"Upgrade-Insecure-Requests": "1",
		"Cache-Control":             "no-cache",
	}
	if referer := pick(referers); referer != "" {
		headers["Referer"] = referer
	}
	return headers
}

func pick(values []string) string {
	return values[rand.IntN(len(values))]
}
