package navigator

// ContentKeywords mark same-site links that likely lead to news, event or
// activity listings. Matched against lowercased link text and URL path.
var ContentKeywords = []string{
	"event", "events", "イベント", "セミナー", "seminar",
	"news", "お知らせ", "ニュース", "新着", "topics", "topic",
	"calendar", "カレンダー", "schedule", "スケジュール",
	"report", "活動報告", "activity",
}

// Platform is an external event-hosting site recognised by domain.
type Platform struct {
	Domain     string
	PathPrefix string
	Label      string
}

// ExternalPlatforms is checked in order; the first match wins.
var ExternalPlatforms = []Platform{
	{Domain: "peatix.com", Label: "Peatix"},
	{Domain: "connpass.com", Label: "connpass"},
	{Domain: "facebook.com", PathPrefix: "/events", Label: "Facebook"},
	{Domain: "fb.me", Label: "Facebook"},
	{Domain: "eventbrite.com", Label: "Eventbrite"},
	{Domain: "doorkeeper.jp", Label: "Doorkeeper"},
}

// boilerplateSelector lists elements removed before reading visible text.
const boilerplateSelector = "script, style, noscript, template, nav, footer, header"

var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true,
	"br": true, "dd": true, "div": true, "dl": true, "dt": true,
	"fieldset": true, "figcaption": true, "figure": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"hr": true, "li": true, "main": true, "ol": true, "p": true, "pre": true,
	"section": true, "table": true, "tbody": true, "thead": true, "tr": true, "ul": true,
}
