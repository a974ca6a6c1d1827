package scraper

// ListingConfig defines how candidate records are found on a listing page.
type ListingConfig struct {
	ContainerSelectors []string `yaml:"container_selectors"`
	ItemSelector       string   `yaml:"item_selector"`
	IDAttribute        string   `yaml:"id_attribute"`
	LinkSelector       string   `yaml:"link_selector"`
	ImageSelector      string   `yaml:"image_selector"`
	NameSelector       string   `yaml:"name_selector"`
	StatusSelector     string   `yaml:"status_selector"`
	PhotosSelector     string   `yaml:"photos_selector"`

	// NoPhotoClass and NoPhotoSrc mark the placeholder image shown for
	// profiles without a viewable photo.
	NoPhotoClass string `yaml:"no_photo_class"`
	NoPhotoSrc   string `yaml:"no_photo_src"`

	// Boilerplate tokens are removed from the name/location text.
	Boilerplate []string `yaml:"boilerplate"`
}

// DetailConfig defines how enrichment fields are extracted from a detail
// page.
type DetailConfig struct {
	SectionSelector    string `yaml:"section_selector"`
	SubsectionSelector string `yaml:"subsection_selector"`
	HeadingSelector    string `yaml:"heading_selector"`

	DataHeadings  []string `yaml:"data_headings"`
	GoalsHeadings []string `yaml:"goals_headings"`
	AboutHeadings []string `yaml:"about_headings"`

	// AbsentLiteral is what the site prints when a profile has no
	// description. PaywallPhrase marks a description hidden behind a
	// subscription.
	AbsentLiteral string `yaml:"absent_literal"`
	PaywallPhrase string `yaml:"paywall_phrase"`
}

// NewListingConfig returns the listing selectors of the target site.
func NewListingConfig() ListingConfig {
	return ListingConfig{
		ContainerSelectors: []string{".anketa-list", ".list-view"},
		ItemSelector:       "[data-key]",
		IDAttribute:        "data-key",
		LinkSelector:       "a[href]",
		ImageSelector:      "img",
		NameSelector:       ".anketa-name",
		StatusSelector:     ".anketa-status",
		PhotosSelector:     ".anketa-photos",
		NoPhotoClass:       "no-photo",
		NoPhotoSrc:         "nophoto",
		Boilerplate:        []string{"Анкета", "NEW", "VIP"},
	}
}

// NewDetailConfig returns the detail page selectors of the target site.
func NewDetailConfig() DetailConfig {
	return DetailConfig{
		SectionSelector:    ".anketa-details",
		SubsectionSelector: ".details-block",
		HeadingSelector:    "h2, h3, h4, .title",
		DataHeadings:       []string{"Data", "Данные"},
		GoalsHeadings:      []string{"Goals", "Цели"},
		AboutHeadings:      []string{"About", "О себе"},
		AbsentLiteral:      "Не указано",
		PaywallPhrase:      "доступно только пользователям с подпиской",
	}
}

// NoDescription replaces the site's "information absent" literal.
const NoDescription = "no description"

// SubscriptionRequired replaces the paywall notice.
const SubscriptionRequired = "subscription required to view the description"

// dataKeys translates attribute labels of the Data subsection.
var dataKeys = map[string]string{
	"Рост":                   "height",
	"Вес":                    "weight",
	"Телосложение":           "body_type",
	"Цвет глаз":              "eye_color",
	"Цвет волос":             "hair_color",
	"Знак зодиака":           "zodiac",
	"Семейное положение":     "marital_status",
	"Дети":                   "children",
	"Курение":                "smoking",
	"Алкоголь":               "alcohol",
	"Образование":            "education",
	"Материальное положение": "income",
}

// goalSynonyms normalises goal tags of the Goals subsection.
var goalSynonyms = map[string]string{
	"Дружба":                 "friendship",
	"Общение":                "chat",
	"Переписка":              "chat",
	"Серьезные отношения":    "relationship",
	"Серьёзные отношения":    "relationship",
	"Брак":                   "marriage",
	"Создание семьи":         "marriage",
	"Совместные путешествия": "travel",
	"Путешествия":            "travel",
	"Спонсорство":            "sponsorship",
	"Свидания":               "dating",
}

// TranslateKey maps a Data label through the translation table, keeping
// unknown labels verbatim.
func TranslateKey(label string) string {
	if key, ok := dataKeys[label]; ok {
		return key
	}
	return label
}

// NormalizeGoal maps a goal tag through the synonym table, keeping unknown
// tags verbatim.
func NormalizeGoal(tag string) string {
	if goal, ok := goalSynonyms[tag]; ok {
		return goal
	}
	return tag
}
