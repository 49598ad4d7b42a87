package search

// CategorySynonyms maps everyday nouns to the canonical file type they
// usually mean. Keys are lowercase. The first category of a key is the one
// used when a bare query names a type (e.g. "photos" behaves like @type:image).
var CategorySynonyms = map[string][]string{
	// ==========================================================================
	// Images
	// ==========================================================================
	"photo":       {"image"},
	"photos":      {"image"},
	"picture":     {"image"},
	"pictures":    {"image"},
	"img":         {"image"},
	"screenshot":  {"image"},
	"screenshots": {"image"},

	// ==========================================================================
	// Video
	// ==========================================================================
	"video":  {"video"},
	"videos": {"video"},
	"movie":  {"video"},
	"movies": {"video"},
	"film":   {"video"},
	"clip":   {"video"},
	"clips":  {"video"},

	// ==========================================================================
	// Audio
	// ==========================================================================
	"audio":    {"audio"},
	"music":    {"audio"},
	"song":     {"audio"},
	"songs":    {"audio"},
	"track":    {"audio"},
	"podcast":  {"audio"},
	"podcasts": {"audio"},
	"sound":    {"audio"},

	// ==========================================================================
	// Documents
	// ==========================================================================
	"document":      {"document"},
	"documents":     {"document"},
	"doc":           {"document"},
	"docs":          {"document"},
	"pdf":           {"document"},
	"pdfs":          {"document"},
	"text":          {"document"},
	"report":        {"document"},
	"reports":       {"document"},
	"spreadsheet":   {"document"},
	"spreadsheets":  {"document"},
	"presentation":  {"document"},
	"presentations": {"document"},

	// ==========================================================================
	// Code
	// ==========================================================================
	"code":    {"code"},
	"script":  {"code"},
	"scripts": {"code"},
	"program": {"code"},
	"source":  {"code"},

	// ==========================================================================
	// Archives
	// ==========================================================================
	"archive":    {"compressed"},
	"archives":   {"compressed"},
	"zip":        {"compressed"},
	"compressed": {"compressed"},
}
