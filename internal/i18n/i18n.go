// ABOUTME: Message catalogs for the dashboard UI in Portuguese, English and Spanish
// ABOUTME: Embedded YAML files flattened to dotted keys, with locale negotiation helpers

package i18n

import (
	"embed"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed locales/*.yaml
var localesFS embed.FS

// DefaultLocale is used when nothing better is known.
const DefaultLocale = "pt"

// Locales lists the supported locales in display order.
var Locales = []string{"pt", "en", "es"}

// Catalog holds flattened messages per locale.
type Catalog struct {
	messages map[string]map[string]string
}

var defaultCatalog = mustLoad()

func mustLoad() *Catalog {
	c, err := Load(localesFS)
	if err != nil {
		panic("i18n: " + err.Error())
	}
	return c
}

// Default returns the embedded catalog.
func Default() *Catalog {
	return defaultCatalog
}

// T translates key with the embedded catalog.
func T(locale, key string, args ...any) string {
	return defaultCatalog.T(locale, key, args...)
}

// Load reads locales/<locale>.yaml for every supported locale from fsys.
func Load(fsys fs.FS) (*Catalog, error) {
	c := &Catalog{messages: make(map[string]map[string]string, len(Locales))}
	for _, loc := range Locales {
		data, err := fs.ReadFile(fsys, path.Join("locales", loc+".yaml"))
		if err != nil {
			return nil, fmt.Errorf("reading %s catalog: %w", loc, err)
		}

		var tree map[string]any
		if err := yaml.Unmarshal(data, &tree); err != nil {
			return nil, fmt.Errorf("parsing %s catalog: %w", loc, err)
		}

		flat := make(map[string]string)
		flatten("", tree, flat)
		c.messages[loc] = flat
	}
	return c, nil
}

func flatten(prefix string, node map[string]any, out map[string]string) {
	for k, v := range node {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch t := v.(type) {
		case map[string]any:
			flatten(key, t, out)
		case string:
			out[key] = t
		case nil:
			out[key] = ""
		default:
			out[key] = fmt.Sprint(t)
		}
	}
}

// T returns the message for key in locale, falling back to the default
// locale and then to the key itself. args are applied with fmt.Sprintf.
func (c *Catalog) T(locale, key string, args ...any) string {
	msg, ok := c.messages[Normalize(locale)][key]
	if !ok {
		msg, ok = c.messages[DefaultLocale][key]
	}
	if !ok {
		return key
	}
	if len(args) > 0 {
		return fmt.Sprintf(msg, args...)
	}
	return msg
}

// Has reports whether key exists in locale.
func (c *Catalog) Has(locale, key string) bool {
	_, ok := c.messages[locale][key]
	return ok
}

// Missing lists keys present in the default locale but absent from locale.
func (c *Catalog) Missing(locale string) []string {
	var out []string
	for key := range c.messages[DefaultLocale] {
		if _, ok := c.messages[locale][key]; !ok {
			out = append(out, key)
		}
	}
	sort.Strings(out)
	return out
}

// Normalize maps a language tag such as "pt-BR" or "EN" to a supported
// locale, or "" when unsupported.
func Normalize(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(tag, "-_"); i >= 0 {
		tag = tag[:i]
	}
	for _, loc := range Locales {
		if tag == loc {
			return loc
		}
	}
	return ""
}

// FromAcceptLanguage picks the best supported locale from an Accept-Language
// header, honoring q weights. Returns "" when none match.
func FromAcceptLanguage(header string) string {
	best, bestQ := "", 0.0
	for _, part := range strings.Split(header, ",") {
		fields := strings.Split(strings.TrimSpace(part), ";")
		loc := Normalize(fields[0])
		if loc == "" {
			continue
		}
		q := 1.0
		for _, f := range fields[1:] {
			f = strings.TrimSpace(f)
			if v, ok := strings.CutPrefix(f, "q="); ok {
				if parsed, err := strconv.ParseFloat(v, 64); err == nil {
					q = parsed
				}
			}
		}
		if q > bestQ {
			best, bestQ = loc, q
		}
	}
	return best
}

// Resolve returns the first candidate that normalizes to a supported
// locale, or DefaultLocale.
func Resolve(candidates ...string) string {
	for _, c := range candidates {
		if loc := Normalize(c); loc != "" {
			return loc
		}
	}
	return DefaultLocale
}
