package registry

import (
	"context"
	"regexp"
	"strings"

	"trafficportal/internal/models"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	nonSlugChars  = regexp.MustCompile(`[^a-zA-Z0-9\s]`)
)

// Slugify lowercases s, collapses whitespace, strips everything that is not
// an ASCII letter, digit or space and joins the words with hyphens.
func Slugify(s string) string {
	s = strings.TrimSpace(strings.ToLower(s))
	s = whitespaceRun.ReplaceAllString(s, " ")
	s = nonSlugChars.ReplaceAllString(s, "")
	return whitespaceRun.ReplaceAllString(s, "-")
}

// NormalizeSlug brings a slug taken from a URL into the form Slugify
// produces. Hyphens separate words, so a slug that is already normalized
// comes back unchanged.
func NormalizeSlug(slug string) string {
	return Slugify(strings.ReplaceAll(slug, "-", " "))
}

// Strategy is one way of matching a normalized slug against a city.
type Strategy struct {
	Name  string
	Match func(city models.City, slug string) bool
}

var (
	ExactName = Strategy{
		Name: "exact",
		Match: func(city models.City, slug string) bool {
			name := Slugify(city.CityName)
			return name != "" && name == slug
		},
	}
	ContainsName = Strategy{
		Name: "contains",
		Match: func(city models.City, slug string) bool {
			name := Slugify(city.CityName)
			if name == "" {
				return false
			}
			return strings.Contains(name, slug) || strings.Contains(slug, name)
		},
	}
	// PrefixOrCode falls back to the city code alone when the name has no
	// slug characters.
	PrefixOrCode = Strategy{
		Name: "prefix",
		Match: func(city models.City, slug string) bool {
			if Slugify(city.CityCode) == slug {
				return true
			}
			name := Slugify(city.CityName)
			if name == "" {
				return false
			}
			return strings.HasPrefix(name, slug) || strings.HasPrefix(slug, name)
		},
	}
)

// Strategies are tried in order; the first strategy with any matching city
// decides, and within it the first city in registry order wins.
var Strategies = []Strategy{ExactName, ContainsName, PrefixOrCode}

// Match runs the strategies over cities for slug.
func Match(cities []models.City, slug string) (models.City, string, bool) {
	normalized := NormalizeSlug(slug)
	if normalized == "" {
		return models.City{}, "", false
	}

	for _, strategy := range Strategies {
		for _, city := range cities {
			if strategy.Match(city, normalized) {
				return city, strategy.Name, true
			}
		}
	}
	return models.City{}, "", false
}

// ResolveSlug maps a URL slug back to a city, returning the name of the
// strategy that matched.
func (r *Registry) ResolveSlug(ctx context.Context, slug string) (models.City, string, error) {
	cities, err := r.ListCities(ctx)
	if err != nil {
		return models.City{}, "", err
	}

	city, strategy, ok := Match(cities, slug)
	if !ok {
		r.log.Debug().Str("slug", slug).Int("cities", len(cities)).Msg("city slug not resolved")
		return models.City{}, "", ErrCityNotFound
	}
	return city, strategy, nil
}
