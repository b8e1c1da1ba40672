package reconcile

import (
	"strings"

	"github.com/verdantlabs/curator/internal/groundtruth"
	"github.com/verdantlabs/curator/internal/index"
	"github.com/verdantlabs/curator/internal/match"
	"github.com/verdantlabs/curator/internal/record"
)

// ProtectedDomains are link hosts that are always preserved: an existing
// label_url on one of these is never overwritten and never removed, even by
// a rule that would otherwise strip it.
var ProtectedDomains = []string{"greencastonline.com", "basf.ca"}

// DisallowedDomain marks links that must be stripped from metadata.
const DisallowedDomain = "epa.gov"

// DisallowedExtension marks pdf_path values that must be stripped.
const DisallowedExtension = ".txt"

func containsProtectedDomain(url string) bool {
	lower := strings.ToLower(url)
	for _, domain := range ProtectedDomains {
		if strings.Contains(lower, domain) {
			return true
		}
	}
	return false
}

func containsDisallowedDomain(url string) bool {
	return strings.Contains(strings.ToLower(url), DisallowedDomain)
}

// LinkPass builds a pass that sets label_url from parsed label files and
// mirrors the same value into pdf_path, so one field drives both retrieval
// and display. Records already linked to a protected domain keep their link.
func LinkPass(labels []groundtruth.Label) Pass {
	findLabel := func(name string) *groundtruth.Label {
		for i := range labels {
			if match.Matches(name, labels[i].ProductName) {
				return &labels[i]
			}
		}
		return nil
	}

	return Pass{
		Name:   "link-labels",
		Filter: index.In("type", record.TypePesticideProduct, record.TypePesticideLabel),
		Match: func(rec record.Record) bool {
			return findLabel(rec.DisplayName()) != nil
		},
		Patch: func(rec record.Record) record.Patch {
			label := findLabel(rec.DisplayName())
			if label == nil {
				return record.Patch{}
			}
			if containsProtectedDomain(rec.Metadata.GetString("label_url")) {
				return record.Patch{}
			}
			return record.Patch{Set: record.Metadata{
				"label_url": label.LabelURL,
				"pdf_path":  label.LabelURL,
			}}
		},
	}
}

// RenamePass builds a pass that assigns matched records a new canonical
// identity: document_name and source always, product_name only when the
// record already carries one, type and brand when the directive sets them.
func RenamePass(renames []groundtruth.Rename) Pass {
	findRename := func(name string) *groundtruth.Rename {
		for i := range renames {
			if match.Matches(name, renames[i].Match) {
				return &renames[i]
			}
		}
		return nil
	}

	return Pass{
		Name: "rename",
		Match: func(rec record.Record) bool {
			return findRename(rec.DisplayName()) != nil
		},
		Patch: func(rec record.Record) record.Patch {
			directive := findRename(rec.DisplayName())
			if directive == nil {
				return record.Patch{}
			}
			set := record.Metadata{
				"document_name": directive.Name,
				"source":        directive.Name,
			}
			if rec.Metadata.Has("product_name") {
				set["product_name"] = directive.Name
			}
			if directive.Type != "" {
				set["type"] = directive.Type
			}
			if directive.Brand != "" {
				set["brand"] = directive.Brand
			}
			return record.Patch{Set: set}
		},
	}
}

// UnlinkPass builds a pass that strips disallowed links. label_url is removed
// when its value points at the disallowed domain; pdf_path is removed
// independently, based on its own value (disallowed domain or extension).
// A record whose label_url sits on a protected domain is left untouched.
func UnlinkPass() Pass {
	evaluate := func(rec record.Record) record.Patch {
		if containsProtectedDomain(rec.Metadata.GetString("label_url")) {
			return record.Patch{}
		}

		var remove []string
		if url := rec.Metadata.GetString("label_url"); url != "" && containsDisallowedDomain(url) {
			remove = append(remove, "label_url")
		}
		if path := rec.Metadata.GetString("pdf_path"); path != "" {
			if containsDisallowedDomain(path) || strings.HasSuffix(strings.ToLower(path), DisallowedExtension) {
				remove = append(remove, "pdf_path")
			}
		}
		return record.Patch{Remove: remove}
	}

	return Pass{
		Name: "unlink-disallowed",
		Match: func(rec record.Record) bool {
			return !evaluate(rec).IsZero()
		},
		Patch: evaluate,
	}
}

// DefaultCountryRules returns the country classification rule list. Order is
// significant: the Canada-only list is consulted before the both-countries
// list, and the default applies when nothing else fires.
func DefaultCountryRules() match.RuleList {
	return match.RuleList{
		{
			Name:    "canada-only",
			Match:   match.AnyKeyword("PAR III", "KILLEX", "VANQUISH", "TRILLION"),
			Outcome: record.CountryCA,
		},
		{
			Name: "both-countries",
			Match: match.AnyKeyword(
				"HERITAGE", "DACONIL", "PRIMO", "BANNER", "SUBDUE",
				"DIMENSION", "MEDALLION", "SECURE", "ACELEPRYN",
			),
			Outcome: record.CountryBoth,
		},
		{
			Name:    "default",
			Match:   match.Always(),
			Outcome: record.CountryUSA,
		},
	}
}

// CountryPass builds a pass that sets the country tag from an ordered rule
// list, first match wins, replacing any prior value outright.
func CountryPass(rules match.RuleList) Pass {
	return Pass{
		Name:   "tag-country",
		Filter: index.In("type", record.TypePesticideProduct, record.TypePesticideLabel),
		Match: func(rec record.Record) bool {
			return rec.DisplayName() != ""
		},
		Patch: func(rec record.Record) record.Patch {
			country, ok := rules.Evaluate(rec.DisplayName())
			if !ok {
				return record.Patch{}
			}
			return record.Patch{Set: record.Metadata{"country": country}}
		},
	}
}

// PurgePass builds a destructive pass deleting records whose name contains
// any of the given keywords. The driver gates it behind confirmation.
func PurgePass(keywords []string) Pass {
	pred := match.AnyKeyword(keywords...)
	return Pass{
		Name: "purge",
		Match: func(rec record.Record) bool {
			return pred(match.Normalize(rec.DisplayName()))
		},
		Destructive: true,
	}
}
